package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeCollectionName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "users", want: "users"},
		{name: "allowed punctuation", input: "user_events-2024", want: "user_events-2024"},
		{name: "strips disallowed characters", input: "users; drop table", want: "usersdroptable"},
		{name: "strips dollar injection", input: "users$cmd", want: "userscmd"},
		{name: "empty", input: "", wantErr: true},
		{name: "empty after stripping", input: "$.;!", wantErr: true},
		{name: "reserved system", input: "system", wantErr: true},
		{name: "reserved system prefix", input: "system.users", wantErr: true},
		{name: "reserved system prefix after stripping", input: "System!Journal", wantErr: true},
		{name: "reserved admin", input: "admin", wantErr: true},
		{name: "reserved local", input: "local", wantErr: true},
		{name: "reserved config", input: "Config", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sanitizeCollectionName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeCollectionNameLength(t *testing.T) {
	long := make([]byte, maxCollectionName+1)
	for i := range long {
		long[i] = 'a'
	}

	_, err := sanitizeCollectionName(string(long))
	assert.Error(t, err)

	_, err = sanitizeCollectionName(string(long[:maxCollectionName]))
	assert.NoError(t, err)
}

func TestNormalizeOperation(t *testing.T) {
	assert.Equal(t, "findone", normalizeOperation("findOne"))
	assert.Equal(t, "findone", normalizeOperation("find-one"))
	assert.Equal(t, "insertmany", normalizeOperation("  insert-many "))
	assert.Equal(t, "", normalizeOperation(""))
}

func TestSubstitutePlaceholders(t *testing.T) {
	t.Run("positional substitution", func(t *testing.T) {
		raw := `{"collection":"users","operation":"find","filter":{"name":"?","age":"?"}}`
		got, err := substitutePlaceholders(raw, []interface{}{"alice", 30})
		require.NoError(t, err)
		assert.Equal(t, `{"collection":"users","operation":"find","filter":{"name":"alice","age":30}}`, got)
	})

	t.Run("parameter is data not structure", func(t *testing.T) {
		raw := `{"collection":"users","operation":"find","filter":{"note":"?"}}`
		got, err := substitutePlaceholders(raw, []interface{}{`value with "quotes" and {braces}`})
		require.NoError(t, err)

		cmd, err := parseCommand(got, nil)
		require.NoError(t, err)
		assert.Equal(t, `value with "quotes" and {braces}`, cmd.Filter["note"])
	})

	t.Run("question mark inside a literal is untouched", func(t *testing.T) {
		raw := `{"collection":"users","operation":"find","filter":{"q":"what?"}}`
		got, err := substitutePlaceholders(raw, nil)
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	})

	t.Run("not enough parameters", func(t *testing.T) {
		raw := `{"collection":"users","operation":"find","filter":{"a":"?","b":"?"}}`
		_, err := substitutePlaceholders(raw, []interface{}{1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not enough parameters")
	})
}

func TestParseCommand(t *testing.T) {
	t.Run("valid descriptor", func(t *testing.T) {
		cmd, err := parseCommand(`{"collection":"users","operation":"findOne","filter":{"_id":"?"}}`,
			[]interface{}{"abc123"})
		require.NoError(t, err)
		assert.Equal(t, "users", cmd.Collection)
		assert.Equal(t, "findone", cmd.Operation)
		assert.Equal(t, "abc123", cmd.Filter["_id"])
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := parseCommand(`{"collection":`, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JSON")
	})

	t.Run("missing operation", func(t *testing.T) {
		_, err := parseCommand(`{"collection":"users"}`, nil)
		assert.Error(t, err)
	})

	t.Run("invalid collection", func(t *testing.T) {
		_, err := parseCommand(`{"collection":"system.users","operation":"find"}`, nil)
		assert.Error(t, err)
	})
}

func TestParseCommandDeniedOperators(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "where in filter",
			raw:  `{"collection":"users","operation":"find","filter":{"$where":"sleep(1000)"}}`,
		},
		{
			name: "nested function in update",
			raw:  `{"collection":"users","operation":"updateOne","filter":{},"update":{"$set":{"v":{"$function":{"body":"x"}}}}}`,
		},
		{
			name: "accumulator inside pipeline",
			raw:  `{"collection":"users","operation":"aggregate","pipeline":[{"$group":{"_id":null,"v":{"$accumulator":{}}}}]}`,
		},
		{
			name: "operator inside array element",
			raw:  `{"collection":"users","operation":"find","filter":{"$or":[{"$where":"1"}]}}`,
		},
		{
			name: "embedded operator token as value",
			raw:  `{"collection":"users","operation":"find","filter":{"expr":"$where"}}`,
		},
		{
			name: "operator in document",
			raw:  `{"collection":"users","operation":"insertOne","document":{"hook":{"$function":{}}}}`,
		},
		{
			name: "operator in projection option",
			raw:  `{"collection":"users","operation":"find","options":{"projection":{"v":{"$where":"1"}}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCommand(tt.raw, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not permitted")
		})
	}
}

func TestParseCommandAllowsOrdinaryOperators(t *testing.T) {
	cmd, err := parseCommand(
		`{"collection":"orders","operation":"find","filter":{"total":{"$gt":100},"status":{"$in":["open","held"]}}}`,
		nil)
	require.NoError(t, err)
	assert.Equal(t, "orders", cmd.Collection)
}
