package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name        string
		command     string
		params      []interface{}
		wantKeyword string
		wantArgs    []string
		wantErr     string
	}{
		{
			name:        "simple",
			command:     "GET foo",
			wantKeyword: "GET",
			wantArgs:    []string{"foo"},
		},
		{
			name:        "keyword is case-insensitive",
			command:     "set foo bar",
			wantKeyword: "SET",
			wantArgs:    []string{"foo", "bar"},
		},
		{
			name:        "collapses whitespace",
			command:     "  LRANGE   queue  0   -1 ",
			wantKeyword: "LRANGE",
			wantArgs:    []string{"queue", "0", "-1"},
		},
		{
			name:        "placeholders substituted in order",
			command:     "HSET ? name ?",
			params:      []interface{}{"user:1", "alice"},
			wantKeyword: "HSET",
			wantArgs:    []string{"user:1", "name", "alice"},
		},
		{
			name:        "numeric parameter",
			command:     "SET counter ?",
			params:      []interface{}{42},
			wantKeyword: "SET",
			wantArgs:    []string{"counter", "42"},
		},
		{
			name:    "missing parameter",
			command: "SET foo ?",
			wantErr: "not enough parameters",
		},
		{
			name:    "empty command",
			command: "   ",
			wantErr: "empty command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := parseCommand(tt.command, tt.params)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeyword, cmd.keyword)
			assert.Equal(t, tt.wantArgs, cmd.args)
		})
	}
}

func TestArity(t *testing.T) {
	cmd := parsedCommand{keyword: "GET", args: []string{"foo"}}
	assert.NoError(t, arity(cmd, 1, 1))
	assert.Error(t, arity(cmd, 2, 2))
	assert.NoError(t, arity(cmd, 1, -1))

	err := arity(parsedCommand{keyword: "HSET", args: nil}, 3, -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'hset'")
}

func TestRangeBounds(t *testing.T) {
	start, stop, err := rangeBounds("0", "-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(-1), stop)

	_, _, err = rangeBounds("zero", "-1")
	assert.Error(t, err)
}
