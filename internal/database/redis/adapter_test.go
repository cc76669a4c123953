package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zyleree/PineMCP/pkg/adapter"
	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

func setupAdapter(t *testing.T) (*miniredis.Miniredis, *Adapter) {
	t.Helper()

	mr := miniredis.RunT(t)

	a := NewAdapter(adapter.ConnectionConfig{
		DatabaseType: "redis",
		URL:          "redis://" + mr.Addr(),
	})
	require.NoError(t, a.Connect(context.Background()))
	t.Cleanup(func() { _ = a.Disconnect(context.Background()) })

	return mr, a
}

func TestConnectLifecycle(t *testing.T) {
	ctx := context.Background()
	_, a := setupAdapter(t)

	assert.Equal(t, dbcapabilities.Redis, a.Type())
	assert.True(t, a.IsConnected())
	assert.False(t, a.IsInTransaction())
	assert.True(t, a.ValidateConnection(ctx))

	// Connect is idempotent while connected.
	require.NoError(t, a.Connect(ctx))
	assert.True(t, a.IsConnected())

	require.NoError(t, a.Disconnect(ctx))
	assert.False(t, a.IsConnected())
	assert.False(t, a.ValidateConnection(ctx))

	// Disconnect is a no-op when already disconnected.
	require.NoError(t, a.Disconnect(ctx))
}

func TestOperationOverlappingDisconnect(t *testing.T) {
	// An operation that passed the connected check while Disconnect runs must
	// land on the closed client and error, never dereference a nil one.
	ctx := context.Background()
	_, a := setupAdapter(t)

	require.NoError(t, a.Disconnect(ctx))
	a.connected = 1

	_, err := a.ExecuteQuery(ctx, "PING")
	require.Error(t, err)
	assert.True(t, adapter.IsQueryError(err))

	a.connected = 0
}

func TestConnectFailureLeavesDisconnected(t *testing.T) {
	a := NewAdapter(adapter.ConnectionConfig{
		DatabaseType: "redis",
		Host:         "127.0.0.1",
		Port:         1, // nothing listens here
	})

	err := a.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, adapter.IsConnectionError(err))
	assert.False(t, a.IsConnected())
}

func TestGetSetRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, a := setupAdapter(t)

	res, err := a.ExecuteQuery(ctx, "SET greeting hello")
	require.NoError(t, err)
	assert.Equal(t, "OK", res.Rows[0]["result"])

	res, err = a.ExecuteQuery(ctx, "GET greeting")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "hello", res.Rows[0]["value"])
	assert.Equal(t, int64(1), res.RowCount)
}

func TestGetMissingKeyReturnsNullMarker(t *testing.T) {
	ctx := context.Background()
	_, a := setupAdapter(t)

	res, err := a.ExecuteQuery(ctx, "GET foo")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "foo", res.Rows[0]["key"])
	assert.Nil(t, res.Rows[0]["value"])
}

func TestUnsupportedCommandNamesKeyword(t *testing.T) {
	ctx := context.Background()
	_, a := setupAdapter(t)

	_, err := a.ExecuteQuery(ctx, "FROBNICATE x")
	require.Error(t, err)
	assert.True(t, adapter.IsQueryError(err))
	assert.Contains(t, err.Error(), "FROBNICATE")
}

func TestPlaceholderSubstitution(t *testing.T) {
	ctx := context.Background()
	mr, a := setupAdapter(t)

	_, err := a.ExecuteQuery(ctx, "SET ? ?", "user:1", "alice")
	require.NoError(t, err)

	got, err := mr.Get("user:1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)

	// A substituted value is never reinterpreted as command syntax.
	_, err = a.ExecuteQuery(ctx, "SET injected ?", "value with spaces")
	require.NoError(t, err)
	got, err = mr.Get("injected")
	require.NoError(t, err)
	assert.Equal(t, "value with spaces", got)

	_, err = a.ExecuteQuery(ctx, "SET ? ?", "only-one")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough parameters")
}

func TestHashListSetCommands(t *testing.T) {
	ctx := context.Background()
	_, a := setupAdapter(t)

	_, err := a.ExecuteQuery(ctx, "HSET user:1 name alice role admin")
	require.NoError(t, err)

	res, err := a.ExecuteQuery(ctx, "HGET user:1 name")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Rows[0]["value"])

	res, err = a.ExecuteQuery(ctx, "HGETALL user:1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowCount)

	_, err = a.ExecuteQuery(ctx, "RPUSH queue a b c")
	require.NoError(t, err)
	res, err = a.ExecuteQuery(ctx, "LRANGE queue 0 -1")
	require.NoError(t, err)
	require.Equal(t, int64(3), res.RowCount)
	assert.Equal(t, "a", res.Rows[0]["value"])

	_, err = a.ExecuteQuery(ctx, "SADD tags go redis")
	require.NoError(t, err)
	res, err = a.ExecuteQuery(ctx, "SMEMBERS tags")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowCount)

	_, err = a.ExecuteQuery(ctx, "ZADD board 1 first 2 second")
	require.NoError(t, err)
	res, err = a.ExecuteQuery(ctx, "ZRANGE board 0 -1")
	require.NoError(t, err)
	require.Equal(t, int64(2), res.RowCount)
	assert.Equal(t, "first", res.Rows[0]["member"])

	res, err = a.ExecuteQuery(ctx, "PING")
	require.NoError(t, err)
	assert.Equal(t, "PONG", res.Rows[0]["result"])
}

func TestTransactionCommitAppliesBatch(t *testing.T) {
	ctx := context.Background()
	mr, a := setupAdapter(t)

	require.NoError(t, a.BeginTransaction(ctx))
	assert.True(t, a.IsInTransaction())

	res, err := a.ExecuteQuery(ctx, "SET a 1")
	require.NoError(t, err)
	assert.Equal(t, "QUEUED", res.Rows[0]["result"])

	_, err = a.ExecuteQuery(ctx, "SET b 2")
	require.NoError(t, err)

	// Nothing applied until commit.
	assert.False(t, mr.Exists("a"))

	require.NoError(t, a.CommitTransaction(ctx))
	assert.False(t, a.IsInTransaction())

	got, err := mr.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	got, err = mr.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestTransactionRollbackDiscardsBatch(t *testing.T) {
	ctx := context.Background()
	mr, a := setupAdapter(t)

	require.NoError(t, a.BeginTransaction(ctx))
	_, err := a.ExecuteQuery(ctx, "SET doomed 1")
	require.NoError(t, err)

	require.NoError(t, a.RollbackTransaction(ctx))
	assert.False(t, a.IsInTransaction())
	assert.False(t, mr.Exists("doomed"))
}

func TestTransactionStateMachine(t *testing.T) {
	ctx := context.Background()
	_, a := setupAdapter(t)

	// Commit and rollback without begin fail and leave state unchanged.
	err := a.CommitTransaction(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrNoTransaction))
	err = a.RollbackTransaction(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrNoTransaction))
	assert.False(t, a.IsInTransaction())

	// Double begin fails; the first transaction survives.
	require.NoError(t, a.BeginTransaction(ctx))
	err = a.BeginTransaction(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrTransactionOpen))
	assert.True(t, a.IsInTransaction())

	require.NoError(t, a.RollbackTransaction(ctx))
}

func TestDisconnectDuringTransaction(t *testing.T) {
	ctx := context.Background()
	mr, a := setupAdapter(t)

	require.NoError(t, a.BeginTransaction(ctx))
	_, err := a.ExecuteQuery(ctx, "SET abandoned 1")
	require.NoError(t, err)

	require.NoError(t, a.Disconnect(ctx))
	assert.False(t, a.IsConnected())
	assert.False(t, a.IsInTransaction())
	assert.False(t, mr.Exists("abandoned"))
}

func TestSyntheticSchema(t *testing.T) {
	ctx := context.Background()
	mr, a := setupAdapter(t)

	require.NoError(t, mr.Set("user:1", "alice"))
	require.NoError(t, mr.Set("user:2", "bob"))
	require.NoError(t, mr.Set("session:abc", "live"))
	require.NoError(t, mr.Set("plain", "no separator"))

	tables, err := a.GetTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 3)

	names := make([]string, len(tables))
	for i, tbl := range tables {
		names[i] = tbl.Name
		require.Len(t, tbl.Columns, 2)
		assert.Equal(t, "key", tbl.Columns[0].Name)
		assert.True(t, tbl.Columns[0].IsPrimaryKey)
		assert.Equal(t, "value", tbl.Columns[1].Name)
	}
	assert.Equal(t, []string{"keys", "session", "user"}, names)

	info, err := a.GetTableInfo(ctx, "user", "")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "user", info.Name)

	info, err = a.GetTableInfo(ctx, "missing", "")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetTablesEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	_, a := setupAdapter(t)

	tables, err := a.GetTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestGetDatabaseStats(t *testing.T) {
	ctx := context.Background()
	mr, a := setupAdapter(t)

	// Even against an empty database, stats never raise and stay populated.
	stats, err := a.GetDatabaseStats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TableCount, 0)
	assert.NotEmpty(t, stats.Size)

	require.NoError(t, mr.Set("user:1", "alice"))
	stats, err = a.GetDatabaseStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TableCount)
	assert.NotEmpty(t, stats.Size)
}

func TestInfoFieldParsing(t *testing.T) {
	info := "# Memory\r\nused_memory:1024\r\nused_memory_human:1.00K\r\n# Clients\r\nconnected_clients:3\r\n"

	assert.Equal(t, "1.00K", infoField(info, "used_memory_human"))
	assert.Equal(t, "3", infoField(info, "connected_clients"))
	assert.Equal(t, "", infoField(info, "absent_field"))
}
