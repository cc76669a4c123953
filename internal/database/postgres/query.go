package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Zyleree/PineMCP/pkg/adapter"
	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so queries route
// transparently to the dedicated transactional connection when one is open.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ExecuteQuery runs one SQL statement. Positional $1..$n placeholders are
// passed through to pgx, which sends parameters out of band so substituted
// values can never be reinterpreted as SQL.
func (a *Adapter) ExecuteQuery(ctx context.Context, command string, args ...interface{}) (*adapter.QueryResult, error) {
	if !a.IsConnected() {
		return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "execute_query", command, args, adapter.ErrNotConnected)
	}

	var q querier = a.pool
	a.txMu.Lock()
	if a.tx != nil {
		q = a.tx
	}
	a.txMu.Unlock()

	if returnsRows(command) {
		return a.runQuery(ctx, q, command, args)
	}
	return a.runExec(ctx, q, command, args)
}

// returnsRows classifies the statement: row-returning verbs, plus DML that
// carries a RETURNING clause and so produces rows despite its leading keyword.
func returnsRows(command string) bool {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "SHOW", "VALUES", "EXPLAIN", "TABLE", "FETCH":
		return true
	}
	for _, field := range fields[1:] {
		if strings.EqualFold(field, "RETURNING") {
			return true
		}
	}
	return false
}

func (a *Adapter) runQuery(ctx context.Context, q querier, command string, args []interface{}) (*adapter.QueryResult, error) {
	rows, err := q.Query(ctx, command, args...)
	if err != nil {
		return nil, adapter.WrapQueryError(dbcapabilities.PostgreSQL, "execute_query", command, args, err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	fields := make([]adapter.FieldDescriptor, len(descs))
	for i, d := range descs {
		fields[i] = adapter.FieldDescriptor{
			Name:     d.Name,
			DataType: typeNameForOID(d.DataTypeOID),
			// Wire-level field descriptions carry no nullability, so result
			// fields default to nullable-unknown.
			Nullable: true,
		}
	}

	result := []adapter.Row{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, adapter.WrapQueryError(dbcapabilities.PostgreSQL, "execute_query", command, args, err)
		}
		row := make(adapter.Row, len(descs))
		for i, d := range descs {
			row[d.Name] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.WrapQueryError(dbcapabilities.PostgreSQL, "execute_query", command, args, err)
	}

	return adapter.RowsResult(result, fields), nil
}

func (a *Adapter) runExec(ctx context.Context, q querier, command string, args []interface{}) (*adapter.QueryResult, error) {
	tag, err := q.Exec(ctx, command, args...)
	if err != nil {
		return nil, adapter.WrapQueryError(dbcapabilities.PostgreSQL, "execute_query", command, args, err)
	}
	return adapter.SyntheticResult("result", tag.String(), tag.RowsAffected()), nil
}
