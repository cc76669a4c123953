// Package postgres implements the adapter contract for PostgreSQL, the
// exemplar for engines with native BEGIN/COMMIT/ROLLBACK and parameter
// placeholders.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Zyleree/PineMCP/pkg/adapter"
	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

// Adapter implements adapter.DatabaseAdapter for PostgreSQL. Ordinary
// operations run against a pgxpool.Pool; an open transaction pins one
// dedicated connection checked out from the same pool so the whole
// transaction executes on a single backend session.
type Adapter struct {
	config    adapter.ConnectionConfig
	pool      *pgxpool.Pool
	connected int32

	// txMu guards the transaction slot. Exactly one transaction may be open
	// per adapter instance.
	txMu   sync.Mutex
	txConn *pgxpool.Conn
	tx     pgx.Tx
}

// NewAdapter creates a new, not-yet-connected PostgreSQL adapter.
func NewAdapter(config adapter.ConnectionConfig) *Adapter {
	return &Adapter{config: config}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.PostgreSQL
}

// Config returns the connection configuration.
func (a *Adapter) Config() adapter.ConnectionConfig {
	return a.config
}

// Connect establishes the connection pool.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.IsConnected() {
		return nil
	}

	host, port := a.config.Address()

	pool, err := pgxpool.New(ctx, a.connString())
	if err != nil {
		return adapter.NewConnectionError(dbcapabilities.PostgreSQL, host, port,
			fmt.Errorf("error creating connection pool: %w", err))
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return adapter.NewConnectionError(dbcapabilities.PostgreSQL, host, port,
			fmt.Errorf("error pinging database: %w", err))
	}

	a.pool = pool
	atomic.StoreInt32(&a.connected, 1)
	return nil
}

// connString builds the pgx connection string, preferring the configured URL.
func (a *Adapter) connString() string {
	if a.config.URL != "" {
		return a.config.URL
	}

	var connString strings.Builder
	host, port := a.config.Address()
	fmt.Fprintf(&connString, "postgres://%s:%s@%s:%d/%s",
		a.config.Username,
		a.config.Password,
		host,
		port,
		a.config.EffectiveDatabase())

	if a.config.SSL {
		sslMode := "verify-full"
		if a.config.Postgres != nil && a.config.Postgres.SSLMode != "" {
			sslMode = a.config.Postgres.SSLMode
		}
		fmt.Fprintf(&connString, "?sslmode=%s", sslMode)
	} else {
		connString.WriteString("?sslmode=disable")
	}

	return connString.String()
}

// Disconnect releases the pool and any dedicated transactional connection.
// An open transaction is abandoned, never committed.
func (a *Adapter) Disconnect(ctx context.Context) error {
	if !a.IsConnected() {
		return nil
	}

	a.txMu.Lock()
	if a.tx != nil {
		_ = a.tx.Rollback(ctx)
		a.txConn.Release()
		a.tx = nil
		a.txConn = nil
	}
	a.txMu.Unlock()

	atomic.StoreInt32(&a.connected, 0)
	// The pool stays set after close so an in-flight operation that passed
	// the connected check fails on a closed pool instead of a nil one.
	a.pool.Close()
	return nil
}

// IsConnected reports whether the adapter holds a live pool.
func (a *Adapter) IsConnected() bool {
	return atomic.LoadInt32(&a.connected) == 1
}

// ValidateConnection probes liveness. Failures map to false, never an error.
func (a *Adapter) ValidateConnection(ctx context.Context) bool {
	if !a.IsConnected() {
		return false
	}
	return a.pool.Ping(ctx) == nil
}

// BeginTransaction checks out one dedicated connection from the pool and
// opens a transaction on it. A second begin while one is open fails without
// side effects.
func (a *Adapter) BeginTransaction(ctx context.Context) error {
	a.txMu.Lock()
	defer a.txMu.Unlock()

	if !a.IsConnected() {
		return adapter.NewTransactionError(dbcapabilities.PostgreSQL, "begin", adapter.ErrNotConnected)
	}
	if a.tx != nil {
		return adapter.NewTransactionError(dbcapabilities.PostgreSQL, "begin", adapter.ErrTransactionOpen)
	}

	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return adapter.NewTransactionError(dbcapabilities.PostgreSQL, "begin", err)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return adapter.NewTransactionError(dbcapabilities.PostgreSQL, "begin", err)
	}

	a.txConn = conn
	a.tx = tx
	return nil
}

// CommitTransaction sends the native COMMIT, then returns the dedicated
// connection to the pool even if the commit failed.
func (a *Adapter) CommitTransaction(ctx context.Context) error {
	return a.endTransaction(ctx, "commit")
}

// RollbackTransaction sends the native ROLLBACK, then returns the dedicated
// connection to the pool even if the rollback failed.
func (a *Adapter) RollbackTransaction(ctx context.Context) error {
	return a.endTransaction(ctx, "rollback")
}

func (a *Adapter) endTransaction(ctx context.Context, op string) error {
	a.txMu.Lock()
	defer a.txMu.Unlock()

	if a.tx == nil {
		return adapter.NewTransactionError(dbcapabilities.PostgreSQL, op, adapter.ErrNoTransaction)
	}

	var err error
	if op == "commit" {
		err = a.tx.Commit(ctx)
	} else {
		err = a.tx.Rollback(ctx)
	}

	// The dedicated connection must never leak, even on a failed COMMIT.
	a.txConn.Release()
	a.tx = nil
	a.txConn = nil

	if err != nil {
		return adapter.NewTransactionError(dbcapabilities.PostgreSQL, op, err)
	}
	return nil
}

// IsInTransaction reports whether the transaction slot is occupied.
func (a *Adapter) IsInTransaction() bool {
	a.txMu.Lock()
	defer a.txMu.Unlock()
	return a.tx != nil
}
