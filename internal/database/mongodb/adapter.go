// Package mongodb implements the adapter contract for MongoDB, the exemplar
// for engines with structured JSON operations, session-scoped transactions,
// and injection-sensitive untrusted input.
package mongodb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/Zyleree/PineMCP/pkg/adapter"
	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

const connectTimeout = 10 * time.Second

// Adapter implements adapter.DatabaseAdapter for MongoDB. Transactions use
// the backend's causally-ordered session: every operation issued while a
// transaction is open runs tagged to that session.
type Adapter struct {
	config    adapter.ConnectionConfig
	client    *mongo.Client
	db        *mongo.Database
	connected int32

	// txMu guards the session forming the transaction slot.
	txMu    sync.Mutex
	session *mongo.Session
}

// NewAdapter creates a new, not-yet-connected MongoDB adapter.
func NewAdapter(config adapter.ConnectionConfig) *Adapter {
	return &Adapter{config: config}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.MongoDB
}

// Config returns the connection configuration.
func (a *Adapter) Config() adapter.ConnectionConfig {
	return a.config
}

// Connect establishes the client and verifies it with a primary ping.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.IsConnected() {
		return nil
	}

	host, port := a.config.Address()

	client, err := mongo.Connect(options.Client().ApplyURI(a.connString()))
	if err != nil {
		return adapter.NewConnectionError(dbcapabilities.MongoDB, host, port,
			fmt.Errorf("error connecting to database: %w", err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return adapter.NewConnectionError(dbcapabilities.MongoDB, host, port,
			fmt.Errorf("error pinging database: %w", err))
	}

	a.client = client
	a.db = client.Database(a.config.EffectiveDatabase())
	atomic.StoreInt32(&a.connected, 1)
	return nil
}

// connString builds the connection URI, preferring the configured URL.
func (a *Adapter) connString() string {
	if a.config.URL != "" {
		return a.config.URL
	}

	var connString strings.Builder
	host, port := a.config.Address()

	authSource := "admin"
	if a.config.Mongo != nil && a.config.Mongo.AuthSource != "" {
		authSource = a.config.Mongo.AuthSource
	}

	if a.config.Username != "" {
		fmt.Fprintf(&connString, "mongodb://%s:%s@%s:%d/%s?authSource=%s",
			a.config.Username, a.config.Password, host, port,
			a.config.EffectiveDatabase(), authSource)
	} else {
		fmt.Fprintf(&connString, "mongodb://%s:%d/%s?authSource=%s",
			host, port, a.config.EffectiveDatabase(), authSource)
	}

	fmt.Fprintf(&connString, "&tls=%t", a.config.SSL)
	return connString.String()
}

// Disconnect abandons any open transaction and releases the client.
func (a *Adapter) Disconnect(ctx context.Context) error {
	if !a.IsConnected() {
		return nil
	}

	a.txMu.Lock()
	if a.session != nil {
		_ = a.session.AbortTransaction(ctx)
		a.session.EndSession(ctx)
		a.session = nil
	}
	a.txMu.Unlock()

	atomic.StoreInt32(&a.connected, 0)
	// The client and database handles stay set after disconnect so an
	// in-flight operation that passed the connected check fails on the
	// disconnected client instead of a nil one.
	err := a.client.Disconnect(ctx)
	if err != nil {
		host, port := a.config.Address()
		return adapter.NewConnectionError(dbcapabilities.MongoDB, host, port, err)
	}
	return nil
}

// IsConnected reports whether the adapter holds a live client.
func (a *Adapter) IsConnected() bool {
	return atomic.LoadInt32(&a.connected) == 1
}

// ValidateConnection probes liveness. Failures map to false, never an error.
func (a *Adapter) ValidateConnection(ctx context.Context) bool {
	if !a.IsConnected() {
		return false
	}
	return a.client.Ping(ctx, readpref.Primary()) == nil
}

// BeginTransaction opens a session and starts its transaction.
func (a *Adapter) BeginTransaction(ctx context.Context) error {
	a.txMu.Lock()
	defer a.txMu.Unlock()

	if !a.IsConnected() {
		return adapter.NewTransactionError(dbcapabilities.MongoDB, "begin", adapter.ErrNotConnected)
	}
	if a.session != nil {
		return adapter.NewTransactionError(dbcapabilities.MongoDB, "begin", adapter.ErrTransactionOpen)
	}

	session, err := a.client.StartSession()
	if err != nil {
		return adapter.NewTransactionError(dbcapabilities.MongoDB, "begin", err)
	}
	if err := session.StartTransaction(); err != nil {
		session.EndSession(ctx)
		return adapter.NewTransactionError(dbcapabilities.MongoDB, "begin", err)
	}

	a.session = session
	return nil
}

// CommitTransaction commits, then always terminates the session.
func (a *Adapter) CommitTransaction(ctx context.Context) error {
	return a.endTransaction(ctx, "commit")
}

// RollbackTransaction aborts, then always terminates the session.
func (a *Adapter) RollbackTransaction(ctx context.Context) error {
	return a.endTransaction(ctx, "rollback")
}

func (a *Adapter) endTransaction(ctx context.Context, op string) error {
	a.txMu.Lock()
	defer a.txMu.Unlock()

	if a.session == nil {
		return adapter.NewTransactionError(dbcapabilities.MongoDB, op, adapter.ErrNoTransaction)
	}

	var err error
	if op == "commit" {
		err = a.session.CommitTransaction(ctx)
	} else {
		err = a.session.AbortTransaction(ctx)
	}

	// The session is terminated even when commit/abort fails.
	a.session.EndSession(ctx)
	a.session = nil

	if err != nil {
		return adapter.NewTransactionError(dbcapabilities.MongoDB, op, err)
	}
	return nil
}

// IsInTransaction reports whether the transaction slot is occupied.
func (a *Adapter) IsInTransaction() bool {
	a.txMu.Lock()
	defer a.txMu.Unlock()
	return a.session != nil
}

// operationContext tags ctx with the open session so in-transaction
// operations all run on the same causally-ordered session.
func (a *Adapter) operationContext(ctx context.Context) context.Context {
	a.txMu.Lock()
	defer a.txMu.Unlock()
	if a.session != nil {
		return mongo.NewSessionContext(ctx, a.session)
	}
	return ctx
}
