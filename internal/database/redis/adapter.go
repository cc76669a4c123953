// Package redis implements the adapter contract for Redis, the exemplar for
// engines with a flat command vocabulary and queued-command transactions
// without native rollback.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/Zyleree/PineMCP/pkg/adapter"
	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

// Adapter implements adapter.DatabaseAdapter for Redis. The backend has no
// multi-statement transaction with true undo, so the transaction contract maps
// onto MULTI/EXEC command queueing: commands issued inside a transaction are
// queued on a TxPipeline and flushed atomically on commit, or discarded on
// rollback.
type Adapter struct {
	config    adapter.ConnectionConfig
	client    *redis.Client
	connected int32

	// txMu guards the queued-command pipeline forming the transaction slot.
	txMu sync.Mutex
	pipe redis.Pipeliner
}

// NewAdapter creates a new, not-yet-connected Redis adapter.
func NewAdapter(config adapter.ConnectionConfig) *Adapter {
	return &Adapter{config: config}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Redis
}

// Config returns the connection configuration.
func (a *Adapter) Config() adapter.ConnectionConfig {
	return a.config
}

// Connect establishes the client connection.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.IsConnected() {
		return nil
	}

	host, port := a.config.Address()

	options, err := a.clientOptions()
	if err != nil {
		return adapter.NewConnectionError(dbcapabilities.Redis, host, port, err)
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return adapter.NewConnectionError(dbcapabilities.Redis, host, port,
			fmt.Errorf("error pinging redis: %w", err))
	}

	a.client = client
	atomic.StoreInt32(&a.connected, 1)
	return nil
}

func (a *Adapter) clientOptions() (*redis.Options, error) {
	if a.config.URL != "" {
		options, err := redis.ParseURL(a.config.URL)
		if err != nil {
			return nil, fmt.Errorf("error parsing redis URL: %w", err)
		}
		return options, nil
	}

	host, port := a.config.Address()
	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Username: a.config.Username,
		Password: a.config.Password,
	}

	// Key-space index: explicit extras win, else a numeric database name.
	if a.config.Redis != nil {
		options.DB = a.config.Redis.DBIndex
	} else if a.config.DatabaseName != "" {
		if dbIndex, err := strconv.Atoi(a.config.DatabaseName); err == nil && dbIndex >= 0 {
			options.DB = dbIndex
		}
	}

	if a.config.SSL {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return options, nil
}

// Disconnect discards any queued transaction and closes the client.
func (a *Adapter) Disconnect(ctx context.Context) error {
	if !a.IsConnected() {
		return nil
	}

	a.txMu.Lock()
	if a.pipe != nil {
		a.pipe.Discard()
		a.pipe = nil
	}
	a.txMu.Unlock()

	atomic.StoreInt32(&a.connected, 0)
	// The client stays set after close so an in-flight operation that passed
	// the connected check fails on a closed client instead of a nil one.
	if err := a.client.Close(); err != nil {
		host, port := a.config.Address()
		return adapter.NewConnectionError(dbcapabilities.Redis, host, port, err)
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
	return a.client.Ping(ctx).Err() == nil
}

// BeginTransaction opens the MULTI/EXEC queue. The backend client exposes an
// explicit execute primitive, so commit flushes through Exec rather than
// relying on close-time flushing of a second connection.
func (a *Adapter) BeginTransaction(ctx context.Context) error {
	a.txMu.Lock()
	defer a.txMu.Unlock()

	if !a.IsConnected() {
		return adapter.NewTransactionError(dbcapabilities.Redis, "begin", adapter.ErrNotConnected)
	}
	if a.pipe != nil {
		return adapter.NewTransactionError(dbcapabilities.Redis, "begin", adapter.ErrTransactionOpen)
	}

	a.pipe = a.client.TxPipeline()
	return nil
}

// CommitTransaction executes the queued commands atomically as one batch.
func (a *Adapter) CommitTransaction(ctx context.Context) error {
	a.txMu.Lock()
	defer a.txMu.Unlock()

	if a.pipe == nil {
		return adapter.NewTransactionError(dbcapabilities.Redis, "commit", adapter.ErrNoTransaction)
	}

	_, err := a.pipe.Exec(ctx)
	a.pipe = nil

	// A nil reply from a queued read is not a batch failure.
	if err != nil && err != redis.Nil {
		return adapter.NewTransactionError(dbcapabilities.Redis, "commit", err)
	}
	return nil
}

// RollbackTransaction discards the queued commands without executing them.
func (a *Adapter) RollbackTransaction(ctx context.Context) error {
	a.txMu.Lock()
	defer a.txMu.Unlock()

	if a.pipe == nil {
		return adapter.NewTransactionError(dbcapabilities.Redis, "rollback", adapter.ErrNoTransaction)
	}

	a.pipe.Discard()
	a.pipe = nil
	return nil
}

// IsInTransaction reports whether the command queue is open.
func (a *Adapter) IsInTransaction() bool {
	a.txMu.Lock()
	defer a.txMu.Unlock()
	return a.pipe != nil
}
