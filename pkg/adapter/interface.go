// Package adapter provides the unified interface for all database adapters.
// This package defines the contract that backend-specific implementations must
// follow, the shared result and introspection types, and the error taxonomy.
package adapter

import (
	"context"

	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

// DatabaseAdapter represents one adapter instance bound to a single backend.
// Each backend paradigm (PostgreSQL, Redis, MongoDB) implements this interface
// independently; shared behavior lives in free-standing helper functions, not
// in a common base type.
//
// Lifecycle: an adapter is constructed disconnected, moves to connected via
// Connect, and back via Disconnect. Within the connected state it owns zero or
// one active transaction. Illegal transitions (double begin, commit without
// begin) return a *TransactionError and leave state untouched.
type DatabaseAdapter interface {
	// Type returns the canonical backend identifier.
	Type() dbcapabilities.DatabaseID

	// Config returns the configuration the adapter was constructed with.
	Config() ConnectionConfig

	// Connect establishes the underlying connection or session. Calling it
	// while already connected is a no-op and must not leak resources. On
	// failure the adapter stays disconnected.
	Connect(ctx context.Context) error

	// Disconnect releases all held resources, abandoning any open
	// transaction. Safe to call when already disconnected.
	Disconnect(ctx context.Context) error

	// IsConnected reports the current lifecycle state.
	IsConnected() bool

	// ExecuteQuery sends one backend-native operation: SQL text for the
	// relational paradigm, a whitespace-tokenized command for key-value, a
	// JSON operation descriptor for document. Arguments are substituted
	// positionally using the backend-native placeholder convention and can
	// never be reinterpreted as command syntax.
	ExecuteQuery(ctx context.Context, command string, args ...interface{}) (*QueryResult, error)

	// GetTables lists all queryable structures, real or synthesized.
	// Returns an empty slice, never an error, when nothing exists.
	GetTables(ctx context.Context) ([]TableInfo, error)

	// GetTableInfo describes one structure. Returns (nil, nil) when the
	// structure does not exist.
	GetTableInfo(ctx context.Context, name, schema string) (*TableInfo, error)

	// GetDatabaseStats returns aggregate metrics, with zero or placeholder
	// values for anything the backend cannot report.
	GetDatabaseStats(ctx context.Context) (*DatabaseStats, error)

	// ValidateConnection is a lightweight liveness probe. It never returns an
	// error: failures map to false.
	ValidateConnection(ctx context.Context) bool

	// BeginTransaction opens the adapter's single transaction slot. Exactly
	// one of two concurrent calls succeeds; the other observes the open
	// transaction and fails.
	BeginTransaction(ctx context.Context) error

	// CommitTransaction commits and releases the dedicated transactional
	// resource, even when the commit itself fails.
	CommitTransaction(ctx context.Context) error

	// RollbackTransaction rolls back and releases the dedicated transactional
	// resource, even when the rollback itself fails.
	RollbackTransaction(ctx context.Context) error

	// IsInTransaction reports whether the transaction slot is occupied.
	IsInTransaction() bool
}
