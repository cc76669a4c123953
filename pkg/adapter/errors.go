package adapter

import (
	"errors"
	"fmt"

	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

// Standard adapter errors
var (
	// ErrConnectionFailed is returned when a connection attempt or teardown fails
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNotConnected is returned when an operation requires a live connection
	ErrNotConnected = errors.New("adapter is not connected")

	// ErrTransactionFailed is returned for transaction-level failures
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrTransactionOpen is returned when beginning while a transaction is already open
	ErrTransactionOpen = errors.New("transaction already in progress")

	// ErrNoTransaction is returned when committing or rolling back without an open transaction
	ErrNoTransaction = errors.New("no transaction in progress")

	// ErrInvalidQuery is returned when a command is malformed or disallowed
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidConfiguration is returned when a configuration is invalid or a lookup fails
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrValidationFailed is returned for malformed caller-supplied values
	ErrValidationFailed = errors.New("validation failed")
)

// ConnectionError is raised by connect/disconnect on transport or
// authentication problems. The adapter always lands in the disconnected state.
type ConnectionError struct {
	DatabaseType dbcapabilities.DatabaseID
	Host         string
	Port         int
	Cause        error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s at %s:%d: %v", e.DatabaseType, e.Host, e.Port, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrConnectionFailed.
func (e *ConnectionError) Is(target error) bool {
	if errors.Is(target, ErrConnectionFailed) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(dbType dbcapabilities.DatabaseID, host string, port int, cause error) *ConnectionError {
	return &ConnectionError{
		DatabaseType: dbType,
		Host:         host,
		Port:         port,
		Cause:        cause,
	}
}

// TransactionError is raised for illegal transaction state transitions and for
// backend-level commit/rollback failures.
type TransactionError struct {
	DatabaseType dbcapabilities.DatabaseID
	Operation    string // begin, commit, rollback
	Cause        error
}

// Error implements the error interface.
func (e *TransactionError) Error() string {
	return fmt.Sprintf("[%s] transaction %s: %v", e.DatabaseType, e.Operation, e.Cause)
}

// Unwrap returns the underlying error.
func (e *TransactionError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrTransactionFailed.
func (e *TransactionError) Is(target error) bool {
	if errors.Is(target, ErrTransactionFailed) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewTransactionError creates a new TransactionError.
func NewTransactionError(dbType dbcapabilities.DatabaseID, operation string, cause error) *TransactionError {
	return &TransactionError{
		DatabaseType: dbType,
		Operation:    operation,
		Cause:        cause,
	}
}

// QueryError is raised for malformed input and for backend execution errors.
// It carries the offending command text and parameters for diagnostics.
type QueryError struct {
	DatabaseType dbcapabilities.DatabaseID
	Operation    string
	Query        string
	Args         []interface{}
	Cause        error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if len(e.Args) > 0 {
		return fmt.Sprintf("[%s] %s: %v (query: %s, args: %v)", e.DatabaseType, e.Operation, e.Cause, e.Query, e.Args)
	}
	return fmt.Sprintf("[%s] %s: %v (query: %s)", e.DatabaseType, e.Operation, e.Cause, e.Query)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrInvalidQuery.
func (e *QueryError) Is(target error) bool {
	if errors.Is(target, ErrInvalidQuery) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewQueryError creates a new QueryError.
func NewQueryError(dbType dbcapabilities.DatabaseID, operation, query string, args []interface{}, cause error) *QueryError {
	return &QueryError{
		DatabaseType: dbType,
		Operation:    operation,
		Query:        query,
		Args:         args,
		Cause:        cause,
	}
}

// ValidationError is raised for malformed caller-supplied values outside the
// adapter layer.
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' (value: %v): %s", e.Field, e.Value, e.Reason)
}

// Is checks if the error is ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return errors.Is(target, ErrValidationFailed)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// ConfigurationError is raised by the factory for unknown backend kinds and by
// the connection manager for lookups of unknown instance identifiers.
type ConfigurationError struct {
	DatabaseType dbcapabilities.DatabaseID
	Field        string
	Reason       string
}

// Error implements the error interface. The backend kind is omitted when the
// failure is not tied to one, as with registry lookups of unknown instances.
func (e *ConfigurationError) Error() string {
	prefix := "invalid configuration"
	if e.DatabaseType != "" {
		prefix += " for " + string(e.DatabaseType)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: field '%s': %s", prefix, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Reason)
}

// Is checks if the error is ErrInvalidConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return errors.Is(target, ErrInvalidConfiguration)
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(dbType dbcapabilities.DatabaseID, field string, reason string) *ConfigurationError {
	return &ConfigurationError{
		DatabaseType: dbType,
		Field:        field,
		Reason:       reason,
	}
}

// WrapQueryError wraps an execution error with query context.
// If the error is already a QueryError, it returns it as-is.
func WrapQueryError(dbType dbcapabilities.DatabaseID, operation, query string, args []interface{}, err error) error {
	if err == nil {
		return nil
	}
	var qErr *QueryError
	if errors.As(err, &qErr) {
		return err
	}
	return NewQueryError(dbType, operation, query, args, err)
}

// IsConnectionError checks if an error is a connection error.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}

// IsTransactionError checks if an error is a transaction error.
func IsTransactionError(err error) bool {
	return errors.Is(err, ErrTransactionFailed)
}

// IsQueryError checks if an error is a query error.
func IsQueryError(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}

// IsConfigurationError checks if an error is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}
