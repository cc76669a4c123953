package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Zyleree/PineMCP/pkg/adapter"
	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

// Manager owns a registry of connected adapter instances keyed by instance
// ID. All operations on the registry are safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	adapters map[string]adapter.DatabaseAdapter
	logger   *zap.Logger
}

// NewManager creates an empty connection manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		adapters: make(map[string]adapter.DatabaseAdapter),
		logger:   logger,
	}
}

// Connect builds the adapter for the configuration, connects it, and
// registers it. The instance ID is taken from the configuration or generated
// when absent. A connection that fails is not registered.
func (m *Manager) Connect(ctx context.Context, config adapter.ConnectionConfig) (string, error) {
	id := config.InstanceID
	if id == "" {
		id = uuid.New().String()
		config.InstanceID = id
	}

	m.mu.Lock()
	if _, exists := m.adapters[id]; exists {
		m.mu.Unlock()
		return "", adapter.NewConfigurationError(dbcapabilities.DatabaseID(config.DatabaseType),
			"instance_id", fmt.Sprintf("database connection %s already exists", id))
	}
	// Reserve the slot so concurrent Connect calls for the same ID fail fast
	// while this connection is being established.
	m.adapters[id] = nil
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		delete(m.adapters, id)
		m.mu.Unlock()
	}

	a, err := NewAdapter(config)
	if err != nil {
		release()
		return "", err
	}

	m.logger.Info("connecting to database",
		zap.String("instance_id", id),
		zap.String("database_type", string(a.Type())))

	if err := a.Connect(ctx); err != nil {
		release()
		m.logger.Error("database connection failed",
			zap.String("instance_id", id),
			zap.Error(err))
		return "", err
	}

	m.mu.Lock()
	m.adapters[id] = a
	m.mu.Unlock()

	m.logger.Info("database connected", zap.String("instance_id", id))
	return id, nil
}

// Get returns the adapter registered under id.
func (m *Manager) Get(id string) (adapter.DatabaseAdapter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.adapters[id]
	if !ok || a == nil {
		return nil, adapter.NewConfigurationError("", "instance_id",
			fmt.Sprintf("database connection %s not found", id))
	}
	return a, nil
}

// IDs returns the registered instance IDs, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.adapters))
	for id, a := range m.adapters {
		if a != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Disconnect closes the adapter registered under id and removes it. The
// adapter is removed from the registry even when its close fails.
func (m *Manager) Disconnect(ctx context.Context, id string) error {
	m.mu.Lock()
	a, ok := m.adapters[id]
	if !ok || a == nil {
		m.mu.Unlock()
		return adapter.NewConfigurationError("", "instance_id",
			fmt.Sprintf("database connection %s not found", id))
	}
	delete(m.adapters, id)
	m.mu.Unlock()

	m.logger.Info("disconnecting database", zap.String("instance_id", id))
	return a.Disconnect(ctx)
}

// DisconnectAll closes every registered adapter, continuing past failures
// and returning the first error encountered.
func (m *Manager) DisconnectAll(ctx context.Context) error {
	m.mu.Lock()
	adapters := m.adapters
	m.adapters = make(map[string]adapter.DatabaseAdapter)
	m.mu.Unlock()

	var firstErr error
	for id, a := range adapters {
		if a == nil {
			continue
		}
		if err := a.Disconnect(ctx); err != nil {
			m.logger.Error("error disconnecting database",
				zap.String("instance_id", id),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ValidateAll probes every registered adapter and returns liveness by
// instance ID.
func (m *Manager) ValidateAll(ctx context.Context) map[string]bool {
	m.mu.RLock()
	adapters := make(map[string]adapter.DatabaseAdapter, len(m.adapters))
	for id, a := range m.adapters {
		if a != nil {
			adapters[id] = a
		}
	}
	m.mu.RUnlock()

	health := make(map[string]bool, len(adapters))
	for id, a := range adapters {
		health[id] = a.ValidateConnection(ctx)
	}
	return health
}
