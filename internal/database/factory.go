// Package database constructs and manages adapter instances for the
// supported backends.
package database

import (
	"github.com/Zyleree/PineMCP/internal/database/mongodb"
	"github.com/Zyleree/PineMCP/internal/database/postgres"
	"github.com/Zyleree/PineMCP/internal/database/redis"
	"github.com/Zyleree/PineMCP/pkg/adapter"
	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

// NewAdapter validates the configuration and constructs the adapter for its
// database type. The returned adapter is not yet connected.
func NewAdapter(config adapter.ConnectionConfig) (adapter.DatabaseAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Validate already rejected unknown database types.
	id, _ := config.Kind()

	switch id {
	case dbcapabilities.PostgreSQL:
		return postgres.NewAdapter(config), nil
	case dbcapabilities.Redis:
		return redis.NewAdapter(config), nil
	case dbcapabilities.MongoDB:
		return mongodb.NewAdapter(config), nil
	default:
		return nil, adapter.NewConfigurationError(id, "database_type", "no adapter registered for this database type")
	}
}
