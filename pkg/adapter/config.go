package adapter

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

// ConnectionConfig contains the configuration for one adapter instance.
// Immutable once the adapter is constructed.
type ConnectionConfig struct {
	// Backend kind, resolvable through dbcapabilities.ParseID.
	DatabaseType string `json:"databaseType" mapstructure:"type"`

	// Optional caller-supplied identifier; the connection manager generates
	// one when absent.
	InstanceID string `json:"instanceId,omitempty" mapstructure:"id"`

	// Connection details. URL, when set, overrides host/port/database.
	Host         string `json:"host,omitempty" mapstructure:"host"`
	Port         int    `json:"port,omitempty" mapstructure:"port"`
	DatabaseName string `json:"databaseName,omitempty" mapstructure:"database"`
	Username     string `json:"username,omitempty" mapstructure:"username"`
	Password     string `json:"password,omitempty" mapstructure:"password"`
	URL          string `json:"url,omitempty" mapstructure:"url"`
	SSL          bool   `json:"ssl,omitempty" mapstructure:"ssl"`

	// Backend-specific extras, tagged per kind. At most the variant matching
	// DatabaseType may be set.
	Postgres *PostgresOptions `json:"postgres,omitempty" mapstructure:"postgres"`
	Redis    *RedisOptions    `json:"redis,omitempty" mapstructure:"redis"`
	Mongo    *MongoOptions    `json:"mongo,omitempty" mapstructure:"mongo"`
}

// PostgresOptions holds relational-backend extras.
type PostgresOptions struct {
	SSLMode string `json:"sslMode,omitempty" mapstructure:"ssl_mode"` // verify-full, require, disable...
}

// RedisOptions holds key-value-backend extras.
type RedisOptions struct {
	DBIndex int `json:"dbIndex,omitempty" mapstructure:"db_index"` // key-space index
}

// MongoOptions holds document-backend extras.
type MongoOptions struct {
	AuthSource string `json:"authSource,omitempty" mapstructure:"auth_source"`
}

// Kind resolves the configured backend kind to its canonical ID.
func (c ConnectionConfig) Kind() (dbcapabilities.DatabaseID, bool) {
	return dbcapabilities.ParseID(c.DatabaseType)
}

// Validate checks the configuration for a known backend kind, matching
// extras, and a parseable URL when one is supplied.
func (c ConnectionConfig) Validate() error {
	id, ok := c.Kind()
	if !ok {
		return NewConfigurationError(
			dbcapabilities.DatabaseID(c.DatabaseType),
			"databaseType",
			"unknown backend kind: "+c.DatabaseType,
		)
	}

	if c.Postgres != nil && id != dbcapabilities.PostgreSQL {
		return NewConfigurationError(id, "postgres", "postgres options set for a non-postgres backend")
	}
	if c.Redis != nil && id != dbcapabilities.Redis {
		return NewConfigurationError(id, "redis", "redis options set for a non-redis backend")
	}
	if c.Mongo != nil && id != dbcapabilities.MongoDB {
		return NewConfigurationError(id, "mongo", "mongo options set for a non-mongodb backend")
	}

	if c.URL != "" {
		if _, err := url.Parse(c.URL); err != nil {
			return NewConfigurationError(id, "url", "unparseable connection URL: "+err.Error())
		}
	} else if c.Host == "" {
		return NewConfigurationError(id, "host", "either host or url must be set")
	}

	if c.Redis != nil && c.Redis.DBIndex < 0 {
		return NewConfigurationError(id, "redis.db_index", "key-space index must be non-negative")
	}

	return nil
}

// Address returns the effective host and port, preferring the connection URL
// and falling back to the backend's default port when unset.
func (c ConnectionConfig) Address() (string, int) {
	host, port := c.Host, c.Port
	if c.URL != "" {
		if u, err := url.Parse(c.URL); err == nil && u.Host != "" {
			host = u.Hostname()
			if p, err := strconv.Atoi(u.Port()); err == nil {
				port = p
			}
		}
	}
	if port == 0 {
		if id, ok := c.Kind(); ok {
			port = dbcapabilities.MustGet(id).DefaultPort
		}
	}
	return host, port
}

// EffectiveDatabase returns the database or namespace name, preferring the
// path component of the connection URL.
func (c ConnectionConfig) EffectiveDatabase() string {
	if c.URL != "" {
		if u, err := url.Parse(c.URL); err == nil {
			if name := strings.TrimPrefix(u.Path, "/"); name != "" {
				return name
			}
		}
	}
	return c.DatabaseName
}
