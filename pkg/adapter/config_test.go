package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

func TestConnectionConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  ConnectionConfig
		wantErr string
	}{
		{
			name:   "valid postgres",
			config: ConnectionConfig{DatabaseType: "postgres", Host: "localhost"},
		},
		{
			name:   "valid via alias",
			config: ConnectionConfig{DatabaseType: "postgresql", Host: "localhost"},
		},
		{
			name:   "valid via url only",
			config: ConnectionConfig{DatabaseType: "mongodb", URL: "mongodb://localhost:27017/app"},
		},
		{
			name:    "unknown kind",
			config:  ConnectionConfig{DatabaseType: "sqlite", Host: "localhost"},
			wantErr: "unknown backend kind",
		},
		{
			name:    "neither host nor url",
			config:  ConnectionConfig{DatabaseType: "redis"},
			wantErr: "either host or url",
		},
		{
			name: "extras for wrong kind",
			config: ConnectionConfig{
				DatabaseType: "postgres",
				Host:         "localhost",
				Redis:        &RedisOptions{DBIndex: 1},
			},
			wantErr: "non-redis backend",
		},
		{
			name: "negative key-space index",
			config: ConnectionConfig{
				DatabaseType: "redis",
				Host:         "localhost",
				Redis:        &RedisOptions{DBIndex: -2},
			},
			wantErr: "non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConnectionConfigAddress(t *testing.T) {
	t.Run("url overrides host and port", func(t *testing.T) {
		c := ConnectionConfig{
			DatabaseType: "postgres",
			Host:         "ignored",
			Port:         9999,
			URL:          "postgres://real-host:6543/app",
		}
		host, port := c.Address()
		assert.Equal(t, "real-host", host)
		assert.Equal(t, 6543, port)
	})

	t.Run("default port from capabilities", func(t *testing.T) {
		c := ConnectionConfig{DatabaseType: "redis", Host: "cache.local"}
		host, port := c.Address()
		assert.Equal(t, "cache.local", host)
		assert.Equal(t, dbcapabilities.MustGet(dbcapabilities.Redis).DefaultPort, port)
	})
}

func TestConnectionConfigEffectiveDatabase(t *testing.T) {
	c := ConnectionConfig{DatabaseType: "mongodb", DatabaseName: "fallback", URL: "mongodb://h:27017/primary"}
	assert.Equal(t, "primary", c.EffectiveDatabase())

	c.URL = ""
	assert.Equal(t, "fallback", c.EffectiveDatabase())
}
