package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zyleree/PineMCP/pkg/adapter"
	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

func TestNewAdapter(t *testing.T) {
	tests := []struct {
		name   string
		config adapter.ConnectionConfig
		want   dbcapabilities.DatabaseID
	}{
		{
			name: "postgres",
			config: adapter.ConnectionConfig{
				DatabaseType: "postgres",
				Host:         "localhost",
				DatabaseName: "app",
			},
			want: dbcapabilities.PostgreSQL,
		},
		{
			name: "postgres alias",
			config: adapter.ConnectionConfig{
				DatabaseType: "postgresql",
				Host:         "localhost",
				DatabaseName: "app",
			},
			want: dbcapabilities.PostgreSQL,
		},
		{
			name: "redis",
			config: adapter.ConnectionConfig{
				DatabaseType: "redis",
				Host:         "localhost",
			},
			want: dbcapabilities.Redis,
		},
		{
			name: "mongodb from url",
			config: adapter.ConnectionConfig{
				DatabaseType: "mongodb",
				URL:          "mongodb://localhost:27017/app",
			},
			want: dbcapabilities.MongoDB,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAdapter(tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Type())
			assert.False(t, a.IsConnected())
		})
	}
}

func TestNewAdapterRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config adapter.ConnectionConfig
	}{
		{
			name:   "unknown type",
			config: adapter.ConnectionConfig{DatabaseType: "cassandra", Host: "localhost"},
		},
		{
			name:   "missing host and url",
			config: adapter.ConnectionConfig{DatabaseType: "postgres"},
		},
		{
			name: "options for the wrong kind",
			config: adapter.ConnectionConfig{
				DatabaseType: "redis",
				Host:         "localhost",
				Postgres:     &adapter.PostgresOptions{SSLMode: "disable"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAdapter(tt.config)
			require.Error(t, err)
			assert.Nil(t, a)
			assert.True(t, adapter.IsConfigurationError(err))
		})
	}
}
