package db

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk_backend/platform/config"
)

func TestConfigurePool(t *testing.T) {
	poolConfig, err := pgxpool.ParseConfig("postgres://desk@localhost:5432/orderdesk")
	require.NoError(t, err)

	configurePool(poolConfig, &config.Config{DBMaxConns: 8, DBLockTimeout: "3s"})
	assert.Equal(t, int32(8), poolConfig.MaxConns)
	assert.Equal(t, int32(minIdleConns), poolConfig.MinConns)
	assert.Equal(t, "3s", poolConfig.ConnConfig.RuntimeParams["lock_timeout"])
}

func TestConfigurePoolKeepsDriverDefaults(t *testing.T) {
	poolConfig, err := pgxpool.ParseConfig("postgres://desk@localhost:5432/orderdesk?pool_max_conns=1")
	require.NoError(t, err)

	configurePool(poolConfig, &config.Config{})
	assert.Equal(t, int32(1), poolConfig.MaxConns)
	assert.Equal(t, int32(1), poolConfig.MinConns)
	_, set := poolConfig.ConnConfig.RuntimeParams["lock_timeout"]
	assert.False(t, set)
}
