package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, SessionStoreRedis, cfg.SessionStore)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.True(t, cfg.PageCache)
	assert.Equal(t, 5*time.Minute, cfg.PageCacheTTL)
	assert.False(t, cfg.StrictReads)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("PAGE_CACHE_TTL", "30s")
	t.Setenv("STRICT_READS", "true")
	t.Setenv("GIN_MODE", "release")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 30*time.Second, cfg.PageCacheTTL)
	assert.True(t, cfg.StrictReads)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdash.yaml")
	content := []byte("db_driver: sqlite\ndb_path: /tmp/tasks.db\nsession_store: cookie\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "/tmp/tasks.db", cfg.DBPath)
	assert.Equal(t, SessionStoreCookie, cfg.SessionStore)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load()
	assert.Error(t, err)
}
