package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"APP_ENV", "LOG_LEVEL", "HTTP_PORT", "REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT",
	"MAX_REQUEST_BODY_BYTES", "FRONTEND_URL", "STORE_DRIVER", "STORE_FALLBACK",
	"MONGO_URI", "MONGO_DB_NAME", "SQLITE_PATH", "DB_HOST", "DB_PORT", "DB_USER",
	"DB_PASSWORD", "DB_NAME", "REDIS_ADDR", "REDIS_PASSWORD", "CART_CACHE_TTL",
	"KAFKA_BROKERS", "CART_EVENTS_TOPIC", "STOCK_EVENTS_TOPIC", "KAFKA_GROUP_ID",
	"JWT_SECRET", "TOKEN_TTL", "BCRYPT_COST", "SHARED_SESSION", "SEED_CATALOG",
	"ADMIN_EMAIL", "ADMIN_PASSWORD",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "none.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.AppEnv)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "5000", cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int64(1<<20), cfg.MaxRequestBodySize)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Empty(t, cfg.StoreFallback)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "stock-adjustments", cfg.StockEventsTopic)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.NotEmpty(t, cfg.JWTSecret, "development gets a default secret")
	assert.False(t, cfg.SharedSession)
	assert.True(t, cfg.SeedCatalog)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("SHUTDOWN_TIMEOUT", "2")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("STORE_FALLBACK", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("SHARED_SESSION", "true")
	t.Setenv("SEED_CATALOG", "false")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, DriverMemory, cfg.StoreFallback)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.True(t, cfg.SharedSession)
	assert.False(t, cfg.SeedCatalog)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("REQUEST_TIMEOUT", "soon")
	t.Setenv("SHARED_SESSION", "maybe")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.SharedSession)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load(missingFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "cassandra")

	_, err := Load(missingFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}

func TestLoad_AdminPairMustBeComplete(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADMIN_EMAIL", "root@example.com")

	_, err := Load(missingFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_PASSWORD")
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides a variable that is present, even when empty.
	for _, k := range []string{"HTTP_PORT", "STORE_DRIVER"} {
		require.NoError(t, os.Unsetenv(k))
	}

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT=7070\nSTORE_DRIVER=memory\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.HTTPPort)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
}
