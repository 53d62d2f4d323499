package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"VERIFY_ADDR", "ENV", "DATABASE_URL", "REDIS_URL", "KAFKA_BROKERS", "JWT_SIGNING_KEY", "LOG_FORMAT", "SEED_DEMO"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, DevSigningKey, cfg.Auth.JWTSigningKey)
	assert.Empty(t, cfg.Postgres.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "carebridge.audit", cfg.Kafka.AuditTopic)
	assert.Equal(t, 10*time.Second, cfg.Redis.LockTTL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("VERIFY_ADDR", ":9090")
	t.Setenv("ENV", "Production")
	t.Setenv("JWT_SIGNING_KEY", "prod-key")
	t.Setenv("ALLOWED_ORIGINS", "https://admin.example.com, https://ops.example.com,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DECISION_LOCK_TTL", "3s")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"https://admin.example.com", "https://ops.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3*time.Second, cfg.Redis.LockTTL)
}

func TestFromEnvValidation(t *testing.T) {
	t.Run("production requires a signing key", func(t *testing.T) {
		t.Setenv("ENV", "production")
		t.Setenv("JWT_SIGNING_KEY", "")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "JWT_SIGNING_KEY")
	})

	t.Run("demo seed needs the memory store", func(t *testing.T) {
		t.Setenv("ENV", "")
		t.Setenv("SEED_DEMO", "true")
		t.Setenv("DATABASE_URL", "postgres://localhost/carebridge")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "SEED_DEMO")
	})
}

func TestLoadDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("VERIFY_ADDR=:7000\nKAFKA_AUDIT_TOPIC=from-file\n"), 0o600))
	t.Setenv("VERIFY_ADDR", ":6000")
	t.Setenv("KAFKA_AUDIT_TOPIC", "")
	require.NoError(t, os.Unsetenv("KAFKA_AUDIT_TOPIC"))

	Load(path)

	assert.Equal(t, ":6000", os.Getenv("VERIFY_ADDR"))
	assert.Equal(t, "from-file", os.Getenv("KAFKA_AUDIT_TOPIC"))
}
