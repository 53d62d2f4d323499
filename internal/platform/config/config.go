package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	strutil "carebridge/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Environment    string
	AllowedOrigins []string
	LogFormat      string
	LogLevel       string
	SeedDemo       bool
	Auth           AuthConfig
	Postgres       PostgresConfig
	Redis          RedisConfig
	Kafka          KafkaConfig
	Audit          AuditConfig
}

// AuthConfig holds the admin token settings shared by the server and verifyctl.
type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	TokenTTL      time.Duration
}

// PostgresConfig selects the relational record store. An empty URL keeps
// records in memory.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig selects the cross-instance decision lock. An empty URL uses an
// in-process lock.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LockTTL      time.Duration
}

// KafkaConfig selects the audit transport. Without brokers audit events are
// only written to the structured log.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
	Partitions int32
	Replicas   int16
}

// AuditConfig tunes the outbox relay and operational event suppression.
type AuditConfig struct {
	RelayInterval     time.Duration
	RelayBatchSize    int
	SuppressWindow    time.Duration
	SuppressThreshold int
}

// Client configures the admin-side verification service client.
type Client struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// DevSigningKey is used when JWT_SIGNING_KEY is unset outside production.
const DevSigningKey = "dev-secret-key-change-in-production"

// Load reads .env when present. Variables already in the environment win.
func Load(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:           getEnv("VERIFY_ADDR", ":8080"),
		Environment:    strings.ToLower(getEnv("ENV", "development")),
		AllowedOrigins: strutil.SplitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		LogFormat:      getEnv("LOG_FORMAT", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SeedDemo:       getBool("SEED_DEMO", false),
		Auth:           authFromEnv(),
		Postgres: PostgresConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			LockTTL:      getDuration("DECISION_LOCK_TTL", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    strutil.SplitList(getEnv("KAFKA_BROKERS", "")),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "carebridge.audit"),
			Partitions: int32(getInt("KAFKA_AUDIT_PARTITIONS", 3)),
			Replicas:   int16(getInt("KAFKA_AUDIT_REPLICAS", 1)),
		},
		Audit: AuditConfig{
			RelayInterval:     getDuration("AUDIT_RELAY_INTERVAL", 2*time.Second),
			RelayBatchSize:    getInt("AUDIT_RELAY_BATCH_SIZE", 100),
			SuppressWindow:    getDuration("AUDIT_SUPPRESS_WINDOW", time.Minute),
			SuppressThreshold: getInt("AUDIT_SUPPRESS_THRESHOLD", 10),
		},
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
		if cfg.IsProduction() {
			cfg.LogFormat = "json"
		}
	}
	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func authFromEnv() AuthConfig {
	return AuthConfig{
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", ""),
		JWTIssuer:     getEnv("JWT_ISSUER", "carebridge"),
		JWTAudience:   getEnv("JWT_AUDIENCE", "carebridge-admin"),
		TokenTTL:      getDuration("JWT_TOKEN_TTL", 8*time.Hour),
	}
}

// AuthFromEnv returns the token settings, falling back to DevSigningKey.
func AuthFromEnv() AuthConfig {
	a := authFromEnv()
	if a.JWTSigningKey == "" {
		a.JWTSigningKey = DevSigningKey
	}
	return a
}

func (c *Server) validate() error {
	if c.Auth.JWTSigningKey == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SIGNING_KEY is required when ENV=production")
		}
		c.Auth.JWTSigningKey = DevSigningKey
	}
	if c.SeedDemo && c.Postgres.URL != "" {
		return fmt.Errorf("SEED_DEMO only applies to the in-memory store; unset DATABASE_URL")
	}
	if c.Audit.SuppressThreshold < 1 {
		return fmt.Errorf("AUDIT_SUPPRESS_THRESHOLD must be at least 1")
	}
	return nil
}

// IsProduction returns true when ENV is set to "production".
func (c Server) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}
