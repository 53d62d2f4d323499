package main

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"

	"carebridge/internal/platform/config"
)

// settings is everything verifyctl reads from .env and the environment.
type settings struct {
	Client            config.Client
	Auth              config.AuthConfig
	LogLevel          string
	SuppressWindow    time.Duration
	SuppressThreshold int
}

// loadSettings reads envFile when it exists; environment variables win.
func loadSettings(envFile string) (settings, error) {
	v := viper.New()
	v.SetDefault("VERIFY_BASE_URL", "http://localhost:8080")
	v.SetDefault("VERIFY_TIMEOUT", 10*time.Second)
	v.SetDefault("JWT_ISSUER", "carebridge")
	v.SetDefault("JWT_AUDIENCE", "carebridge-admin")
	v.SetDefault("JWT_TOKEN_TTL", 8*time.Hour)
	v.SetDefault("LOG_LEVEL", "warn")
	v.SetDefault("AUDIT_SUPPRESS_WINDOW", time.Minute)
	v.SetDefault("AUDIT_SUPPRESS_THRESHOLD", 3)
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return settings{}, err
		}
	}

	s := settings{
		Client: config.Client{
			BaseURL: v.GetString("VERIFY_BASE_URL"),
			Token:   v.GetString("VERIFY_TOKEN"),
			Timeout: v.GetDuration("VERIFY_TIMEOUT"),
		},
		Auth: config.AuthConfig{
			JWTSigningKey: v.GetString("JWT_SIGNING_KEY"),
			JWTIssuer:     v.GetString("JWT_ISSUER"),
			JWTAudience:   v.GetString("JWT_AUDIENCE"),
			TokenTTL:      v.GetDuration("JWT_TOKEN_TTL"),
		},
		LogLevel:          v.GetString("LOG_LEVEL"),
		SuppressWindow:    v.GetDuration("AUDIT_SUPPRESS_WINDOW"),
		SuppressThreshold: v.GetInt("AUDIT_SUPPRESS_THRESHOLD"),
	}
	if s.Auth.JWTSigningKey == "" {
		s.Auth.JWTSigningKey = config.DevSigningKey
	}
	if s.SuppressThreshold < 1 {
		return settings{}, errors.New("AUDIT_SUPPRESS_THRESHOLD must be at least 1")
	}
	return s, nil
}
