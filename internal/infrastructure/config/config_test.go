package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"MEZZE_APP_NAME":                   os.Getenv("MEZZE_APP_NAME"),
		"MEZZE_APP_ENV":                    os.Getenv("MEZZE_APP_ENV"),
		"MEZZE_APP_PORT":                   os.Getenv("MEZZE_APP_PORT"),
		"MEZZE_DATABASE_HOST":              os.Getenv("MEZZE_DATABASE_HOST"),
		"MEZZE_DATABASE_PORT":              os.Getenv("MEZZE_DATABASE_PORT"),
		"MEZZE_DATABASE_USER":              os.Getenv("MEZZE_DATABASE_USER"),
		"MEZZE_DATABASE_PASSWORD":          os.Getenv("MEZZE_DATABASE_PASSWORD"),
		"MEZZE_DATABASE_DBNAME":            os.Getenv("MEZZE_DATABASE_DBNAME"),
		"MEZZE_DATABASE_SSLMODE":           os.Getenv("MEZZE_DATABASE_SSLMODE"),
		"MEZZE_RESOLVER_ACCEPT_THRESHOLD":  os.Getenv("MEZZE_RESOLVER_ACCEPT_THRESHOLD"),
		"MEZZE_INGESTION_SHEETS_ENABLED":   os.Getenv("MEZZE_INGESTION_SHEETS_ENABLED"),
		"MEZZE_INGESTION_SHEETS_SPREADSHEET_ID": os.Getenv("MEZZE_INGESTION_SHEETS_SPREADSHEET_ID"),
		"MEZZE_JWT_SECRET":                 os.Getenv("MEZZE_JWT_SECRET"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "mezze-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "mezze", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 0.72, cfg.Resolver.AcceptThreshold)
		assert.Equal(t, 0.08, cfg.Resolver.AmbiguityMargin)
		assert.True(t, cfg.Resolver.AutoCreateAccounts)
		assert.Equal(t, 15*time.Minute, cfg.Ingestion.RunTimeout)
		assert.Equal(t, "orders", cfg.Ingestion.Gmail.Label)
	})

	t.Run("loads values from environment variables with MEZZE prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("MEZZE_APP_NAME", "test-app")
		os.Setenv("MEZZE_APP_PORT", "9000")
		os.Setenv("MEZZE_DATABASE_HOST", "testdb.local")
		os.Setenv("MEZZE_DATABASE_PORT", "5433")
		os.Setenv("MEZZE_DATABASE_PASSWORD", "testpass")
		os.Setenv("MEZZE_RESOLVER_ACCEPT_THRESHOLD", "0.85")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, 0.85, cfg.Resolver.AcceptThreshold)
	})

	t.Run("rejects an enabled sheets source without a spreadsheet", func(t *testing.T) {
		clearEnv()
		os.Setenv("MEZZE_INGESTION_SHEETS_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "spreadsheet_id")
	})

	t.Run("production requires a jwt secret", func(t *testing.T) {
		clearEnv()
		os.Setenv("MEZZE_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret")
	})
}

func TestConfigValidation(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("resolver threshold bounds", func(t *testing.T) {
		cfg := base()
		cfg.Resolver.AcceptThreshold = 1.5
		assert.Error(t, cfg.validate())

		cfg = base()
		cfg.Resolver.AmbiguityMargin = -0.1
		assert.Error(t, cfg.validate())
	})

	t.Run("idle conns cannot exceed open conns", func(t *testing.T) {
		cfg := base()
		cfg.Database.MaxIdleConns = cfg.Database.MaxOpenConns + 1
		assert.Error(t, cfg.validate())
	})

	t.Run("archive needs a bucket when enabled", func(t *testing.T) {
		cfg := base()
		cfg.Archive.Enabled = true
		assert.Error(t, cfg.validate())

		cfg.Archive.Bucket = "mezze-raw"
		assert.NoError(t, cfg.validate())
	})
}

func TestDatabaseDSN(t *testing.T) {
	d := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "mezze",
		Password: "p@ss/word",
		DBName:   "mezze",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// Special characters in the password must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}
