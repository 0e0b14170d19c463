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
		"BILLING_APP_NAME":                os.Getenv("BILLING_APP_NAME"),
		"BILLING_APP_ENV":                 os.Getenv("BILLING_APP_ENV"),
		"BILLING_DATABASE_HOST":           os.Getenv("BILLING_DATABASE_HOST"),
		"BILLING_DATABASE_PORT":           os.Getenv("BILLING_DATABASE_PORT"),
		"BILLING_DATABASE_USER":           os.Getenv("BILLING_DATABASE_USER"),
		"BILLING_DATABASE_PASSWORD":       os.Getenv("BILLING_DATABASE_PASSWORD"),
		"BILLING_DATABASE_DBNAME":         os.Getenv("BILLING_DATABASE_DBNAME"),
		"BILLING_DATABASE_SSLMODE":        os.Getenv("BILLING_DATABASE_SSLMODE"),
		"BILLING_SCHEDULER_TICK_INTERVAL": os.Getenv("BILLING_SCHEDULER_TICK_INTERVAL"),
		"BILLING_QUEUE_WORKER_COUNT":      os.Getenv("BILLING_QUEUE_WORKER_COUNT"),
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

		assert.Equal(t, "billing-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "billing", cfg.Database.DBName)
		assert.Equal(t, 20*time.Second, cfg.Scheduler.TickInterval)
		assert.Equal(t, 100, cfg.Scheduler.BatchSize)
		assert.Equal(t, 4, cfg.Queue.WorkerCount)
		assert.Equal(t, 5*time.Minute, cfg.Queue.StaleClaimAfter)
		assert.Equal(t, 7, cfg.Dunning.DefaultIntervalDays)
		assert.Equal(t, 3, cfg.Dunning.NotifyBeforeDays)
	})

	t.Run("loads values from environment variables with BILLING prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("BILLING_APP_NAME", "test-app")
		os.Setenv("BILLING_DATABASE_HOST", "testdb.local")
		os.Setenv("BILLING_DATABASE_PORT", "5433")
		os.Setenv("BILLING_SCHEDULER_TICK_INTERVAL", "45s")
		os.Setenv("BILLING_QUEUE_WORKER_COUNT", "8")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 45*time.Second, cfg.Scheduler.TickInterval)
		assert.Equal(t, 8, cfg.Queue.WorkerCount)
	})

	t.Run("rejects production config without database password", func(t *testing.T) {
		clearEnv()
		os.Setenv("BILLING_APP_ENV", "production")
		os.Setenv("BILLING_DATABASE_SSLMODE", "require")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestDatabaseConfigDSN(t *testing.T) {
	t.Run("escapes credentials in the connection string", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "p@ss/word",
			DBName:   "billing",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "postgres://")
		assert.Contains(t, dsn, "p%40ss%2Fword")
		assert.Contains(t, dsn, "sslmode=disable")
	})
}
