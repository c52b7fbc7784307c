package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		Name:     "beanbound",
		User:     "app",
		Password: "secret",
	}

	t.Run("defaults to sslmode disable", func(t *testing.T) {
		assert.Equal(t,
			"host=db.internal port=5432 user=app password=secret dbname=beanbound sslmode=disable",
			cfg.DSN())
	})

	t.Run("honors configured ssl mode", func(t *testing.T) {
		cfg := cfg
		cfg.SSLMode = "require"
		assert.Equal(t,
			"host=db.internal port=5432 user=app password=secret dbname=beanbound sslmode=require",
			cfg.DSN())
	})
}
