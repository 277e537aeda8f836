package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("STORAGE_DRIVER", "local")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.JWTAccessTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWTRefreshTTL)
	assert.Equal(t, time.Hour, cfg.QRValidity)
	assert.Equal(t, 72*time.Hour, cfg.DisputeWindow)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
}

func TestDurationAcceptsSecondsAndGoSyntax(t *testing.T) {
	t.Setenv("QR_VALIDITY", "1800")
	t.Setenv("DISPUTE_WINDOW", "48h")

	assert.Equal(t, 30*time.Minute, getEnvAsDuration("QR_VALIDITY", time.Hour))
	assert.Equal(t, 48*time.Hour, getEnvAsDuration("DISPUTE_WINDOW", time.Hour))
	assert.Equal(t, time.Minute, getEnvAsDuration("UNSET_DURATION_KEY", time.Minute))
}

func TestValidate(t *testing.T) {
	base := Config{
		DBDriver:      "sqlite",
		StorageDriver: "local",
		JWTSecret:     defaultJWTSecret,
		JWTAccessTTL:  time.Hour,
		JWTRefreshTTL: time.Hour,
		Environment:   "development",
	}
	assert.NoError(t, base.Validate())

	prod := base
	prod.Environment = "production"
	assert.Error(t, prod.Validate())

	pg := base
	pg.DBDriver = "postgres"
	assert.Error(t, pg.Validate())

	s3 := base
	s3.StorageDriver = "s3"
	assert.Error(t, s3.Validate())

	unknown := base
	unknown.DBDriver = "mongo"
	assert.Error(t, unknown.Validate())
}

func TestGetEnvAsSlice(t *testing.T) {
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example ,")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvAsSlice("CORS_ALLOW_ORIGINS", nil))
}
