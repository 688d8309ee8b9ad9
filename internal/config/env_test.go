package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/clausewise")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "stub", cfg.AuthMode)
	assert.Equal(t, "workflow", cfg.AIProvider)
	assert.Equal(t, 24*time.Hour, cfg.SelectionTTL)
	assert.Equal(t, int64(25<<20), cfg.MaxUploadBytes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/clausewise")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SELECTION_TTL", "2h")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("REFERENCE_TOP_K", "nope")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.SelectionTTL)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, 6, cfg.ReferenceTopK)
}

func TestLoadRejectsIncompleteConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/clausewise")
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_SECRET", "")
	_, err = Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}
