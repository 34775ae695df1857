package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NEGOCIO_NOMBRE", "")
	t.Setenv("PORT", "9001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "https://wa.me/", cfg.WhatsAppURL)
	assert.Equal(t, 8, cfg.JWTExpirationHours)
}

func TestLocation_Fallback(t *testing.T) {
	cfg := &Config{ZonaHoraria: "No/Existe"}
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoad_RedisVacioLoDesactiva(t *testing.T) {
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.RedisURL)
}
