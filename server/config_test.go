package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PROJECTS_DIR", "")
	t.Setenv("CDN_ORIGIN", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, uint16(8788), cfg.Port)
	assert.Equal(t, "https://esm.sh", cfg.CdnOrigin)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "*", cfg.CORSOrigins)
	// the projects dir is made absolute
	assert.True(t, len(cfg.ProjectsDir) > 0 && cfg.ProjectsDir[0] == '/')
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CDN_ORIGIN", "https://cdn.example.com")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, uint16(9000), cfg.Port)
	assert.Equal(t, "https://cdn.example.com", cfg.CdnOrigin)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}
