package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"MEMBIT_API_KEY", "MEMBIT_MCP_URL", "FLOWISE_API_URL", "FLOWISE_API_KEY", "FLOWISE_CHATFLOW_ID", "SERVER_PORT", "PORT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.membit.ai/v1", cfg.Membit.BaseURL)
	assert.Empty(t, cfg.Membit.APIKey)
	assert.Empty(t, cfg.Membit.MCPURL)
	assert.Empty(t, cfg.Flowise.URL)
	assert.Equal(t, 10*time.Second, cfg.Membit.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Flowise.Timeout)
	assert.Equal(t, 12, cfg.Membit.MockCount)
	assert.Equal(t, []string{"*"}, cfg.Server.CorsOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MEMBIT_API_KEY", "secret")
	t.Setenv("MEMBIT_API_BASE", "https://example.test/v2/")
	t.Setenv("FLOWISE_TIMEOUT", "3s")
	t.Setenv("SERVER_CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Membit.APIKey)
	assert.Equal(t, "https://example.test/v2", cfg.Membit.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Flowise.Timeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CorsOrigins)
}

func TestLoadRejectsBadMockCount(t *testing.T) {
	t.Setenv("TRENDS_MOCK_COUNT", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLogValueHidesSecrets(t *testing.T) {
	cfg := Config{Membit: MembitConfig{APIKey: "top-secret"}}
	assert.NotContains(t, cfg.LogValue().String(), "top-secret")
}
