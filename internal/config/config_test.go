package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "journal.db", cfg.Database.DSN)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, []string{"bitcoin", "ethereum", "solana"}, cfg.Market.CoinIDs)
	assert.Equal(t, "BTCUSDT", cfg.Market.BinanceSymbols["bitcoin"])
	assert.Equal(t, "XAU/USD", cfg.Market.MetalPair)
	assert.Equal(t, 30*time.Second, cfg.Market.LegTimeout)
	assert.Equal(t, "market news analysis", cfg.Search.Keywords)
	assert.Equal(t, 5, cfg.Search.NumResults)
	assert.Equal(t, 24*time.Hour, cfg.Search.Window)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := `
server:
  port: 9090
gemini:
  model: gemini-test
market:
  coin_ids: [bitcoin]
  cache_ttl: 5m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o600))
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "environment overrides the file")
	assert.Equal(t, "secret", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-test", cfg.Gemini.Model)
	assert.Equal(t, []string{"bitcoin"}, cfg.Market.CoinIDs)
	assert.Equal(t, 5*time.Minute, cfg.Market.CacheTTL)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("server: [unclosed"), 0o600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	t.Run("LoadsVariables", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SEARCH_API_KEY=from-dotenv\n"), 0o600))
		t.Chdir(dir)
		t.Setenv("SEARCH_API_KEY", "")
		require.NoError(t, os.Unsetenv("SEARCH_API_KEY"))

		cfg, err := LoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "from-dotenv", cfg.Search.APIKey)
	})

	t.Run("UnreadableFile", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, ".env"), 0o700))
		t.Chdir(dir)

		_, err := LoadConfig(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ".env")
	})
}
