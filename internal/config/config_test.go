package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, uint32(DefaultComputeUnitLimit), cfg.ComputeUnitLimit)
	assert.Equal(t, 15*time.Second, cfg.SendMaxElapsed)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "cointools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rpc_url: https://rpc.example.com
slippage_percent: 2.5
confirm_timeout: 45s
`), 0o644))
	t.Setenv("COINTOOLS_DB_PATH", "/tmp/custom.db")
	t.Setenv("COINTOOLS_ENC_KEY", "secret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example.com", cfg.RPCURL)
	assert.Equal(t, 2.5, cfg.SlippagePercent)
	assert.Equal(t, 45*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.Equal(t, "secret", cfg.EncKey)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("COINTOOLS_RPC_URL=https://dotenv.example.com\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("COINTOOLS_RPC_URL") })

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example.com", cfg.RPCURL)
}

func TestValidateConfig(t *testing.T) {
	chdirTemp(t)

	t.Setenv("COINTOOLS_RPC_URL", "ftp://nope")
	_, err := LoadConfig("")
	assert.Error(t, err)

	t.Setenv("COINTOOLS_RPC_URL", DefaultRPCURL)
	t.Setenv("COINTOOLS_SLIPPAGE_PERCENT", "150")
	_, err = LoadConfig("")
	assert.Error(t, err)
}
