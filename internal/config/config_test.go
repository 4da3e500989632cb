package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bookswap/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "10", cfg.Ledger.MinTopUpAmount().String())
	assert.Equal(t, "10", cfg.Ledger.Rate().String())
	assert.Equal(t, "0.5", cfg.Ledger.Tolerance().String())
	assert.Equal(t, 15*time.Second, cfg.Verification.Telebirr.Timeout)
	assert.Equal(t, 20*time.Second, cfg.Verification.Abyssinia.Timeout)
	assert.Equal(t, "90172", cfg.Verification.Abyssinia.DefaultSuffix)
	assert.Equal(t, "local", cfg.Lock.Backend)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
ledger:
  min_topup: 20
  amount_tolerance: 0.25
verification:
  mock: true
  telebirr:
    timeout: 3s
`), 0o600))

	t.Setenv("BOOKSWAP_LEDGER_ZCOIN_PER_BIRR", "12")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Verification.Mock)
	assert.Equal(t, 3*time.Second, cfg.Verification.Telebirr.Timeout)
	assert.Equal(t, "20", cfg.Ledger.MinTopUpAmount().String())
	assert.Equal(t, "0.25", cfg.Ledger.Tolerance().String())
	assert.Equal(t, "12", cfg.Ledger.Rate().String())
}

func TestValidateRejectsBadLedger(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger.ZCoinPerBirr = 0
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Lock.Backend = "zookeeper"
	assert.Error(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
