package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	return cfg
}

func TestDefaultsValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Simulated())
	assert.False(t, cfg.HasWallet())
	assert.Equal(t, 72*time.Hour, cfg.LockPeriod())
	assert.Equal(t, 0.125, cfg.Staking.APY)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "trade"
	cfg.Chain.Mode = "ganache"
	cfg.Chain.VaultAddress = "not-an-address"
	cfg.Auth.JWTSecret = "short"
	cfg.Staking.ProtocolFee = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "config validation failed")
	assert.Contains(t, msg, `unknown mode "trade"`)
	assert.Contains(t, msg, `chain: unknown mode "ganache"`)
	assert.Contains(t, msg, "vault_address")
	assert.Contains(t, msg, "jwt_secret")
	assert.Contains(t, msg, "protocol_fee")
}

func TestValidateWalletSources(t *testing.T) {
	cfg := validConfig()
	cfg.Wallet.EncryptedKeyPath = "/tmp/key.enc"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password")

	cfg.Wallet.KeyPassword = "pw"
	cfg.Wallet.PrivateKey = "0xabc"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only one of")
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "server"

[chain]
mode = "rpc"
rpc_url = "https://sepolia.base.org"
chain_id = 84532
action_timeout = "45s"

[watcher]
interval = "10s"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("BASEMARKETS_LOG_LEVEL", "debug")
	t.Setenv("BASEMARKETS_WATCHER_ADDRESSES", " 0x88f3de49C37D55C4Cef0C9c2aC66842559AF57aB , ")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "rpc", cfg.Chain.Mode)
	assert.Equal(t, 84532, cfg.Chain.ChainID)
	assert.Equal(t, 45*time.Second, cfg.ActionTimeout())
	assert.Equal(t, 10*time.Second, cfg.Watcher.Interval.Duration)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"0x88f3de49C37D55C4Cef0C9c2aC66842559AF57aB"}, cfg.Watcher.Addresses)
	// untouched sections keep their defaults
	assert.Equal(t, DefaultStakingAddress, cfg.Chain.StakingAddress)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "full", cfg.Mode)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Wallet.PrivateKey = "deadbeef"
	cfg.Analyst.APIKey = "gem"
	cfg.Watcher.Addresses = []string{"a"}

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Wallet.PrivateKey)
	assert.Equal(t, "***", out.Auth.JWTSecret)
	assert.Equal(t, "***", out.Analyst.APIKey)
	assert.Equal(t, "", out.Redis.Password)

	out.Watcher.Addresses[0] = "b"
	assert.Equal(t, "a", cfg.Watcher.Addresses[0])
	assert.Equal(t, "deadbeef", cfg.Wallet.PrivateKey)
}
