package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults().Validate() = %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
mode = "server"

[chain]
rpc_url = "http://node:8545"
chain_id = 56
call_timeout = "5s"

[trade]
default_liquidity = "25"
`)
	t.Setenv("ZENTO_CHAIN_CHAIN_ID", "97")
	t.Setenv("ZENTO_SERVER_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("ZENTO_WALLET_PRIVATE_KEY", "0xabc")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "server" {
		t.Errorf("Mode = %q", cfg.Mode)
	}
	if cfg.Chain.RPCURL != "http://node:8545" {
		t.Errorf("RPCURL = %q", cfg.Chain.RPCURL)
	}
	if cfg.Chain.ChainID != 97 {
		t.Errorf("ChainID = %d, want env override 97", cfg.Chain.ChainID)
	}
	if cfg.Chain.CallTimeout.Duration != 5*time.Second {
		t.Errorf("CallTimeout = %v", cfg.Chain.CallTimeout)
	}
	if cfg.Chain.TxTimeout.Duration != 2*time.Minute {
		t.Errorf("TxTimeout = %v, want default", cfg.Chain.TxTimeout)
	}
	if cfg.Trade.DefaultLiquidity != "25" {
		t.Errorf("DefaultLiquidity = %q", cfg.Trade.DefaultLiquidity)
	}
	if got := strings.Join(cfg.Server.CORSOrigins, ","); got != "https://a.example,https://b.example" {
		t.Errorf("CORSOrigins = %q", got)
	}
	if !cfg.Wallet.Configured() {
		t.Error("wallet from env not configured")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("Load of a missing file succeeded")
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "arbitrage"
	cfg.Chain.Oracle = "not-an-address"
	cfg.Trade.DefaultLiquidity = "-1"
	cfg.Wallet.EncryptedKeyPath = "/keys/wallet.json"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate succeeded")
	}
	for _, want := range []string{
		`unknown mode "arbitrage"`,
		"chain: oracle",
		"trade: default_liquidity",
		"wallet: key_password",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "0xsecret"
	cfg.Server.APIKey = "key"

	out := RedactedConfig(&cfg)
	if out.Wallet.PrivateKey != redacted || out.Server.APIKey != redacted {
		t.Errorf("secrets not redacted: %+v %+v", out.Wallet, out.Server)
	}
	if out.Postgres.Password != "" {
		t.Errorf("empty secret became %q", out.Postgres.Password)
	}
	if cfg.Wallet.PrivateKey != "0xsecret" {
		t.Error("original mutated")
	}
	out.Server.CORSOrigins[0] = "x"
	if cfg.Server.CORSOrigins[0] == "x" {
		t.Error("CORSOrigins aliased")
	}
}
