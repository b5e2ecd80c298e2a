// Package config defines the zento configuration: a TOML file layered over
// Defaults and overridden by ZENTO_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Config is the root configuration structure.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	Chain     ChainConfig     `toml:"chain"`
	Assistant AssistantConfig `toml:"assistant"`
	Rewards   RewardsConfig   `toml:"rewards"`
	Trade     TradeConfig     `toml:"trade"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds the signing key. Without one the client is read-only
// and every write reports "connect your wallet".
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// Configured reports whether any key source is set.
func (w WalletConfig) Configured() bool {
	return w.PrivateKey != "" || w.EncryptedKeyPath != ""
}

// ChainConfig locates the node and the market and token contracts.
type ChainConfig struct {
	RPCURL        string `toml:"rpc_url"`
	ChainID       int64  `toml:"chain_id"`
	MarketAddress string `toml:"market_address"`
	TokenAddress  string `toml:"token_address"`
	// Oracle resolves markets created by this client.
	Oracle       string   `toml:"oracle"`
	CallTimeout  duration `toml:"call_timeout"`
	TxTimeout    duration `toml:"tx_timeout"`
	ReadAttempts int      `toml:"read_attempts"`
	ReadBackoff  duration `toml:"read_backoff"`
	SyncInterval duration `toml:"sync_interval"`
}

// AssistantConfig points at the market-suggestion service.
type AssistantConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
}

// RewardsConfig points at the points service. An empty BaseURL disables
// reward accrual.
type RewardsConfig struct {
	BaseURL string   `toml:"base_url"`
	APIKey  string   `toml:"api_key"`
	Timeout duration `toml:"timeout"`
}

// TradeConfig tunes the trade pipelines.
type TradeConfig struct {
	// DefaultLiquidity is the initial liquidity, in tokens, for proposals
	// that do not set one.
	DefaultLiquidity   string   `toml:"default_liquidity"`
	UserID             string   `toml:"user_id"`
	LockTTL            duration `toml:"lock_ttl"`
	RefreshConcurrency int      `toml:"refresh_concurrency"`
}

// RedisConfig holds Redis connection parameters. When disabled the process
// uses in-memory conversations and locks.
type RedisConfig struct {
	Enabled         bool     `toml:"enabled"`
	Addr            string   `toml:"addr"`
	Password        string   `toml:"password"`
	DB              int      `toml:"db"`
	PoolSize        int      `toml:"pool_size"`
	MaxRetries      int      `toml:"max_retries"`
	TLSEnabled      bool     `toml:"tls_enabled"`
	KeyPrefix       string   `toml:"key_prefix"`
	MarketTTL       duration `toml:"market_ttl"`
	ConversationTTL duration `toml:"conversation_ttl"`
}

// PostgresConfig holds audit-log database parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds object storage parameters for transcripts and audit
// exports.
type S3Config struct {
	Enabled        bool     `toml:"enabled"`
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	UseSSL         bool     `toml:"use_ssl"`
	ForcePathStyle bool     `toml:"force_path_style"`
	Prefix         string   `toml:"prefix"`
	ArchiveEvery   duration `toml:"archive_every"`
}

// duration wraps time.Duration so TOML strings like "5m" decode.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey enables bearer authentication when set.
	APIKey     string   `toml:"api_key"`
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:        "https://data-seed-prebsc-1-s1.binance.org:8545",
			ChainID:       97,
			MarketAddress: "0x0000000000000000000000000000000000000000",
			TokenAddress:  "0x0000000000000000000000000000000000000000",
			Oracle:        "0x337610d27c682E347C9cD60BD4b3b107C9d34dDd",
			CallTimeout:   duration{30 * time.Second},
			TxTimeout:     duration{2 * time.Minute},
			ReadAttempts:  3,
			ReadBackoff:   duration{500 * time.Millisecond},
			SyncInterval:  duration{30 * time.Second},
		},
		Assistant: AssistantConfig{
			BaseURL: "http://localhost:8080",
			Timeout: duration{60 * time.Second},
		},
		Rewards: RewardsConfig{
			Timeout: duration{10 * time.Second},
		},
		Trade: TradeConfig{
			DefaultLiquidity:   "10",
			UserID:             "anonymous",
			LockTTL:            duration{5 * time.Minute},
			RefreshConcurrency: 8,
		},
		Redis: RedisConfig{
			Addr:            "localhost:6379",
			PoolSize:        20,
			MaxRetries:      3,
			KeyPrefix:       "zento",
			MarketTTL:       duration{5 * time.Minute},
			ConversationTTL: duration{24 * time.Hour},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "zento",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "zento-data",
			ForcePathStyle: true,
			ArchiveEvery:   duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"trade.create_market", "trade.*"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"full":   true,
	"server": true,
	"sync":   true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid or missing values and returns one
// error listing every problem.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, server, sync)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}
	for name, addr := range map[string]string{
		"market_address": c.Chain.MarketAddress,
		"token_address":  c.Chain.TokenAddress,
		"oracle":         c.Chain.Oracle,
	} {
		if !common.IsHexAddress(addr) {
			errs = append(errs, fmt.Sprintf("chain: %s %q is not an address", name, addr))
		}
	}
	if c.Chain.ReadAttempts < 1 {
		errs = append(errs, "chain: read_attempts must be >= 1")
	}

	if c.Assistant.BaseURL == "" {
		errs = append(errs, "assistant: base_url must not be empty")
	}

	if d, err := decimal.NewFromString(c.Trade.DefaultLiquidity); err != nil || !d.IsPositive() {
		errs = append(errs, fmt.Sprintf("trade: default_liquidity %q must be a positive amount", c.Trade.DefaultLiquidity))
	}
	if c.Trade.RefreshConcurrency < 1 {
		errs = append(errs, "trade: refresh_concurrency must be >= 1")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
