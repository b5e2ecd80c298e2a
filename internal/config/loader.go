package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML file at path over Defaults, loads .env if present and
// applies ZENTO_* overrides. The result has not been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites fields whose ZENTO_* variable is set, so
// secrets can be injected at deploy time.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "ZENTO_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "ZENTO_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "ZENTO_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "ZENTO_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "ZENTO_CHAIN_CHAIN_ID")
	setStr(&cfg.Chain.MarketAddress, "ZENTO_CHAIN_MARKET_ADDRESS")
	setStr(&cfg.Chain.TokenAddress, "ZENTO_CHAIN_TOKEN_ADDRESS")
	setStr(&cfg.Chain.Oracle, "ZENTO_CHAIN_ORACLE")
	setDuration(&cfg.Chain.CallTimeout, "ZENTO_CHAIN_CALL_TIMEOUT")
	setDuration(&cfg.Chain.TxTimeout, "ZENTO_CHAIN_TX_TIMEOUT")
	setInt(&cfg.Chain.ReadAttempts, "ZENTO_CHAIN_READ_ATTEMPTS")
	setDuration(&cfg.Chain.ReadBackoff, "ZENTO_CHAIN_READ_BACKOFF")
	setDuration(&cfg.Chain.SyncInterval, "ZENTO_CHAIN_SYNC_INTERVAL")

	// ── Assistant / rewards ──
	setStr(&cfg.Assistant.BaseURL, "ZENTO_ASSISTANT_BASE_URL")
	setDuration(&cfg.Assistant.Timeout, "ZENTO_ASSISTANT_TIMEOUT")
	setStr(&cfg.Rewards.BaseURL, "ZENTO_REWARDS_BASE_URL")
	setStr(&cfg.Rewards.APIKey, "ZENTO_REWARDS_API_KEY")
	setDuration(&cfg.Rewards.Timeout, "ZENTO_REWARDS_TIMEOUT")

	// ── Trade ──
	setStr(&cfg.Trade.DefaultLiquidity, "ZENTO_TRADE_DEFAULT_LIQUIDITY")
	setStr(&cfg.Trade.UserID, "ZENTO_TRADE_USER_ID")
	setDuration(&cfg.Trade.LockTTL, "ZENTO_TRADE_LOCK_TTL")
	setInt(&cfg.Trade.RefreshConcurrency, "ZENTO_TRADE_REFRESH_CONCURRENCY")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ZENTO_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ZENTO_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ZENTO_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ZENTO_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ZENTO_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ZENTO_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ZENTO_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "ZENTO_REDIS_KEY_PREFIX")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "ZENTO_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "ZENTO_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "ZENTO_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ZENTO_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ZENTO_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ZENTO_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ZENTO_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ZENTO_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ZENTO_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ZENTO_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ZENTO_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ZENTO_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ZENTO_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ZENTO_S3_REGION")
	setStr(&cfg.S3.Bucket, "ZENTO_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ZENTO_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ZENTO_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ZENTO_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ZENTO_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "ZENTO_S3_PREFIX")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ZENTO_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ZENTO_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ZENTO_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ZENTO_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "ZENTO_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ZENTO_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ZENTO_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ZENTO_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ZENTO_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ZENTO_MODE")
	setStr(&cfg.LogLevel, "ZENTO_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
