package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/zento/internal/blob/s3"
	"github.com/alanyoungcy/zento/internal/cache/redis"
	"github.com/alanyoungcy/zento/internal/config"
	"github.com/alanyoungcy/zento/internal/crypto"
	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/ledger"
	"github.com/alanyoungcy/zento/internal/notify"
	"github.com/alanyoungcy/zento/internal/platform/assistant"
	"github.com/alanyoungcy/zento/internal/platform/evm"
	"github.com/alanyoungcy/zento/internal/platform/rewards"
	"github.com/alanyoungcy/zento/internal/pricing"
	"github.com/alanyoungcy/zento/internal/server/handler"
	"github.com/alanyoungcy/zento/internal/service"
	"github.com/alanyoungcy/zento/internal/store/postgres"
	"github.com/alanyoungcy/zento/internal/trade"
)

// Dependencies bundles everything the run modes need. It is built by Wire
// and torn down by the cleanup function Wire returns.
type Dependencies struct {
	Chain  *evm.Client
	Ledger *ledger.Ledger
	Trader *trade.Orchestrator

	// Optional backends. A nil interface means the feature is off or an
	// in-process fallback is used.
	MarketCache domain.MarketCache
	Locks       domain.LockManager
	Bus         domain.SignalBus
	RateLimiter domain.RateLimiter
	AuditStore  domain.AuditStore
	BlobWriter  domain.BlobWriter
	Archiver    *s3blob.AuditArchiver
	Notifier    *notify.Notifier

	Markets       *service.MarketService
	Trades        *service.TradeService
	Portfolio     *service.PortfolioService
	Conversations *service.ConversationService

	// Checks are the health checks of every connected backend.
	Checks map[string]handler.Pinger
}

// Wire builds every dependency from cfg and returns them with a cleanup
// function that releases connections in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{
		Ledger: ledger.New(),
		Checks: make(map[string]handler.Pinger),
	}

	// --- Wallet key (optional: without one the client is read-only) ---
	key, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	switch {
	case errors.Is(err, crypto.ErrNoKey):
		logger.WarnContext(ctx, "wire: no wallet key configured, running read-only")
	case err != nil:
		return fail(fmt.Errorf("wire: wallet key: %w", err))
	}

	// --- Chain ---
	chain, closeChain, err := evm.Dial(ctx, cfg.Chain.RPCURL, evm.Options{
		ChainID:       cfg.Chain.ChainID,
		MarketAddress: cfg.Chain.MarketAddress,
		TokenAddress:  cfg.Chain.TokenAddress,
		CallTimeout:   cfg.Chain.CallTimeout.Duration,
		TxTimeout:     cfg.Chain.TxTimeout.Duration,
		ReadAttempts:  cfg.Chain.ReadAttempts,
		ReadBackoff:   cfg.Chain.ReadBackoff.Duration,
	}, key, logger)
	if err != nil {
		return fail(fmt.Errorf("wire: chain: %w", err))
	}
	closers = append(closers, closeChain)
	deps.Chain = chain
	logger.InfoContext(ctx, "wire: chain connected",
		slog.Int64("chain_id", cfg.Chain.ChainID),
		slog.String("wallet", chain.Address()),
	)

	// --- Redis (optional) ---
	var conversations domain.ConversationStore
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })
		deps.MarketCache = redis.NewMarketCache(rc, cfg.Redis.MarketTTL.Duration)
		deps.Locks = redis.NewLockManager(rc)
		deps.Bus = redis.NewSignalBus(rc)
		deps.RateLimiter = redis.NewRateLimiter(rc)
		conversations = redis.NewConversationStore(rc, cfg.Redis.ConversationTTL.Duration)
		deps.Checks["redis"] = rc.Ping
	} else {
		deps.Locks = trade.NewLocalLocks()
		deps.Bus = service.NewLocalBus()
		conversations = service.NewMemoryConversationStore()
	}

	// --- Postgres audit log (optional) ---
	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}
		deps.AuditStore = postgres.NewAuditStore(pg.Pool())
		deps.Checks["postgres"] = pg.Ping
	}

	// --- S3 archive (optional) ---
	if cfg.S3.Enabled {
		s3c, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Prefix:         cfg.S3.Prefix,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		writer := s3blob.NewWriter(s3c)
		deps.BlobWriter = writer
		if deps.AuditStore != nil {
			deps.Archiver = s3blob.NewAuditArchiver(writer, deps.AuditStore, logger)
		}
		deps.Checks["s3"] = s3c.Health
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	// --- Trade pipelines ---
	liquidity, err := pricing.ParseAmount(cfg.Trade.DefaultLiquidity)
	if err != nil {
		return fail(fmt.Errorf("wire: default liquidity: %w", err))
	}
	tdeps := trade.Deps{
		Reader: chain,
		Ledger: deps.Ledger,
		Cache:  deps.MarketCache,
		Locks:  deps.Locks,
		Audit:  deps.AuditStore,
		Bus:    deps.Bus,
	}
	if key != nil {
		tdeps.Writer = chain
	}
	if cfg.Rewards.BaseURL != "" {
		tdeps.Rewards = rewards.NewClient(cfg.Rewards.BaseURL, cfg.Rewards.APIKey, cfg.Rewards.Timeout.Duration)
	}
	if deps.Notifier != nil {
		tdeps.Notifier = deps.Notifier
	}
	deps.Trader = trade.New(tdeps, trade.Options{
		Oracle:             cfg.Chain.Oracle,
		DefaultLiquidity:   liquidity,
		LockTTL:            cfg.Trade.LockTTL.Duration,
		RefreshConcurrency: cfg.Trade.RefreshConcurrency,
	}, logger)

	// --- Services ---
	deps.Markets = service.NewMarketService(deps.Ledger, deps.MarketCache, deps.Trader, logger)
	deps.Trades = service.NewTradeService(deps.Trader, logger)
	deps.Portfolio = service.NewPortfolioService(deps.Ledger, deps.Trader, logger)
	deps.Conversations = service.NewConversationService(
		conversations,
		assistant.NewClient(cfg.Assistant.BaseURL, cfg.Assistant.Timeout.Duration),
		deps.Trader,
		deps.Locks,
		deps.BlobWriter,
		deps.Bus,
		cfg.Trade.UserID,
		logger,
	)

	return deps, cleanup, nil
}
