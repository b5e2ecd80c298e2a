package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/zento/internal/server"
	"github.com/alanyoungcy/zento/internal/server/handler"
	"github.com/alanyoungcy/zento/internal/server/ws"
	"github.com/alanyoungcy/zento/internal/service"
	"github.com/alanyoungcy/zento/internal/trade"
)

// shutdownTimeout bounds the HTTP server's graceful shutdown.
const shutdownTimeout = 15 * time.Second

// FullMode runs the API server, the market sync loop and, when S3 and
// Postgres are both configured, the daily audit archiver.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	g, ctx := errgroup.WithContext(ctx)

	a.startMarketSync(ctx, g, deps)
	a.startArchiver(ctx, g, deps)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}
	return ignoreCanceled(g.Wait())
}

// ServerMode runs only the API server. Markets are read on demand.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return ignoreCanceled(g.Wait())
}

// SyncMode keeps the market cache warm without serving requests.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sync mode")
	g, ctx := errgroup.WithContext(ctx)
	a.startMarketSync(ctx, g, deps)
	a.startArchiver(ctx, g, deps)
	return ignoreCanceled(g.Wait())
}

func (a *App) startMarketSync(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	interval := a.cfg.Chain.SyncInterval.Duration
	g.Go(func() error {
		return deps.Markets.Run(ctx, interval)
	})
}

func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}
	every := a.cfg.S3.ArchiveEvery.Duration
	g.Go(func() error {
		deps.Archiver.Run(ctx, every)
		return nil
	})
}

// startHTTPServer builds the handlers and WebSocket hub, and runs the server
// until ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	startedAt := time.Now().UTC()

	hub := ws.NewHub(deps.Bus, ws.Config{
		Channels:  []string{trade.EventsChannel, service.ConversationsChannel},
		Mode:      a.cfg.Mode,
		Wallet:    deps.Trader.Wallet(),
		StartedAt: startedAt,
	}, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(deps.Checks, a.logger),
		Status:        handler.NewStatusHandler(a.cfg.Mode, deps.Trader, startedAt),
		Markets:       handler.NewMarketHandler(deps.Markets, a.logger),
		Trades:        handler.NewTradeHandler(deps.Trades, a.logger),
		Portfolio:     handler.NewPortfolioHandler(deps.Portfolio, a.logger),
		Conversations: handler.NewConversationHandler(deps.Conversations, a.logger),
	}
	if deps.AuditStore != nil {
		handlers.Audit = handler.NewAuditHandler(deps.AuditStore, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
		Limiter:     deps.RateLimiter,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("app: server shutdown failed", slog.String("error", err.Error()))
		}
		return nil
	})
}

// ignoreCanceled treats a shutdown by signal as a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
