// Package server exposes the trading and proposal services over HTTP and a
// WebSocket event stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/server/handler"
	"github.com/alanyoungcy/zento/internal/server/middleware"
	"github.com/alanyoungcy/zento/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// APIKey enables authentication when set.
	APIKey     string
	RateLimit  int
	RateWindow time.Duration
	// Limiter backs RateLimit. Nil uses an in-process limiter.
	Limiter domain.RateLimiter
}

// Handlers aggregates the HTTP handlers. Audit may be nil when no audit
// store is configured.
type Handlers struct {
	Health        *handler.HealthHandler
	Status        *handler.StatusHandler
	Markets       *handler.MarketHandler
	Trades        *handler.TradeHandler
	Portfolio     *handler.PortfolioHandler
	Conversations *handler.ConversationHandler
	Audit         *handler.AuditHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// NewServer registers every route and wraps the mux in the middleware
// chain: CORS, logging, rate limiting, then auth.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)

	mux.HandleFunc("POST /api/trades/buy", handlers.Trades.Buy)
	mux.HandleFunc("POST /api/trades/sell", handlers.Trades.Sell)
	mux.HandleFunc("POST /api/trades/claim", handlers.Trades.Claim)

	mux.HandleFunc("GET /api/portfolio", handlers.Portfolio.GetPortfolio)
	mux.HandleFunc("GET /api/positions", handlers.Portfolio.ListPositions)

	conv := handlers.Conversations
	mux.HandleFunc("POST /api/conversations", conv.Start)
	mux.HandleFunc("GET /api/conversations/{id}", conv.Get)
	mux.HandleFunc("POST /api/conversations/{id}/messages", conv.Send)
	mux.HandleFunc("POST /api/conversations/{id}/select", conv.Select)
	mux.HandleFunc("POST /api/conversations/{id}/custom", conv.StartCustom)
	mux.HandleFunc("PATCH /api/conversations/{id}/proposal", conv.Edit)
	mux.HandleFunc("POST /api/conversations/{id}/submit", conv.Submit)
	mux.HandleFunc("POST /api/conversations/{id}/cancel", conv.Cancel)
	mux.HandleFunc("POST /api/conversations/{id}/reset", conv.Reset)

	if handlers.Audit != nil {
		mux.HandleFunc("GET /api/audit", handlers.Audit.ListAudit)
	}
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, "/api/health")(h)
	if cfg.RateLimit > 0 && cfg.RateWindow > 0 {
		limiter := cfg.Limiter
		if limiter == nil {
			limiter = middleware.NewLocalRateLimiter()
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	// Trade routes wait for on-chain receipts, so writes get a long deadline.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		handler:    h,
		logger:     logger,
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
