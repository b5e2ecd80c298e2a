package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/ledger"
)

// PortfolioSource reads the wallet's state from the chain into the ledger.
type PortfolioSource interface {
	Wallet() string
	Balance() *big.Int
	RefreshBalance(ctx context.Context) (*big.Int, error)
	RefreshMarkets(ctx context.Context) error
	RefreshPositions(ctx context.Context, marketID uint64) error
}

// PortfolioService builds the wallet's portfolio view.
type PortfolioService struct {
	ledger *ledger.Ledger
	source PortfolioSource
	now    func() time.Time
	logger *slog.Logger
}

// NewPortfolioService creates a PortfolioService.
func NewPortfolioService(l *ledger.Ledger, source PortfolioSource, logger *slog.Logger) *PortfolioService {
	return &PortfolioService{
		ledger: l,
		source: source,
		now:    time.Now,
		logger: logger.With(slog.String("component", "portfolio_service")),
	}
}

// Refresh re-reads the balance, every market and the wallet's positions in
// each. Individual read failures are logged; the first one is returned
// after everything else has been attempted.
func (s *PortfolioService) Refresh(ctx context.Context) error {
	if s.source.Wallet() == "" {
		return fmt.Errorf("portfolio_service: refresh: %w", domain.ErrWalletNotConnected)
	}
	var first error
	keep := func(err error) {
		if err == nil {
			return
		}
		s.logger.WarnContext(ctx, "portfolio_service: refresh step failed", slog.String("error", err.Error()))
		if first == nil {
			first = err
		}
	}

	_, err := s.source.RefreshBalance(ctx)
	keep(err)
	keep(s.source.RefreshMarkets(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, m := range s.ledger.Markets() {
		g.Go(func() error {
			if err := s.source.RefreshPositions(gctx, m.ID); err != nil {
				s.logger.WarnContext(gctx, "portfolio_service: positions refresh failed",
					slog.Uint64("market_id", m.ID),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
	return first
}

// Snapshot returns the portfolio view, refreshing it first when asked.
func (s *PortfolioService) Snapshot(ctx context.Context, refresh bool) (ledger.Snapshot, error) {
	wallet := s.source.Wallet()
	if wallet == "" {
		return ledger.Snapshot{}, fmt.Errorf("portfolio_service: snapshot: %w", domain.ErrWalletNotConnected)
	}
	if refresh || s.source.Balance() == nil {
		if err := s.Refresh(ctx); err != nil {
			s.logger.WarnContext(ctx, "portfolio_service: serving partially refreshed snapshot",
				slog.String("error", err.Error()),
			)
		}
	}
	return s.ledger.Snapshot(wallet, s.source.Balance(), s.now()), nil
}

// Positions returns the cached positions of one market.
func (s *PortfolioService) Positions(ctx context.Context, marketID uint64, refresh bool) ([]ledger.PositionView, error) {
	if refresh {
		if err := s.source.RefreshPositions(ctx, marketID); err != nil {
			return nil, fmt.Errorf("portfolio_service: positions %d: %w", marketID, err)
		}
	}
	snap := s.ledger.Snapshot(s.source.Wallet(), s.source.Balance(), s.now())
	out := make([]ledger.PositionView, 0)
	for _, v := range snap.Positions {
		if v.Position.MarketID == marketID {
			out = append(out, v)
		}
	}
	return out, nil
}
