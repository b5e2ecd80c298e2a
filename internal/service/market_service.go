package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"time"

	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/ledger"
	"github.com/alanyoungcy/zento/internal/pricing"
)

// MarketRefresher re-reads market state from the chain into the ledger.
type MarketRefresher interface {
	RefreshMarket(ctx context.Context, id uint64) (domain.MarketState, error)
	RefreshMarkets(ctx context.Context) error
}

// MarketService serves market state and buy quotes.
type MarketService struct {
	ledger    *ledger.Ledger
	cache     domain.MarketCache
	refresher MarketRefresher
	logger    *slog.Logger
}

// NewMarketService creates a MarketService. cache may be nil.
func NewMarketService(
	l *ledger.Ledger,
	cache domain.MarketCache,
	refresher MarketRefresher,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		ledger:    l,
		cache:     cache,
		refresher: refresher,
		logger:    logger.With(slog.String("component", "market_service")),
	}
}

// MarketView is a market with an optional buy quote.
type MarketView struct {
	Market   domain.MarketState `json:"market"`
	YesPrice string             `json:"yes_price"`
	NoPrice  string             `json:"no_price"`
	Quote    *pricing.Quote     `json:"quote,omitempty"`
}

// GetMarket returns a market from the ledger, then the cache, then the chain.
func (s *MarketService) GetMarket(ctx context.Context, id uint64) (domain.MarketState, error) {
	if m, ok := s.ledger.Market(id); ok {
		return m, nil
	}
	if s.cache != nil {
		if m, err := s.cache.Get(ctx, id); err == nil {
			s.ledger.UpsertMarket(m)
			return m, nil
		}
	}
	m, err := s.refresher.RefreshMarket(ctx, id)
	if err != nil {
		return domain.MarketState{}, fmt.Errorf("market_service: get market %d: %w", id, err)
	}
	return m, nil
}

// View returns the market and, when amount is positive, a quote for
// buying side with it.
func (s *MarketService) View(ctx context.Context, id uint64, side domain.Outcome, amount *big.Int) (MarketView, error) {
	m, err := s.GetMarket(ctx, id)
	if err != nil {
		return MarketView{}, err
	}
	v := MarketView{
		Market:   m,
		YesPrice: pricing.BpToProbability(m.YesPriceBp).StringFixed(4),
		NoPrice:  pricing.BpToProbability(m.NoPriceBp).StringFixed(4),
	}
	if side.Valid() && amount != nil && amount.Sign() > 0 {
		q, ok := s.ledger.Quote(id, side, amount)
		if !ok {
			q = pricing.NewQuote(side, amount, m)
		}
		v.Quote = &q
	}
	return v, nil
}

// List returns every cached market ordered by id.
func (s *MarketService) List() []domain.MarketState {
	ms := s.ledger.Markets()
	sort.Slice(ms, func(i, j int) bool { return ms[i].ID < ms[j].ID })
	return ms
}

// Run refreshes the market list every interval until ctx is cancelled.
func (s *MarketService) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	s.sync(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sync(ctx)
		}
	}
}

func (s *MarketService) sync(ctx context.Context) {
	if err := s.refresher.RefreshMarkets(ctx); err != nil {
		s.logger.WarnContext(ctx, "market_service: sync failed", slog.String("error", err.Error()))
		return
	}
	s.logger.DebugContext(ctx, "market_service: synced markets", slog.Int("count", len(s.ledger.Markets())))
}
