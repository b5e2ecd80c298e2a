package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/pricing"
	"github.com/alanyoungcy/zento/internal/trade"
)

// Trader runs the position pipelines.
type Trader interface {
	Buy(ctx context.Context, req trade.BuyRequest, sink trade.StatusSink) trade.Result
	Sell(ctx context.Context, req trade.SellRequest, sink trade.StatusSink) trade.Result
	Claim(ctx context.Context, req trade.ClaimRequest, sink trade.StatusSink) trade.Result
}

// TradeService turns user-entered trade parameters into pipeline runs.
type TradeService struct {
	trader Trader
	logger *slog.Logger
}

// NewTradeService creates a TradeService.
func NewTradeService(trader Trader, logger *slog.Logger) *TradeService {
	return &TradeService{
		trader: trader,
		logger: logger.With(slog.String("component", "trade_service")),
	}
}

// Buy buys side of marketID with a decimal token amount such as "12.5".
func (s *TradeService) Buy(ctx context.Context, marketID uint64, side, amount string) (trade.Result, error) {
	o, ok := domain.ParseOutcome(side)
	if !ok {
		return trade.Result{}, fmt.Errorf("trade_service: outcome %q: %w", side, domain.ErrValidation)
	}
	amt, err := pricing.ParseAmount(amount)
	if err != nil {
		return trade.Result{}, fmt.Errorf("trade_service: %w", asValidation(err))
	}
	return s.trader.Buy(ctx, trade.BuyRequest{MarketID: marketID, Side: o, Amount: amt}, nil), nil
}

// Sell sells shares (decimal, empty for the whole position) of a position.
// minPrice is an optional basis-point floor.
func (s *TradeService) Sell(ctx context.Context, marketID, positionID uint64, shares string, minPriceBp int64) (trade.Result, error) {
	req := trade.SellRequest{MarketID: marketID, PositionID: positionID}
	if shares != "" {
		v, err := pricing.ParseAmount(shares)
		if err != nil {
			return trade.Result{}, fmt.Errorf("trade_service: %w", asValidation(err))
		}
		req.Shares = v
	}
	if minPriceBp > 0 {
		req.MinPrice = big.NewInt(minPriceBp)
	}
	return s.trader.Sell(ctx, req, nil), nil
}

// Claim claims the winnings of a position.
func (s *TradeService) Claim(ctx context.Context, marketID, positionID uint64) trade.Result {
	return s.trader.Claim(ctx, trade.ClaimRequest{MarketID: marketID, PositionID: positionID}, nil)
}

func asValidation(err error) error {
	if errors.Is(err, domain.ErrValidation) {
		return err
	}
	return errors.Join(domain.ErrValidation, err)
}
