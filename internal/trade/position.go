package trade

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/ledger"
	"github.com/alanyoungcy/zento/internal/pricing"
)

// SellRequest sells Shares of one position. A nil Shares sells the whole
// position; a nil MinPrice is derived from the current price less
// SlippageBps (pricing.FloorBps when zero).
type SellRequest struct {
	MarketID    uint64
	PositionID  uint64
	Shares      *big.Int
	MinPrice    *big.Int
	SlippageBps int64
}

// ClaimRequest claims the winnings of one position.
type ClaimRequest struct {
	MarketID   uint64
	PositionID uint64
}

// Sell runs the sell pipeline and refreshes balance, market and positions
// before returning.
func (o *Orchestrator) Sell(ctx context.Context, req SellRequest, sink StatusSink) Result {
	r := o.newRun(KindSell, sink)
	r.logger = r.logger.With(
		slog.Uint64("market_id", req.MarketID),
		slog.Uint64("position_id", req.PositionID),
	)
	wallet, unlock, ok := o.begin(ctx, r)
	if !ok {
		return o.finish(ctx, r, positionDetail(req.MarketID, req.PositionID))
	}
	defer unlock()

	o.sell(ctx, r, wallet, req)
	return o.finish(ctx, r, positionDetail(req.MarketID, req.PositionID))
}

func (o *Orchestrator) sell(ctx context.Context, r *run, wallet string, req SellRequest) {
	pos, ok := o.position(ctx, r, req.MarketID, req.PositionID)
	if !ok {
		r.abort(StatusPositionNotFound, fmt.Errorf("trade: sell: position %d: %w", req.PositionID, domain.ErrNotFound))
		return
	}
	held := pos.Shares
	if held == nil {
		held = new(big.Int)
	}
	shares := req.Shares
	if shares == nil {
		shares = held
	}
	if shares.Sign() <= 0 || shares.Cmp(held) > 0 {
		r.abort(StatusNotEnoughShares, fmt.Errorf("trade: sell: %w", domain.ErrValidation))
		return
	}

	minPrice := req.MinPrice
	if minPrice == nil {
		price, err := o.deps.Reader.OutcomePrice(ctx, req.MarketID, pos.Outcome)
		if err != nil || price == nil || price.Sign() == 0 {
			if err != nil {
				r.logger.Warn("trade: read failed", slog.String("read", "price"), slog.String("error", err.Error()))
			}
			r.abort(StatusNoPrice, fmt.Errorf("trade: sell: %w", domain.ErrPriceUnavailable))
			return
		}
		bound := req.SlippageBps
		if bound <= 0 {
			bound = pricing.FloorBps
		}
		minPrice = pricing.MinPrice(price, bound)
	}

	ctx = context.WithoutCancel(ctx)
	rcpt, err := o.deps.Writer.SellPosition(ctx, req.MarketID, req.PositionID, shares, minPrice)
	if err != nil {
		r.abort(StatusSellFailed, fmt.Errorf("trade: sell: %w", err))
		return
	}
	r.res.TxHash = rcpt.Hash

	o.settle(ctx, r,
		o.balanceTask(),
		o.marketTask(req.MarketID),
		o.positionsTask(req.MarketID),
	)
	r.succeed(fmt.Sprintf(statusSoldFmt, pricing.FromWei(shares).String()))
}

// Claim runs the claim pipeline. The position is marked claimed as soon as
// the write confirms, before the refresh lands.
func (o *Orchestrator) Claim(ctx context.Context, req ClaimRequest, sink StatusSink) Result {
	r := o.newRun(KindClaim, sink)
	r.logger = r.logger.With(
		slog.Uint64("market_id", req.MarketID),
		slog.Uint64("position_id", req.PositionID),
	)
	_, unlock, ok := o.begin(ctx, r)
	if !ok {
		return o.finish(ctx, r, positionDetail(req.MarketID, req.PositionID))
	}
	defer unlock()

	o.claim(ctx, r, req)
	return o.finish(ctx, r, positionDetail(req.MarketID, req.PositionID))
}

func (o *Orchestrator) claim(ctx context.Context, r *run, req ClaimRequest) {
	pos, ok := o.position(ctx, r, req.MarketID, req.PositionID)
	if !ok {
		r.abort(StatusPositionNotFound, fmt.Errorf("trade: claim: position %d: %w", req.PositionID, domain.ErrNotFound))
		return
	}
	// Resolution must be observed on a fresh read; the cache is a fallback.
	m, err := o.RefreshMarket(ctx, req.MarketID)
	if err != nil {
		r.logger.Warn("trade: read failed", slog.String("read", "market"), slog.String("error", err.Error()))
		m, err = o.marketState(ctx, req.MarketID)
	}
	if err != nil {
		r.abort(StatusClaimFailed, fmt.Errorf("trade: claim: %w", err))
		return
	}
	if !ledger.ClaimEligible(pos, m) || o.deps.Ledger.IsClaimed(req.MarketID, req.PositionID) {
		r.abort(StatusNothingToClaim, fmt.Errorf("trade: claim: %w", domain.ErrNotClaimable))
		return
	}

	ctx = context.WithoutCancel(ctx)
	rcpt, err := o.deps.Writer.ClaimWinnings(ctx, req.MarketID, req.PositionID)
	if err != nil {
		r.abort(StatusClaimFailed, fmt.Errorf("trade: claim: %w", err))
		return
	}
	r.res.TxHash = rcpt.Hash
	o.deps.Ledger.MarkClaimed(req.MarketID, req.PositionID)

	o.settle(ctx, r,
		o.balanceTask(),
		o.marketTask(req.MarketID),
		o.positionsTask(req.MarketID),
	)
	r.succeed(StatusClaimed)
}

// position looks a position up in the ledger, reading the market's
// positions once when it is not cached.
func (o *Orchestrator) position(ctx context.Context, r *run, marketID, positionID uint64) (domain.Position, bool) {
	if p, ok := o.deps.Ledger.Position(marketID, positionID); ok {
		return p, true
	}
	if err := o.RefreshPositions(ctx, marketID); err != nil {
		r.logger.Warn("trade: read failed", slog.String("read", "positions"), slog.String("error", err.Error()))
		return domain.Position{}, false
	}
	return o.deps.Ledger.Position(marketID, positionID)
}

func positionDetail(marketID, positionID uint64) map[string]any {
	return map[string]any{
		"market_id":   marketID,
		"position_id": positionID,
	}
}
