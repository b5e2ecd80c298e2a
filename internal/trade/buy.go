package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/pricing"
)

// BuyRequest buys Amount worth of Side shares in MarketID.
type BuyRequest struct {
	MarketID uint64
	Side     domain.Outcome
	Amount   *big.Int
}

// Buy runs the buy pipeline. It returns after the post-trade refresh batch
// has settled, so callers never observe the success line with stale state.
func (o *Orchestrator) Buy(ctx context.Context, req BuyRequest, sink StatusSink) Result {
	r := o.newRun(KindBuy, sink)
	r.logger = r.logger.With(
		slog.Uint64("market_id", req.MarketID),
		slog.String("side", req.Side.String()),
	)
	if !req.Side.Valid() || req.Amount == nil || req.Amount.Sign() <= 0 {
		return r.abort("", fmt.Errorf("trade: buy: %w", domain.ErrValidation))
	}

	wallet, unlock, ok := o.begin(ctx, r)
	if !ok {
		return o.finish(ctx, r, buyDetail(req))
	}
	defer unlock()

	o.buy(ctx, r, wallet, req)
	return o.finish(ctx, r, buyDetail(req))
}

func (o *Orchestrator) buy(ctx context.Context, r *run, wallet string, req BuyRequest) {
	var price, allowance, balance *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		price = o.readOrZero(gctx, r, "price", func(ctx context.Context) (*big.Int, error) {
			return o.deps.Reader.OutcomePrice(ctx, req.MarketID, req.Side)
		})
		return nil
	})
	g.Go(func() error {
		allowance = o.readOrZero(gctx, r, "allowance", func(ctx context.Context) (*big.Int, error) {
			return o.deps.Reader.Allowance(ctx, wallet)
		})
		return nil
	})
	g.Go(func() error {
		balance = o.readOrZero(gctx, r, "balance", func(ctx context.Context) (*big.Int, error) {
			return o.deps.Reader.Balance(ctx, wallet)
		})
		return nil
	})
	_ = g.Wait()

	if balance.Cmp(req.Amount) < 0 {
		r.abort(StatusInsufficientBalance, fmt.Errorf("trade: buy: %w", domain.ErrInsufficientFunds))
		return
	}
	if price.Sign() == 0 {
		r.abort(StatusNoPrice, fmt.Errorf("trade: buy: %w", domain.ErrPriceUnavailable))
		return
	}

	// From the first write on the pipeline runs to completion; a caller
	// going away must not hide a broadcast transaction.
	ctx = context.WithoutCancel(ctx)

	if allowance.Cmp(req.Amount) < 0 {
		r.status(StatusApproving)
		if _, err := o.deps.Writer.Approve(ctx, req.Amount); err != nil {
			r.abort(StatusApprovalFailed, errors.Join(domain.ErrApprovalFailed, err))
			return
		}
		r.status(StatusApproved)
	}

	m, err := o.marketState(ctx, req.MarketID)
	if err != nil {
		r.logger.Warn("trade: market state unavailable", slog.String("error", err.Error()))
	}
	// An unread market has no shares, which selects the empty-market bound.
	bound := pricing.SlippageBound(req.Side, req.Amount, m)
	maxPrice := pricing.MaxPrice(price, bound)
	r.logger.Debug("trade: buy guard",
		slog.String("price", price.String()),
		slog.Int64("slippage_bps", bound),
		slog.String("max_price", maxPrice.String()),
	)

	rcpt, err := o.deps.Writer.BuyPosition(ctx, req.MarketID, req.Side, req.Amount, maxPrice)
	if err != nil {
		r.abort(classifyRejection(err, nil, StatusBuyFailed), fmt.Errorf("trade: buy: %w", err))
		return
	}
	r.res.TxHash = rcpt.Hash

	tasks := []Task{
		o.balanceTask(),
		o.marketsTask(),
		o.marketTask(req.MarketID),
		o.positionsTask(req.MarketID),
	}
	if o.deps.Rewards != nil {
		amt := pricing.FromWei(req.Amount)
		tasks = append(tasks, Task{Name: "rewards", Run: func(ctx context.Context) error {
			return o.deps.Rewards.Award(ctx, domain.RewardAccrual{
				Wallet:      wallet,
				Points:      amt.InexactFloat64(),
				ActionType:  fmt.Sprintf("buy_%d", req.MarketID),
				Description: fmt.Sprintf("Bet %s USDT", amt.String()),
			})
		}})
	}
	o.settle(ctx, r, tasks...)

	r.succeed(fmt.Sprintf(statusBoughtFmt, req.Side, pricing.FormatAmount(req.Amount)))
}

func buyDetail(req BuyRequest) map[string]any {
	return map[string]any{
		"market_id": req.MarketID,
		"side":      req.Side.String(),
		"amount":    amountString(req.Amount),
	}
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
