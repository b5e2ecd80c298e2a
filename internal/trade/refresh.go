package trade

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/zento/internal/domain"
)

func (o *Orchestrator) storeMarket(ctx context.Context, m domain.MarketState) {
	o.deps.Ledger.UpsertMarket(m)
	if o.deps.Cache == nil {
		return
	}
	if err := o.deps.Cache.Set(ctx, m); err != nil {
		o.logger.Warn("trade: cache market failed",
			slog.Uint64("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}

// RefreshBalance reads the wallet balance and remembers it.
func (o *Orchestrator) RefreshBalance(ctx context.Context) (*big.Int, error) {
	wallet := o.Wallet()
	if wallet == "" {
		return nil, domain.ErrWalletNotConnected
	}
	bal, err := o.deps.Reader.Balance(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("trade: refresh balance: %w", err)
	}
	o.balanceMu.Lock()
	o.balance = new(big.Int).Set(bal)
	o.balanceMu.Unlock()
	return bal, nil
}

// RefreshMarket re-reads one market into the ledger and cache.
func (o *Orchestrator) RefreshMarket(ctx context.Context, id uint64) (domain.MarketState, error) {
	m, err := o.deps.Reader.Market(ctx, id)
	if err != nil {
		return domain.MarketState{}, fmt.Errorf("trade: refresh market %d: %w", id, err)
	}
	o.storeMarket(ctx, m)
	return m, nil
}

// RefreshMarkets re-reads every market the contract knows about.
func (o *Orchestrator) RefreshMarkets(ctx context.Context) error {
	ids, err := o.deps.Reader.MarketIDs(ctx)
	if err != nil {
		return fmt.Errorf("trade: refresh markets: %w", err)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.RefreshConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			_, err := o.RefreshMarket(gctx, id)
			return err
		})
	}
	return g.Wait()
}

// RefreshPositions re-reads the wallet's positions in one market.
func (o *Orchestrator) RefreshPositions(ctx context.Context, marketID uint64) error {
	wallet := o.Wallet()
	if wallet == "" {
		return domain.ErrWalletNotConnected
	}
	ps, err := o.deps.Reader.Positions(ctx, wallet, marketID)
	if err != nil {
		return fmt.Errorf("trade: refresh positions %d: %w", marketID, err)
	}
	o.deps.Ledger.UpsertFromChain(marketID, ps)
	return nil
}

func (o *Orchestrator) balanceTask() Task {
	return Task{Name: "balance", Run: func(ctx context.Context) error {
		_, err := o.RefreshBalance(ctx)
		return err
	}}
}

func (o *Orchestrator) marketsTask() Task {
	return Task{Name: "markets", Run: o.RefreshMarkets}
}

func (o *Orchestrator) marketTask(id uint64) Task {
	return Task{Name: "market", Run: func(ctx context.Context) error {
		_, err := o.RefreshMarket(ctx, id)
		return err
	}}
}

func (o *Orchestrator) positionsTask(id uint64) Task {
	return Task{Name: "positions", Run: func(ctx context.Context) error {
		return o.RefreshPositions(ctx, id)
	}}
}

// settle runs a post-write refresh batch. Failures are logged and
// swallowed since the write already succeeded.
func (o *Orchestrator) settle(ctx context.Context, r *run, tasks ...Task) {
	s := SettleAll(context.WithoutCancel(ctx), tasks...)
	for name, err := range s.Errors {
		r.logger.Warn("trade: refresh failed",
			slog.String("task", name),
			slog.String("error", err.Error()),
		)
	}
}
