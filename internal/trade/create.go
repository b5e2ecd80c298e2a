package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/zento/internal/domain"
)

// CreateMarket validates p and, when it passes, funds and creates the
// market. Validation failures are reported before any chain read. The
// success line itself belongs to the conversation, so a successful Result
// carries only the progress lines and Title.
func (o *Orchestrator) CreateMarket(ctx context.Context, p domain.Proposal, sink StatusSink) Result {
	r := o.newRun(KindCreate, sink)
	detail := map[string]any{"question": p.Question, "end_date": p.EndDate}

	_, unlock, ok := o.begin(ctx, r)
	if !ok {
		return o.finish(ctx, r, detail)
	}
	defer unlock()

	req, err := p.Validate(o.opts.Now())
	if err != nil {
		var ve *domain.ValidationError
		line := err.Error()
		if errors.As(err, &ve) {
			line = ve.Message
		}
		r.abort(line, fmt.Errorf("trade: create market: %w", err))
		return o.finish(ctx, r, detail)
	}
	if req.InitialLiquidity == nil || req.InitialLiquidity.Sign() <= 0 {
		req.InitialLiquidity = new(big.Int).Set(o.opts.DefaultLiquidity)
	}
	detail["title"] = req.Title
	detail["end_time"] = req.EndTime.Unix()
	detail["initial_liquidity"] = req.InitialLiquidity.String()
	r.logger = r.logger.With(slog.String("title", req.Title))

	o.create(ctx, r, req)
	return o.finish(ctx, r, detail)
}

type createReads struct {
	balance, allowance, fee, minLiquidity *big.Int
}

func (o *Orchestrator) create(ctx context.Context, r *run, req domain.CreateMarketRequest) {
	wallet := o.Wallet()
	r.status(StatusPreparingMarket)

	var rd createReads
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { rd.balance, err = o.deps.Reader.Balance(gctx, wallet); return })
	g.Go(func() (err error) { rd.allowance, err = o.deps.Reader.Allowance(gctx, wallet); return })
	g.Go(func() (err error) { rd.fee, err = o.deps.Reader.CreationFee(gctx); return })
	g.Go(func() (err error) { rd.minLiquidity, err = o.deps.Reader.MinInitialLiquidity(gctx); return })
	if err := g.Wait(); err != nil {
		r.abort(StatusTransactionFailed, fmt.Errorf("trade: create market: read: %w", err))
		return
	}
	for _, v := range []**big.Int{&rd.balance, &rd.allowance, &rd.fee, &rd.minLiquidity} {
		if *v == nil {
			*v = new(big.Int)
		}
	}

	if req.InitialLiquidity.Cmp(rd.minLiquidity) < 0 {
		r.abort(needLiquidity(rd.minLiquidity), fmt.Errorf("trade: create market: liquidity below minimum: %w", domain.ErrValidation))
		return
	}
	total := new(big.Int).Add(req.InitialLiquidity, rd.fee)
	if rd.balance.Cmp(total) < 0 {
		r.abort(StatusInsufficientBalance, fmt.Errorf("trade: create market: %w", domain.ErrInsufficientFunds))
		return
	}

	// No cancellation once the first write is sent.
	ctx = context.WithoutCancel(ctx)

	if rd.allowance.Cmp(total) < 0 {
		if _, err := o.deps.Writer.Approve(ctx, total); err != nil {
			r.abort(StatusApprovalFailed, errors.Join(domain.ErrApprovalFailed, err))
			return
		}
		r.status(StatusApproved)

		after, err := o.deps.Reader.Allowance(ctx, wallet)
		if err != nil {
			r.abort(StatusTransactionFailed, fmt.Errorf("trade: create market: read allowance: %w", err))
			return
		}
		if after == nil || after.Cmp(total) < 0 {
			r.abort(StatusApprovalNotApplied, fmt.Errorf("trade: create market: allowance %s below %s: %w", after, total, domain.ErrApprovalFailed))
			return
		}
	}

	r.status(StatusCreatingMarket)
	rcpt, err := o.deps.Writer.CreateMarket(ctx, req, o.opts.Oracle)
	if err != nil {
		r.abort(classifyRejection(err, rd.minLiquidity, StatusCreateFailed), fmt.Errorf("trade: create market: %w", err))
		return
	}
	r.res.TxHash = rcpt.Hash
	r.res.Title = req.Title

	o.settle(ctx, r, o.balanceTask(), o.marketsTask())
	r.succeed("")
}
