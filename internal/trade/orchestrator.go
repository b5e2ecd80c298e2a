// Package trade runs the write pipelines against the market contract: buy,
// sell, claim and market creation. Each pipeline reports progress as status
// lines and aborts on the first failing step.
package trade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/ledger"
)

// EventsChannel is the signal-bus channel pipeline outcomes are published on.
const EventsChannel = "zento:trades"

// DefaultOracle resolves markets created without an explicit oracle.
const DefaultOracle = "0x337610d27c682E347C9cD60BD4b3b107C9d34dDd"

// Kind names a pipeline.
type Kind string

const (
	KindBuy    Kind = "buy"
	KindSell   Kind = "sell"
	KindClaim  Kind = "claim"
	KindCreate Kind = "create_market"
)

// StatusSink receives each status line as it is emitted.
type StatusSink func(line string)

// Notifier forwards operator alerts.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Result is the outcome of one pipeline run. Err is nil on success and
// otherwise wraps one of the domain sentinels.
type Result struct {
	RunID  string   `json:"run_id"`
	Kind   Kind     `json:"kind"`
	OK     bool     `json:"ok"`
	Status []string `json:"status"`
	TxHash string   `json:"tx_hash,omitempty"`
	// Title is set for a created market.
	Title string `json:"title,omitempty"`
	Err   error  `json:"-"`
}

// LastStatus returns the final status line, or "".
func (r Result) LastStatus() string {
	if len(r.Status) == 0 {
		return ""
	}
	return r.Status[len(r.Status)-1]
}

// Options configures an Orchestrator.
type Options struct {
	Oracle string
	// DefaultLiquidity seeds markets whose proposal has no liquidity.
	DefaultLiquidity *big.Int
	LockTTL          time.Duration
	// RefreshConcurrency bounds market-list refresh reads.
	RefreshConcurrency int
	Now                func() time.Time
}

// Deps are the collaborators of an Orchestrator. Reader and Ledger are
// required; Writer is nil for a read-only deployment; the rest are optional.
type Deps struct {
	Reader   domain.ChainReader
	Writer   domain.ChainWriter
	Ledger   *ledger.Ledger
	Cache    domain.MarketCache
	Rewards  domain.RewardService
	Locks    domain.LockManager
	Audit    domain.AuditStore
	Bus      domain.SignalBus
	Notifier Notifier
}

// Orchestrator runs the trade pipelines. One pipeline at a time runs per
// wallet; a second concurrent request fails with domain.ErrBusy.
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *slog.Logger

	balanceMu sync.RWMutex
	balance   *big.Int
}

// New creates an Orchestrator.
func New(deps Deps, opts Options, logger *slog.Logger) *Orchestrator {
	if deps.Locks == nil {
		deps.Locks = NewLocalLocks()
	}
	if opts.Oracle == "" {
		opts.Oracle = DefaultOracle
	}
	if opts.DefaultLiquidity == nil {
		opts.DefaultLiquidity = new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18))
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	if opts.RefreshConcurrency <= 0 {
		opts.RefreshConcurrency = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		logger: logger.With(slog.String("component", "trade")),
	}
}

// Wallet returns the connected wallet address, or "".
func (o *Orchestrator) Wallet() string {
	if o.deps.Writer == nil {
		return ""
	}
	return o.deps.Writer.Address()
}

// Balance returns the last balance read by a pipeline refresh, or nil.
func (o *Orchestrator) Balance() *big.Int {
	o.balanceMu.RLock()
	defer o.balanceMu.RUnlock()
	if o.balance == nil {
		return nil
	}
	return new(big.Int).Set(o.balance)
}

// run is the state of one pipeline invocation.
type run struct {
	res    Result
	sink   StatusSink
	logger *slog.Logger
	start  time.Time
}

func (o *Orchestrator) newRun(kind Kind, sink StatusSink) *run {
	id := uuid.New().String()
	return &run{
		res:    Result{RunID: id, Kind: kind},
		sink:   sink,
		logger: o.logger.With(slog.String("run_id", id), slog.String("kind", string(kind))),
		start:  time.Now(),
	}
}

func (r *run) status(line string) {
	r.res.Status = append(r.res.Status, line)
	if r.sink != nil {
		r.sink(line)
	}
}

// abort records the failure line and error and returns the result.
func (r *run) abort(line string, err error) Result {
	if line != "" {
		r.status(line)
	}
	r.res.OK = false
	r.res.Err = err
	return r.res
}

func (r *run) succeed(line string) Result {
	if line != "" {
		r.status(line)
	}
	r.res.OK = true
	r.res.Err = nil
	return r.res
}

// begin checks the wallet and takes the per-wallet pipeline lock. When ok
// is false the run has already been aborted.
func (o *Orchestrator) begin(ctx context.Context, r *run) (wallet string, unlock func(), ok bool) {
	wallet = o.Wallet()
	if wallet == "" {
		r.abort(StatusConnectWallet, fmt.Errorf("trade: %s: %w", r.res.Kind, domain.ErrWalletNotConnected))
		return "", nil, false
	}
	unlock, err := o.deps.Locks.Acquire(ctx, "wallet:"+strings.ToLower(wallet), o.opts.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			err = domain.ErrBusy
		}
		r.abort(StatusBusy, fmt.Errorf("trade: %s: %w", r.res.Kind, err))
		return "", nil, false
	}
	return wallet, unlock, true
}

// finish records the outcome in the audit log and on the signal bus. Both
// are best effort.
func (o *Orchestrator) finish(ctx context.Context, r *run, detail map[string]any) Result {
	res := r.res
	if detail == nil {
		detail = make(map[string]any)
	}
	detail["run_id"] = res.RunID
	detail["ok"] = res.OK
	detail["status"] = res.Status
	detail["duration_ms"] = time.Since(r.start).Milliseconds()
	if res.TxHash != "" {
		detail["tx_hash"] = res.TxHash
	}
	if res.Err != nil {
		detail["error"] = res.Err.Error()
	}

	// Detach from the caller so a cancelled request still gets recorded.
	ctx = context.WithoutCancel(ctx)
	event := "trade." + string(res.Kind)

	if o.deps.Audit != nil {
		if err := o.deps.Audit.Log(ctx, event, detail); err != nil {
			r.logger.Warn("trade: audit log failed", slog.String("error", err.Error()))
		}
	}
	if o.deps.Bus != nil {
		payload, err := json.Marshal(map[string]any{"event": event, "detail": detail})
		if err == nil {
			err = o.deps.Bus.Publish(ctx, EventsChannel, payload)
		}
		if err != nil {
			r.logger.Warn("trade: publish event failed", slog.String("error", err.Error()))
		}
	}
	if o.deps.Notifier != nil && (res.Kind == KindCreate || !res.OK) {
		title := "Market created"
		msg := res.Title
		if !res.OK {
			title = fmt.Sprintf("%s failed", res.Kind)
			msg = res.LastStatus()
		}
		if err := o.deps.Notifier.Notify(ctx, event, title, msg); err != nil {
			r.logger.Warn("trade: notify failed", slog.String("error", err.Error()))
		}
	}

	if res.OK {
		r.logger.Info("trade: pipeline complete", slog.String("tx_hash", res.TxHash))
	} else if res.Err != nil {
		r.logger.Warn("trade: pipeline aborted",
			slog.String("status", res.LastStatus()),
			slog.String("error", res.Err.Error()),
		)
	}
	return res
}

// readOrZero performs a read whose failure counts as zero.
func (o *Orchestrator) readOrZero(ctx context.Context, r *run, name string, read func(context.Context) (*big.Int, error)) *big.Int {
	v, err := read(ctx)
	if err != nil {
		r.logger.Warn("trade: read failed", slog.String("read", name), slog.String("error", err.Error()))
		return new(big.Int)
	}
	if v == nil {
		return new(big.Int)
	}
	return v
}

// marketState returns the cached state of a market, reading it on demand.
func (o *Orchestrator) marketState(ctx context.Context, id uint64) (domain.MarketState, error) {
	if m, ok := o.deps.Ledger.Market(id); ok {
		return m, nil
	}
	if o.deps.Cache != nil {
		if m, err := o.deps.Cache.Get(ctx, id); err == nil {
			o.deps.Ledger.UpsertMarket(m)
			return m, nil
		}
	}
	m, err := o.deps.Reader.Market(ctx, id)
	if err != nil {
		return domain.MarketState{}, fmt.Errorf("trade: read market %d: %w", id, err)
	}
	o.storeMarket(ctx, m)
	return m, nil
}
