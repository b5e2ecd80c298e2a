// Package ledger caches the user's positions and the markets they belong to,
// and derives value, P&L and claim eligibility from them. Every cached value
// comes from an authoritative chain read; aggregates are recomputed on read.
package ledger

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/pricing"
)

// Ledger is safe for concurrent use.
type Ledger struct {
	mu        sync.RWMutex
	positions map[uint64][]domain.Position
	markets   map[uint64]domain.MarketState
	claimed   map[string]struct{}
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{
		positions: make(map[uint64][]domain.Position),
		markets:   make(map[uint64]domain.MarketState),
		claimed:   make(map[string]struct{}),
	}
}

// UpsertFromChain replaces the cached positions of marketID with an
// authoritative read. Applying the same list twice leaves the same state.
func (l *Ledger) UpsertFromChain(marketID uint64, positions []domain.Position) {
	cp := make([]domain.Position, 0, len(positions))
	for _, p := range positions {
		if p.MarketID != marketID {
			continue
		}
		cp = append(cp, p.Clone())
	}
	sort.Slice(cp, func(i, j int) bool { return cp[i].ID < cp[j].ID })

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(cp) == 0 {
		delete(l.positions, marketID)
		return
	}
	l.positions[marketID] = cp
}

// UpsertMarket caches the latest read of m.
func (l *Ledger) UpsertMarket(m domain.MarketState) {
	m.Normalize()
	l.mu.Lock()
	l.markets[m.ID] = m
	l.mu.Unlock()
}

// Market returns the cached state of a market.
func (l *Ledger) Market(id uint64) (domain.MarketState, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.markets[id]
	return m, ok
}

// Markets returns every cached market ordered by id.
func (l *Ledger) Markets() []domain.MarketState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.MarketState, 0, len(l.markets))
	for _, m := range l.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Positions returns copies of the cached positions of one market.
func (l *Ledger) Positions(marketID uint64) []domain.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src := l.positions[marketID]
	out := make([]domain.Position, len(src))
	for i, p := range src {
		out[i] = p.Clone()
	}
	return out
}

// Position looks up one cached position.
func (l *Ledger) Position(marketID, positionID uint64) (domain.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.positions[marketID] {
		if p.ID == positionID {
			return p.Clone(), true
		}
	}
	return domain.Position{}, false
}

// MarkClaimed records a successful claim before the follow-up read lands.
func (l *Ledger) MarkClaimed(marketID, positionID uint64) {
	l.mu.Lock()
	l.claimed[claimKey(marketID, positionID)] = struct{}{}
	l.mu.Unlock()
}

// IsClaimed reports whether a claim for the position has succeeded.
func (l *Ledger) IsClaimed(marketID, positionID uint64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.claimed[claimKey(marketID, positionID)]
	return ok
}

// Status classifies a position for display.
func (l *Ledger) Status(p domain.Position, m domain.MarketState) domain.PositionStatus {
	if !m.Resolved {
		return domain.PositionOpen
	}
	if !ClaimEligible(p, m) {
		return domain.PositionLost
	}
	if l.IsClaimed(p.MarketID, p.ID) {
		return domain.PositionClaimed
	}
	return domain.PositionClaimable
}

func claimKey(marketID, positionID uint64) string {
	return fmt.Sprintf("%d-%d", marketID, positionID)
}

// CurrentValue returns shares * price(outcome), in token units.
func CurrentValue(p domain.Position, m domain.MarketState) *big.Int {
	if p.Shares == nil || p.Shares.Sign() <= 0 || !p.Outcome.Valid() {
		return new(big.Int)
	}
	bp := m.PriceBp(p.Outcome)
	if bp <= 0 {
		return new(big.Int)
	}
	v := new(big.Int).Mul(p.Shares, big.NewInt(bp))
	return v.Quo(v, big.NewInt(domain.BasisPoints))
}

// Cost returns shares * avgPrice, in token units.
func Cost(p domain.Position) *big.Int {
	if p.Shares == nil || p.Shares.Sign() <= 0 || p.AvgPriceBp <= 0 {
		return new(big.Int)
	}
	c := new(big.Int).Mul(p.Shares, big.NewInt(p.AvgPriceBp))
	return c.Quo(c, big.NewInt(domain.BasisPoints))
}

// PnL is a position's unrealized profit.
type PnL struct {
	Absolute *big.Int `json:"absolute"`
	Percent  float64  `json:"percent"`
}

// ComputePnL returns value - cost and its percentage of cost. A zero cost
// yields a zero percentage.
func ComputePnL(p domain.Position, m domain.MarketState) PnL {
	cost := Cost(p)
	abs := new(big.Int).Sub(CurrentValue(p, m), cost)
	if cost.Sign() == 0 {
		return PnL{Absolute: abs}
	}
	pct := decimal.NewFromBigInt(abs, 0).
		Div(decimal.NewFromBigInt(cost, 0)).
		Mul(decimal.NewFromInt(100))
	return PnL{Absolute: abs, Percent: pct.InexactFloat64()}
}

// ClaimEligible is true iff the market resolved to the position's outcome.
func ClaimEligible(p domain.Position, m domain.MarketState) bool {
	return m.Resolved && m.Winner() == p.Outcome && p.Outcome.Valid()
}

// Holding is a cached position paired with its market.
type Holding struct {
	Position domain.Position
	Market   domain.MarketState
}

// holdings pairs every cached position with its cached market. Positions
// whose market has not been read are skipped.
func (l *Ledger) holdings() []Holding {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Holding
	for id, ps := range l.positions {
		m, ok := l.markets[id]
		if !ok {
			continue
		}
		for _, p := range ps {
			out = append(out, Holding{Position: p.Clone(), Market: m})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Market.ID != out[j].Market.ID {
			return out[i].Market.ID < out[j].Market.ID
		}
		return out[i].Position.ID < out[j].Position.ID
	})
	return out
}

// TotalValue sums CurrentValue over every holding.
func (l *Ledger) TotalValue() *big.Int {
	sum := new(big.Int)
	for _, h := range l.holdings() {
		sum.Add(sum, CurrentValue(h.Position, h.Market))
	}
	return sum
}

// TotalShares sums shares over every cached position.
func (l *Ledger) TotalShares() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sum := new(big.Int)
	for _, ps := range l.positions {
		for _, p := range ps {
			if p.Shares != nil {
				sum.Add(sum, p.Shares)
			}
		}
	}
	return sum
}

// TotalCost sums the cost basis over every holding.
func (l *Ledger) TotalCost() *big.Int {
	sum := new(big.Int)
	for _, h := range l.holdings() {
		sum.Add(sum, Cost(h.Position))
	}
	return sum
}

// UnrealizedPnL is TotalValue - TotalCost.
func (l *Ledger) UnrealizedPnL() *big.Int {
	return new(big.Int).Sub(l.TotalValue(), l.TotalCost())
}

// Record counts winning and losing positions in resolved markets.
func (l *Ledger) Record() (wins, losses int) {
	for _, h := range l.holdings() {
		if !h.Market.Resolved {
			continue
		}
		if ClaimEligible(h.Position, h.Market) {
			wins++
		} else {
			losses++
		}
	}
	return wins, losses
}

// WinRate is wins / (wins + losses) * 100, or 0 without resolved positions.
func (l *Ledger) WinRate() float64 {
	wins, losses := l.Record()
	if wins+losses == 0 {
		return 0
	}
	return float64(wins) / float64(wins+losses) * 100
}

// AvgHoldDays is the mean age of cached positions in days.
func (l *Ledger) AvgHoldDays(now time.Time) float64 {
	hs := l.holdings()
	if len(hs) == 0 {
		return 0
	}
	var total float64
	for _, h := range hs {
		total += float64(now.Unix()-h.Position.AcquiredAt) / 86400
	}
	return total / float64(len(hs))
}

// PositionView is a position as shown in the portfolio.
type PositionView struct {
	domain.Position
	MarketTitle  string                `json:"market_title"`
	Status       domain.PositionStatus `json:"status"`
	Value        *big.Int              `json:"value"`
	Cost         *big.Int              `json:"cost"`
	PnL          PnL                   `json:"pnl"`
	PriceBp      int64                 `json:"price_bp"`
	ClaimAllowed bool                  `json:"claim_allowed"`
}

// Snapshot is the portfolio view derived from the cache at one instant.
type Snapshot struct {
	Owner         string         `json:"owner"`
	Balance       *big.Int       `json:"balance"`
	NetWorth      *big.Int       `json:"net_worth"`
	TotalValue    *big.Int       `json:"total_value"`
	TotalShares   *big.Int       `json:"total_shares"`
	TotalCost     *big.Int       `json:"total_cost"`
	UnrealizedPnL *big.Int       `json:"unrealized_pnl"`
	Wins          int            `json:"wins"`
	Losses        int            `json:"losses"`
	WinRate       float64        `json:"win_rate"`
	AvgHoldDays   float64        `json:"avg_hold_days"`
	Created       []uint64       `json:"created_markets"`
	Positions     []PositionView `json:"positions"`
	TakenAt       time.Time      `json:"taken_at"`
}

// Snapshot derives the portfolio of owner. balance may be nil when unknown.
func (l *Ledger) Snapshot(owner string, balance *big.Int, now time.Time) Snapshot {
	if balance == nil {
		balance = new(big.Int)
	}
	hs := l.holdings()
	views := make([]PositionView, 0, len(hs))
	for _, h := range hs {
		eligible := ClaimEligible(h.Position, h.Market)
		status := l.Status(h.Position, h.Market)
		views = append(views, PositionView{
			Position:     h.Position,
			MarketTitle:  h.Market.Title,
			Status:       status,
			Value:        CurrentValue(h.Position, h.Market),
			Cost:         Cost(h.Position),
			PnL:          ComputePnL(h.Position, h.Market),
			PriceBp:      h.Market.PriceBp(h.Position.Outcome),
			ClaimAllowed: eligible && status == domain.PositionClaimable,
		})
	}

	var created []uint64
	for _, m := range l.Markets() {
		if owner != "" && strings.EqualFold(m.Creator, owner) {
			created = append(created, m.ID)
		}
	}

	value := l.TotalValue()
	wins, losses := l.Record()
	return Snapshot{
		Owner:         owner,
		Balance:       new(big.Int).Set(balance),
		NetWorth:      new(big.Int).Add(balance, value),
		TotalValue:    value,
		TotalShares:   l.TotalShares(),
		TotalCost:     l.TotalCost(),
		UnrealizedPnL: l.UnrealizedPnL(),
		Wins:          wins,
		Losses:        losses,
		WinRate:       l.WinRate(),
		AvgHoldDays:   l.AvgHoldDays(now),
		Created:       created,
		Positions:     views,
		TakenAt:       now,
	}
}

// Quote is a convenience for pricing a buy against the cached market.
func (l *Ledger) Quote(marketID uint64, side domain.Outcome, amount *big.Int) (pricing.Quote, bool) {
	m, ok := l.Market(marketID)
	if !ok {
		return pricing.Quote{}, false
	}
	return pricing.NewQuote(side, amount, m), true
}
