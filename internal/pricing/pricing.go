// Package pricing mirrors the market contract's price, payout and slippage
// arithmetic on the client. All inputs are fixed-point integers: token
// amounts scaled by 1e18 and prices in basis points. Invalid input yields 0.
package pricing

import (
	"math/big"

	"github.com/alanyoungcy/zento/internal/domain"
)

const (
	// FeeBps is the trading fee taken from every buy.
	FeeBps = 100
	// FeeRate is FeeBps as a fraction.
	FeeRate = float64(FeeBps) / domain.BasisPoints

	// EmptyMarketBoundBps is the slippage bound for a market with no shares,
	// where the price is undefined until the first trade.
	EmptyMarketBoundBps = 5000
	// MarginBps is added on top of the simulated price impact.
	MarginBps = 50
	// FloorBps is the minimum slippage bound.
	FloorBps = 100
)

var bpDenom = big.NewInt(domain.BasisPoints)

// Price returns the probability of side in [0,1].
func Price(side domain.Outcome, m domain.MarketState) float64 {
	bp := priceBp(side, m)
	if bp == 0 {
		return 0
	}
	return float64(bp) / domain.BasisPoints
}

// Payout returns the shares bought by amountIn after the fee:
// amountIn * (10000 - FeeBps) / priceBp.
func Payout(side domain.Outcome, amountIn *big.Int, m domain.MarketState) *big.Int {
	bp := priceBp(side, m)
	if bp == 0 || !positive(amountIn) {
		return new(big.Int)
	}
	out := new(big.Int).Mul(amountIn, big.NewInt(domain.BasisPoints-FeeBps))
	return out.Quo(out, big.NewInt(bp))
}

// PriceImpactBps simulates adding the payout to side's pool and returns how
// far the resulting pool ratio lies from the quoted price.
func PriceImpactBps(side domain.Outcome, amountIn *big.Int, m domain.MarketState) int64 {
	bp := priceBp(side, m)
	if bp == 0 || !positive(amountIn) {
		return 0
	}
	shares := Payout(side, amountIn, m)
	pool := new(big.Int).Add(m.Pool(side), shares)
	total := new(big.Int).Add(m.TotalShares(), shares)
	if total.Sign() == 0 {
		return 0
	}
	newBp := pool.Mul(pool, bpDenom)
	newBp.Quo(newBp, total)

	impact := newBp.Int64() - bp
	if impact < 0 {
		impact = -impact
	}
	return impact
}

// SlippageBound returns the tolerated price movement for a buy, in bps.
// Empty markets get EmptyMarketBoundBps; otherwise the simulated impact plus
// MarginBps, never below FloorBps.
func SlippageBound(side domain.Outcome, amountIn *big.Int, m domain.MarketState) int64 {
	if m.TotalShares().Sign() == 0 {
		return EmptyMarketBoundBps
	}
	return max(PriceImpactBps(side, amountIn, m)+MarginBps, FloorBps)
}

// MaxPrice returns floor(price * (10000 + boundBps) / 10000).
func MaxPrice(price *big.Int, boundBps int64) *big.Int {
	if !positive(price) || boundBps < 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(price, big.NewInt(domain.BasisPoints+boundBps))
	return out.Quo(out, bpDenom)
}

// MinPrice returns floor(price * (10000 - boundBps) / 10000), the sell guard.
func MinPrice(price *big.Int, boundBps int64) *big.Int {
	if !positive(price) || boundBps < 0 {
		return new(big.Int)
	}
	boundBps = min(boundBps, domain.BasisPoints)
	out := new(big.Int).Mul(price, big.NewInt(domain.BasisPoints-boundBps))
	return out.Quo(out, bpDenom)
}

// Quote bundles every estimate shown for a prospective buy.
type Quote struct {
	Side          domain.Outcome `json:"side"`
	AmountIn      *big.Int       `json:"amount_in"`
	PriceBp       int64          `json:"price_bp"`
	SharesOut     *big.Int       `json:"shares_out"`
	ImpactBps     int64          `json:"impact_bps"`
	SlippageBps   int64          `json:"slippage_bps"`
	MaxPriceBp    int64          `json:"max_price_bp"`
	FeeBps        int64          `json:"fee_bps"`
	PotentialGain *big.Int       `json:"potential_gain"`
}

// NewQuote computes a Quote for buying side with amountIn.
func NewQuote(side domain.Outcome, amountIn *big.Int, m domain.MarketState) Quote {
	bound := SlippageBound(side, amountIn, m)
	shares := Payout(side, amountIn, m)
	gain := new(big.Int)
	if positive(amountIn) {
		gain.Sub(shares, amountIn)
	}
	bp := priceBp(side, m)
	return Quote{
		Side:          side,
		AmountIn:      amountOrZero(amountIn),
		PriceBp:       bp,
		SharesOut:     shares,
		ImpactBps:     PriceImpactBps(side, amountIn, m),
		SlippageBps:   bound,
		MaxPriceBp:    MaxPrice(big.NewInt(bp), bound).Int64(),
		FeeBps:        FeeBps,
		PotentialGain: gain,
	}
}

func priceBp(side domain.Outcome, m domain.MarketState) int64 {
	if !side.Valid() {
		return 0
	}
	bp := m.PriceBp(side)
	if bp <= 0 || bp > domain.BasisPoints {
		return 0
	}
	return bp
}

func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
