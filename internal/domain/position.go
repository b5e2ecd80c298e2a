package domain

import "math/big"

// Position is the user's stake in one outcome of one market, as reported by
// the contract. The local copy is a cache and is only replaced by fresh reads.
type Position struct {
	ID         uint64   `json:"id"`
	Owner      string   `json:"owner"`
	MarketID   uint64   `json:"market_id"`
	Outcome    Outcome  `json:"outcome"`
	Shares     *big.Int `json:"shares"`
	AvgPriceBp int64    `json:"avg_price_bp"`
	AcquiredAt int64    `json:"acquired_at"`
}

// Clone returns a deep copy so cached positions never alias caller memory.
func (p Position) Clone() Position {
	out := p
	if p.Shares != nil {
		out.Shares = new(big.Int).Set(p.Shares)
	}
	return out
}

// PositionStatus is the UI-facing state of a position.
type PositionStatus string

const (
	PositionOpen      PositionStatus = "open"
	PositionClaimable PositionStatus = "claimable"
	PositionClaimed   PositionStatus = "claimed"
	PositionLost      PositionStatus = "lost"
)
