package domain

import "math/big"

// BasisPoints is the denominator for prices and probabilities (10000 = 100%).
const BasisPoints = 10_000

// Outcome is one side of a binary market. The numeric values match the
// market contract's uint8 encoding.
type Outcome uint8

const (
	OutcomeYes Outcome = 1
	OutcomeNo  Outcome = 2
)

// Valid reports whether o is YES or NO.
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// String returns "YES" or "NO".
func (o Outcome) String() string {
	switch o {
	case OutcomeYes:
		return "YES"
	case OutcomeNo:
		return "NO"
	default:
		return "UNKNOWN"
	}
}

// ParseOutcome accepts "yes"/"no" (any case) or the numeric wire values.
func ParseOutcome(s string) (Outcome, bool) {
	switch s {
	case "YES", "yes", "Yes", "1":
		return OutcomeYes, true
	case "NO", "no", "No", "2":
		return OutcomeNo, true
	}
	return 0, false
}

// MarketState is a snapshot of one market as last read from the contract.
// Token amounts are 18-decimal fixed-point integers; prices are basis points.
type MarketState struct {
	ID                 uint64   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	ResolutionCriteria string   `json:"resolution_criteria"`
	Creator            string   `json:"creator"`
	EndTime            int64    `json:"end_time"`
	CreationTime       int64    `json:"creation_time"`
	Resolved           bool     `json:"resolved"`
	Outcome            *Outcome `json:"outcome,omitempty"`
	YesPriceBp         int64    `json:"yes_price_bp"`
	NoPriceBp          int64    `json:"no_price_bp"`
	TotalYesShares     *big.Int `json:"total_yes_shares"`
	TotalNoShares      *big.Int `json:"total_no_shares"`
	TotalValueLocked   *big.Int `json:"total_value_locked"`
	ParticipantCount   uint64   `json:"participant_count"`
}

// PriceBp returns the quoted price of side in basis points.
func (m MarketState) PriceBp(side Outcome) int64 {
	switch side {
	case OutcomeYes:
		return m.YesPriceBp
	case OutcomeNo:
		return m.NoPriceBp
	}
	return 0
}

// Pool returns the outstanding shares of side. Never nil.
func (m MarketState) Pool(side Outcome) *big.Int {
	var p *big.Int
	switch side {
	case OutcomeYes:
		p = m.TotalYesShares
	case OutcomeNo:
		p = m.TotalNoShares
	}
	if p == nil {
		return new(big.Int)
	}
	return p
}

// TotalShares returns YES + NO outstanding shares.
func (m MarketState) TotalShares() *big.Int {
	return new(big.Int).Add(m.Pool(OutcomeYes), m.Pool(OutcomeNo))
}

// Valid reports whether the two quoted prices sum to 10000 bps and lie in range.
func (m MarketState) Valid() bool {
	return m.YesPriceBp >= 0 && m.NoPriceBp >= 0 &&
		m.YesPriceBp+m.NoPriceBp == BasisPoints
}

// Normalize repairs a read where only one side was quoted so that
// YesPriceBp + NoPriceBp == 10000. Out-of-range values are clamped first.
func (m *MarketState) Normalize() {
	m.YesPriceBp = clampBp(m.YesPriceBp)
	m.NoPriceBp = clampBp(m.NoPriceBp)
	if m.Valid() {
		return
	}
	switch {
	case m.YesPriceBp > 0:
		m.NoPriceBp = BasisPoints - m.YesPriceBp
	case m.NoPriceBp > 0:
		m.YesPriceBp = BasisPoints - m.NoPriceBp
	default:
		m.YesPriceBp = BasisPoints / 2
		m.NoPriceBp = BasisPoints / 2
	}
}

// Winner returns the resolved outcome, or 0 when unresolved.
func (m MarketState) Winner() Outcome {
	if !m.Resolved || m.Outcome == nil {
		return 0
	}
	return *m.Outcome
}

func clampBp(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > BasisPoints {
		return BasisPoints
	}
	return v
}
