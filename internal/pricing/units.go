package pricing

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/zento/internal/domain"
)

// TokenDecimals is the fixed-point scale of token amounts and shares.
const TokenDecimals = 18

// FromWei converts an 18-decimal integer amount to a decimal.
func FromWei(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -TokenDecimals)
}

// ToWei converts a decimal token amount to its 18-decimal integer form,
// truncating any precision beyond the scale.
func ToWei(d decimal.Decimal) *big.Int {
	return d.Shift(TokenDecimals).Truncate(0).BigInt()
}

// ParseAmount parses a user-entered token amount such as "12.5" and
// requires it to be positive.
func ParseAmount(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("pricing: parse amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("pricing: amount %q must be positive", s)
	}
	v := ToWei(d)
	if v.Sign() == 0 {
		return nil, fmt.Errorf("pricing: amount %q below token precision", s)
	}
	return v, nil
}

// BpToProbability converts basis points to a probability in [0,1].
func BpToProbability(bp int64) decimal.Decimal {
	return decimal.New(bp, 0).Div(decimal.New(domain.BasisPoints, 0))
}

// FormatAmount renders an 18-decimal amount with two decimals, as shown in
// status lines.
func FormatAmount(v *big.Int) string {
	return FromWei(v).StringFixed(2)
}
