package trade

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/alanyoungcy/zento/internal/domain"
)

type decodedRevert struct{ reason string }

func (e *decodedRevert) Error() string        { return "reverted" }
func (e *decodedRevert) RevertReason() string { return e.reason }

func TestClassifyRejection(t *testing.T) {
	two := new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18))
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"decoded end time", &decodedRevert{reason: "Invalid end time"}, StatusMarketTooShort},
		{"decoded liquidity", fmt.Errorf("wrap: %w", &decodedRevert{reason: "Insufficient liquidity"}), "Need ≥ 2 USDT."},
		{"message only", errors.New("execution reverted: Invalid end time"), StatusMarketTooShort},
		{"decoded wins over message", &decodedRevert{reason: "Market closed"}, StatusCreateFailed},
		{"unknown", domain.ErrWriteRejected, StatusCreateFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyRejection(tt.err, two, StatusCreateFailed); got != tt.want {
				t.Errorf("classifyRejection = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNeedLiquidityNil(t *testing.T) {
	if got := needLiquidity(nil); got != "Need ≥ 0 USDT." {
		t.Errorf("needLiquidity(nil) = %q", got)
	}
}
