package trade

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/alanyoungcy/zento/internal/pricing"
)

// reverter is implemented by ledger clients that decode revert payloads.
type reverter interface {
	RevertReason() string
}

// rejectionReason extracts the contract's reason for a failed write. A
// decoded revert reason wins; the error text is the fallback for nodes
// that only return a message.
func rejectionReason(err error) string {
	if err == nil {
		return ""
	}
	var r reverter
	if errors.As(err, &r) && r.RevertReason() != "" {
		return r.RevertReason()
	}
	return err.Error()
}

// classifyRejection maps a failed write to the status line shown to the
// user. minLiquidity may be nil when it was never read.
func classifyRejection(err error, minLiquidity *big.Int, generic string) string {
	reason := rejectionReason(err)
	switch {
	case strings.Contains(reason, reasonInvalidEndTime):
		return StatusMarketTooShort
	case strings.Contains(reason, reasonInsufficientLiquidity):
		return needLiquidity(minLiquidity)
	default:
		return generic
	}
}

func needLiquidity(min *big.Int) string {
	if min == nil {
		min = new(big.Int)
	}
	return fmt.Sprintf(statusNeedLiquidityFmt, pricing.FromWei(min).String())
}
