package handler

import (
	"math/big"
	"net/http"
	"time"

	"github.com/alanyoungcy/zento/internal/pricing"
)

// WalletInfo reports the connected wallet and its last known balance.
type WalletInfo interface {
	Wallet() string
	Balance() *big.Int
}

// StatusHandler serves the backend status for the dashboard.
type StatusHandler struct {
	mode      string
	wallet    WalletInfo
	startedAt time.Time
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode string, wallet WalletInfo, startedAt time.Time) *StatusHandler {
	return &StatusHandler{mode: mode, wallet: wallet, startedAt: startedAt}
}

// GetStatus responds with the mode, wallet and uptime.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"mode":             h.mode,
		"wallet":           h.wallet.Wallet(),
		"wallet_connected": h.wallet.Wallet() != "",
		"uptime_seconds":   int64(time.Since(h.startedAt).Seconds()),
	}
	if b := h.wallet.Balance(); b != nil {
		out["balance"] = pricing.FormatAmount(b)
	}
	writeJSON(w, http.StatusOK, out)
}
