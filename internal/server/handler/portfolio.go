package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/zento/internal/ledger"
)

// PortfolioService is what the portfolio handler needs from the service
// layer.
type PortfolioService interface {
	Snapshot(ctx context.Context, refresh bool) (ledger.Snapshot, error)
	Positions(ctx context.Context, marketID uint64, refresh bool) ([]ledger.PositionView, error)
}

// PortfolioHandler serves the wallet's portfolio.
type PortfolioHandler struct {
	portfolio PortfolioService
	logger    *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler.
func NewPortfolioHandler(portfolio PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio, logger: logger}
}

// GetPortfolio returns the portfolio snapshot.
// GET /api/portfolio?refresh=true
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	snap, err := h.portfolio.Snapshot(r.Context(), queryBool(r, "refresh"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListPositions returns the positions held in one market.
// GET /api/positions?market_id=1&refresh=true
func (h *PortfolioHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("market_id")
	marketID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "market_id query parameter required")
		return
	}
	views, err := h.portfolio.Positions(r.Context(), marketID, queryBool(r, "refresh"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: list positions failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": views})
}
