package handler

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/pricing"
	"github.com/alanyoungcy/zento/internal/service"
)

// MarketService is what the market handler needs from the service layer.
type MarketService interface {
	View(ctx context.Context, id uint64, side domain.Outcome, amount *big.Int) (service.MarketView, error)
	List() []domain.MarketState
}

// MarketHandler serves market state and buy quotes.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

// ListMarkets returns every cached market.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets := h.markets.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"markets": markets,
		"total":   len(markets),
	})
}

// GetMarket returns one market, with a quote when side and amount are given.
// GET /api/markets/{id}?side=yes&amount=10
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var side domain.Outcome
	var amount *big.Int
	q := r.URL.Query()
	if s := q.Get("side"); s != "" {
		o, ok := domain.ParseOutcome(s)
		if !ok {
			writeError(w, http.StatusBadRequest, "side must be yes or no")
			return
		}
		side = o
	}
	if a := q.Get("amount"); a != "" {
		if amount, err = pricing.ParseAmount(a); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	view, err := h.markets.View(r.Context(), id, side, amount)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to read market")
		return
	}
	writeJSON(w, http.StatusOK, view)
}
