package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/zento/internal/trade"
)

// TradeService is what the trade handler needs from the service layer.
type TradeService interface {
	Buy(ctx context.Context, marketID uint64, side, amount string) (trade.Result, error)
	Sell(ctx context.Context, marketID, positionID uint64, shares string, minPriceBp int64) (trade.Result, error)
	Claim(ctx context.Context, marketID, positionID uint64) trade.Result
}

// TradeHandler runs buy, sell and claim pipelines.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

type buyRequest struct {
	MarketID uint64 `json:"market_id"`
	Outcome  string `json:"outcome"`
	Amount   string `json:"amount"`
}

// Buy buys an outcome with a token amount.
// POST /api/trades/buy {"market_id":1,"outcome":"yes","amount":"10"}
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.trades.Buy(r.Context(), req.MarketID, req.Outcome, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeResult(w, res)
}

type sellRequest struct {
	MarketID   uint64 `json:"market_id"`
	PositionID uint64 `json:"position_id"`
	// Shares is a decimal amount; empty sells the whole position.
	Shares     string `json:"shares"`
	MinPriceBp int64  `json:"min_price_bp"`
}

// Sell sells shares of a position.
// POST /api/trades/sell {"market_id":1,"position_id":3,"shares":"5"}
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.trades.Sell(r.Context(), req.MarketID, req.PositionID, req.Shares, req.MinPriceBp)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeResult(w, res)
}

type claimRequest struct {
	MarketID   uint64 `json:"market_id"`
	PositionID uint64 `json:"position_id"`
}

// Claim redeems a winning position.
// POST /api/trades/claim {"market_id":1,"position_id":3}
func (h *TradeHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeResult(w, h.trades.Claim(r.Context(), req.MarketID, req.PositionID))
}
