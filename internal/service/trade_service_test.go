package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/trade"
)

type fakeTrader struct {
	buy   *trade.BuyRequest
	sell  *trade.SellRequest
	claim *trade.ClaimRequest
}

func (f *fakeTrader) Buy(_ context.Context, req trade.BuyRequest, _ trade.StatusSink) trade.Result {
	f.buy = &req
	return trade.Result{Kind: trade.KindBuy, OK: true}
}

func (f *fakeTrader) Sell(_ context.Context, req trade.SellRequest, _ trade.StatusSink) trade.Result {
	f.sell = &req
	return trade.Result{Kind: trade.KindSell, OK: true}
}

func (f *fakeTrader) Claim(_ context.Context, req trade.ClaimRequest, _ trade.StatusSink) trade.Result {
	f.claim = &req
	return trade.Result{Kind: trade.KindClaim, OK: true}
}

func TestTradeServiceParsesInput(t *testing.T) {
	ft := &fakeTrader{}
	s := NewTradeService(ft, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	if _, err := s.Buy(ctx, 3, "yes", "12.5"); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	want := new(big.Int).Mul(big.NewInt(125), big.NewInt(1e17))
	if ft.buy.Side != domain.OutcomeYes || ft.buy.Amount.Cmp(want) != 0 || ft.buy.MarketID != 3 {
		t.Errorf("buy = %+v", ft.buy)
	}

	for _, tc := range []struct{ side, amount string }{{"maybe", "1"}, {"no", "-1"}, {"no", "abc"}} {
		if _, err := s.Buy(ctx, 3, tc.side, tc.amount); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Buy(%q, %q) err = %v, want ErrValidation", tc.side, tc.amount, err)
		}
	}

	if _, err := s.Sell(ctx, 3, 9, "", 4000); err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if ft.sell.Shares != nil || ft.sell.MinPrice.Int64() != 4000 {
		t.Errorf("sell = %+v", ft.sell)
	}

	s.Claim(ctx, 3, 9)
	if ft.claim == nil || ft.claim.PositionID != 9 {
		t.Errorf("claim = %+v", ft.claim)
	}
}
