package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/zento/internal/domain"
)

func TestAwardPostsAccrual(t *testing.T) {
	var got awardRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != awardPath {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "k", time.Second)
	err := c.Award(context.Background(), domain.RewardAccrual{
		Wallet: "0xabc", Points: 25, ActionType: "buy_7", Description: "Bet 25 USDT",
	})
	if err != nil {
		t.Fatalf("Award: %v", err)
	}
	if got.WalletAddress != "0xabc" || got.Points != 25 || got.ActionType != "buy_7" || got.Description != "Bet 25 USDT" {
		t.Errorf("request = %+v", got)
	}
}

func TestAwardErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "", time.Second)

	if err := c.Award(context.Background(), domain.RewardAccrual{Wallet: "0xabc", Points: 1}); err == nil {
		t.Error("expected error for 400")
	}
	err := c.Award(context.Background(), domain.RewardAccrual{Points: 1})
	if !errors.Is(err, domain.ErrWalletNotConnected) {
		t.Errorf("err = %v, want ErrWalletNotConnected", err)
	}
}
