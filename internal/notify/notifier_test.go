package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordSender struct {
	name  string
	err   error
	sends []string
}

func (s *recordSender) Send(_ context.Context, title, _ string) error {
	s.sends = append(s.sends, title)
	return s.err
}

func (s *recordSender) Name() string { return s.name }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierFilter(t *testing.T) {
	tests := []struct {
		name   string
		events []string
		event  string
		want   bool
	}{
		{"empty allows all", nil, "trade.buy", true},
		{"exact match", []string{"trade.create_market"}, "trade.create_market", true},
		{"exact miss", []string{"trade.create_market"}, "trade.buy", false},
		{"prefix match", []string{"trade.*"}, "trade.sell", true},
		{"prefix miss", []string{"trade.*"}, "archive.audit", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNotifier(nil, tt.events, discard())
			if got := n.Allows(tt.event); got != tt.want {
				t.Errorf("Allows(%q) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestNotifierContinuesAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	bad := &recordSender{name: "bad", err: boom}
	good := &recordSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discard())

	err := n.Notify(context.Background(), "trade.buy", "buy failed", "Buy failed.")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapping boom", err)
	}
	if len(good.sends) != 1 {
		t.Errorf("good sender got %d sends, want 1", len(good.sends))
	}
}

func TestTelegramSend(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("tok", "42")
	s.baseURL = srv.URL
	if err := s.Send(context.Background(), "Market created", "Will_it rain?"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if path != "/bottok/sendMessage" {
		t.Errorf("path = %q", path)
	}
	if got["chat_id"] != "42" || !strings.Contains(got["text"], `Will\_it`) {
		t.Errorf("payload = %v", got)
	}
}

func TestDiscordSendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v, want status 429", err)
	}
}
