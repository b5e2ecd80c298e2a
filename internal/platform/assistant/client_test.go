package assistant

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

func newServer(t *testing.T, handler func(path string, body map[string]any) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		status, resp := handler(r.URL.Path, body)
		w.WriteHeader(status)
		w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSuggestStartsSearch(t *testing.T) {
	srv := newServer(t, func(path string, body map[string]any) (int, string) {
		if path != searchPath {
			t.Errorf("path = %s, want %s", path, searchPath)
		}
		if body["query"] != "bitcoin" || body["user_id"] != "u1" {
			t.Errorf("body = %v", body)
		}
		if _, ok := body["context"]; ok {
			t.Errorf("empty context should be omitted")
		}
		return 200, `{"session_id":"s1","prediction_markets":[
			{"question":"Will BTC hit 200k?","category":"crypto","ai_probability":"0.42","confidence":80,"end_date":"31/12/2026"},
			{"title":"no question here either"},
			{"category":"missing everything"},
			"Will ETH flip BTC?"
		],"prompt":"ignored for markets"}`
	})

	c := NewClient(srv.URL, time.Second)
	reply, err := c.Suggest(context.Background(), domain.SuggestionRequest{UserID: "u1", Text: "bitcoin"})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if reply.SessionID != "s1" || !reply.FromMarkets {
		t.Errorf("reply = %+v", reply)
	}
	if len(reply.Suggestions) != 3 {
		t.Fatalf("suggestions = %d, want 3", len(reply.Suggestions))
	}
	first := reply.Suggestions[0]
	if first.Title != "Will BTC hit 200k?" || first.AIProbability != 0.42 || first.Confidence != 80 {
		t.Errorf("first = %+v", first)
	}
	if first.KeyFactors == nil || first.Sources == nil {
		t.Error("list fields must default to empty")
	}
	if reply.Suggestions[2].Question != "Will ETH flip BTC?" {
		t.Errorf("string item = %+v", reply.Suggestions[2])
	}
}

func TestSuggestContinuesSession(t *testing.T) {
	srv := newServer(t, func(path string, body map[string]any) (int, string) {
		if path != continuePath {
			t.Errorf("path = %s, want %s", path, continuePath)
		}
		if body["session_id"] != "s1" || body["response"] != "yes" || body["context"] != "ctx" {
			t.Errorf("body = %v", body)
		}
		return 200, `{"ai_suggestion":"Everything looks good","current_step":"2","progress":"Review","proposal":{"question":"Q?","category":"c"}}`
	})

	c := NewClient(srv.URL, time.Second)
	reply, err := c.Suggest(context.Background(), domain.SuggestionRequest{SessionID: "s1", Text: "yes", Context: "ctx"})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if reply.CurrentStep == nil || *reply.CurrentStep != 2 {
		t.Errorf("CurrentStep = %v", reply.CurrentStep)
	}
	if reply.Proposal == nil || reply.Proposal.Question != "Q?" {
		t.Errorf("Proposal = %+v", reply.Proposal)
	}
	if reply.AISuggestion != "Everything looks good" || reply.Progress != "Review" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestSuggestFallsBackToSuggestions(t *testing.T) {
	srv := newServer(t, func(string, map[string]any) (int, string) {
		return 200, `{"prediction_markets":[],"suggestions":[{"question":"A?"}],"message":"Pick one"}`
	})
	reply, err := NewClient(srv.URL, time.Second).Suggest(context.Background(), domain.SuggestionRequest{Text: "x"})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if reply.FromMarkets || len(reply.Suggestions) != 1 || reply.Message != "Pick one" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestSuggestLogicalFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"success false", 200, `{"success":false,"message":"Rate limited"}`, "Rate limited"},
		{"server error with json", 500, `{"message":"boom"}`, "boom"},
		{"server error without json", 502, `<html>bad gateway</html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, func(string, map[string]any) (int, string) { return tt.status, tt.body })
			_, err := NewClient(srv.URL, time.Second).Suggest(context.Background(), domain.SuggestionRequest{Text: "x"})
			var se *domain.ServiceError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want ServiceError", err)
			}
			if se.Message != tt.message || se.Status != tt.status {
				t.Errorf("ServiceError = %+v", se)
			}
			if !errors.Is(err, domain.ErrServiceUnavailable) {
				t.Error("ServiceError does not match ErrServiceUnavailable")
			}
		})
	}
}

func TestSuggestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Suggest(context.Background(), domain.SuggestionRequest{Text: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	var se *domain.ServiceError
	if errors.As(err, &se) {
		t.Fatalf("transport failure reported as ServiceError: %v", err)
	}
}
