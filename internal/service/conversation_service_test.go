package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/proposal"
	"github.com/alanyoungcy/zento/internal/trade"
)

type fakeAssistant struct {
	replies []domain.SuggestionReply
	err     error
	reqs    []domain.SuggestionRequest
}

func (a *fakeAssistant) Suggest(_ context.Context, req domain.SuggestionRequest) (domain.SuggestionReply, error) {
	a.reqs = append(a.reqs, req)
	if a.err != nil {
		return domain.SuggestionReply{}, a.err
	}
	if len(a.replies) == 0 {
		return domain.SuggestionReply{}, nil
	}
	r := a.replies[0]
	a.replies = a.replies[1:]
	return r, nil
}

type fakeCreator struct {
	wallet string
	lines  []string
	ok     bool
	got    *domain.Proposal
}

func (c *fakeCreator) Wallet() string { return c.wallet }

func (c *fakeCreator) CreateMarket(_ context.Context, p domain.Proposal, sink trade.StatusSink) trade.Result {
	c.got = &p
	res := trade.Result{Kind: trade.KindCreate, OK: c.ok}
	for _, l := range c.lines {
		sink(l)
		res.Status = append(res.Status, l)
	}
	if c.ok {
		res.Title = p.Question
		res.TxHash = "0xcreate"
	} else {
		res.Err = domain.ErrWriteRejected
	}
	return res
}

type fakeBlob struct {
	mu    sync.Mutex
	paths []string
	body  []byte
}

func (b *fakeBlob) Put(_ context.Context, path string, data io.Reader, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paths = append(b.paths, path)
	b.body, _ = io.ReadAll(data)
	return nil
}

type fakeBus struct {
	mu     sync.Mutex
	events int
}

func (b *fakeBus) Publish(context.Context, string, []byte) error {
	b.mu.Lock()
	b.events++
	b.mu.Unlock()
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

var convNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newConversationService(a *fakeAssistant, c *fakeCreator) (*ConversationService, *fakeBlob, *fakeBus) {
	blob := &fakeBlob{}
	bus := &fakeBus{}
	s := NewConversationService(NewMemoryConversationStore(), a, c, nil, blob, bus, "user-1",
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return convNow }
	return s, blob, bus
}

func suggestionsReply() domain.SuggestionReply {
	return domain.SuggestionReply{
		SessionID:   "sess-1",
		FromMarkets: true,
		Suggestions: []domain.Suggestion{
			{Question: "Will BTC close above 150k in 2026?", Title: "BTC 150k", Category: "crypto",
				EndDate: "31/12/2026 23:59:59", ResolutionCriteria: "Coinbase close price"},
			{Question: "Will ETH flip BTC?", Category: "crypto"},
		},
	}
}

func contents(c *domain.Conversation) []string {
	out := make([]string, len(c.Messages))
	for i, m := range c.Messages {
		out[i] = m.Content
	}
	return out
}

func TestConversationCreatesMarket(t *testing.T) {
	a := &fakeAssistant{replies: []domain.SuggestionReply{suggestionsReply()}}
	cr := &fakeCreator{wallet: "0xabc", ok: true, lines: []string{"Preparing market...", "Creating market..."}}
	s, blob, bus := newConversationService(a, cr)
	ctx := context.Background()

	c, err := s.Start(ctx, "bitcoin", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.State != domain.StateSuggesting || c.SessionID != "sess-1" || len(c.Suggestions) != 2 {
		t.Fatalf("after start: %+v", c)
	}
	if a.reqs[0].UserID != "user-1" || a.reqs[0].Text != "bitcoin" || a.reqs[0].SessionID != "" {
		t.Errorf("request = %+v", a.reqs[0])
	}

	if c, err = s.Select(ctx, c.ID, 0); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if c, err = s.Edit(ctx, c.ID, map[string]string{"category": "markets", "end_date": "2026-12-30"}); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if c.Proposal.EndDate != "30/12/2026 23:59:59" || c.Proposal.Category != "markets" {
		t.Errorf("proposal = %+v", c.Proposal)
	}
	anchor := c.AnchorIndex
	userLines := len(c.Messages)

	c, res, err := s.Submit(ctx, c.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.OK || c.State != domain.StateCreated || c.CreatedTitle != "Will BTC close above 150k in 2026?" {
		t.Fatalf("after submit: state=%s res=%+v", c.State, res)
	}
	got := contents(c)[anchor+1:]
	want := []string{"Preparing market...", "Creating market...", "Market \"Will BTC close above 150k in 2026?\" created! Live now."}
	if !slices.Equal(got[:len(want)], want) {
		t.Errorf("status lines after anchor = %q, want %q", got, want)
	}
	if len(c.Messages) != userLines+len(want) {
		t.Errorf("messages = %d, want %d", len(c.Messages), userLines+len(want))
	}
	if c.AnchorIndex != domain.NoAnchor || c.SessionID != "" || c.Proposal != nil {
		t.Errorf("session not cleared: %+v", c)
	}

	if len(blob.paths) != 1 || !strings.HasPrefix(blob.paths[0], "transcripts/2026/03/01/") {
		t.Errorf("archive paths = %q", blob.paths)
	}
	if !bytes.Contains(blob.body, []byte(`"state":"created"`)) {
		t.Errorf("archived body = %s", blob.body)
	}
	if bus.events == 0 {
		t.Error("no conversation events published")
	}

	stored, err := s.Get(ctx, c.ID)
	if err != nil || stored.State != domain.StateCreated {
		t.Errorf("stored = %+v, %v", stored, err)
	}
}

func TestConversationSubmitFailureReturnsToEditing(t *testing.T) {
	a := &fakeAssistant{replies: []domain.SuggestionReply{suggestionsReply()}}
	cr := &fakeCreator{wallet: "0xabc", lines: []string{"Preparing market...", "Market must be ≥1 hour long."}}
	s, blob, _ := newConversationService(a, cr)
	ctx := context.Background()

	c, _ := s.Start(ctx, "bitcoin", "")
	c, _ = s.Select(ctx, c.ID, 0)
	c, res, err := s.Submit(ctx, c.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.OK || c.State != domain.StateEditing || c.Proposal == nil {
		t.Fatalf("state=%s res=%+v", c.State, res)
	}
	if got := c.Messages[c.AnchorIndex+2].Content; got != "Market must be ≥1 hour long." {
		t.Errorf("second status = %q", got)
	}
	if len(blob.paths) != 0 {
		t.Error("failed conversation archived")
	}
}

func TestConversationSubmitValidation(t *testing.T) {
	a := &fakeAssistant{}
	cr := &fakeCreator{wallet: "0xabc", ok: true}
	s, _, _ := newConversationService(a, cr)
	ctx := context.Background()

	c, err := s.Start(ctx, "anything", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	c, _ = s.StartCustom(ctx, c.ID)
	c, _ = s.Edit(ctx, c.ID, map[string]string{
		"question":            "Q?",
		"category":            "c",
		"resolution_criteria": "r",
		"end_date":            "01/01/2020",
	})

	c, res, err := s.Submit(ctx, c.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if cr.got != nil {
		t.Error("pipeline ran for a past end date")
	}
	if res.OK || c.State != domain.StateEditing {
		t.Errorf("state = %s", c.State)
	}
	if got := c.Messages[c.AnchorIndex+1].Content; got != "End time must be in the future!" {
		t.Errorf("status = %q", got)
	}
}

func TestConversationSubmitWithoutWallet(t *testing.T) {
	a := &fakeAssistant{replies: []domain.SuggestionReply{suggestionsReply()}}
	cr := &fakeCreator{}
	s, _, _ := newConversationService(a, cr)
	ctx := context.Background()

	c, _ := s.Start(ctx, "bitcoin", "")
	c, _ = s.Select(ctx, c.ID, 0)
	c, _, err := s.Submit(ctx, c.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if c.State != domain.StateEditing || c.Messages[c.AnchorIndex+1].Content != proposal.MsgConnectWallet {
		t.Errorf("state=%s messages=%q", c.State, contents(c))
	}
}

func TestConversationAssistantFailure(t *testing.T) {
	a := &fakeAssistant{err: &domain.ServiceError{Status: 503, Message: "Service busy"}}
	s, _, _ := newConversationService(a, &fakeCreator{})

	c, err := s.Start(context.Background(), "bitcoin", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.State != domain.StateSearching {
		t.Errorf("state = %s", c.State)
	}
	if last := c.Messages[len(c.Messages)-1].Content; last != "⚠️ Service busy" {
		t.Errorf("last message = %q", last)
	}
}

func TestConversationErrors(t *testing.T) {
	s, _, _ := newConversationService(&fakeAssistant{}, &fakeCreator{})
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Get missing = %v", err)
	}
	if _, err := s.Start(ctx, "  ", ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty query = %v", err)
	}
	c, _ := s.Start(ctx, "x", "")
	if _, err := s.Select(ctx, c.ID, 0); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("select while searching = %v", err)
	}
}
