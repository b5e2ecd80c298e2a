package proposal

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/zento/internal/domain"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func suggestions() []domain.Suggestion {
	return []domain.Suggestion{
		{Title: "BTC below 100k", Question: "Will BTC fall below $100k?", Category: "crypto", EndDate: "31/12/2026 23:59:59", ResolutionCriteria: "CoinGecko close"},
		{Title: "Mars landing", Question: "Will humans land on Mars by 2030?", Category: "space", EndDate: "31/12/2030", ResolutionCriteria: "NASA"},
	}
}

func suggesting(t *testing.T) *domain.Conversation {
	t.Helper()
	c := domain.NewConversation("c1", "0xabc", now)
	turn, err := BeginSearch(c, "u1", "bitcoin", now)
	if err != nil {
		t.Fatalf("BeginSearch: %v", err)
	}
	ApplyReply(c, turn, domain.SuggestionReply{SessionID: "s-1", Suggestions: suggestions(), FromMarkets: true}, now)
	if c.State != domain.StateSuggesting {
		t.Fatalf("state = %s, want suggesting", c.State)
	}
	return c
}

func lastMessage(c *domain.Conversation) string {
	if len(c.Messages) == 0 {
		return ""
	}
	return c.Messages[len(c.Messages)-1].Content
}

func TestBeginSearchOnlyFromIdle(t *testing.T) {
	c := domain.NewConversation("c1", "0xabc", now)
	turn, err := BeginSearch(c, "u1", "  will it rain  ", now)
	if err != nil {
		t.Fatalf("BeginSearch: %v", err)
	}
	if turn.Request.Text != "will it rain" || turn.Request.UserID != "u1" || turn.Request.SessionID != "" {
		t.Errorf("request = %+v", turn.Request)
	}
	if c.State != domain.StateSearching {
		t.Errorf("state = %s, want searching", c.State)
	}
	if _, err := BeginSearch(c, "u1", "again", now); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("second BeginSearch err = %v, want ErrInvalidTransition", err)
	}
}

func TestBeginHeadline(t *testing.T) {
	c := domain.NewConversation("c1", "0xabc", now)
	turn, err := BeginHeadline(c, "u1", "Fed cuts rates", now)
	if err != nil {
		t.Fatalf("BeginHeadline: %v", err)
	}
	want := `Based on this headline: "Fed cuts rates", suggest some questions`
	if turn.Request.Text != want {
		t.Errorf("Text = %q, want %q", turn.Request.Text, want)
	}
	if turn.Request.Context != "Original headline: Fed cuts rates" {
		t.Errorf("Context = %q", turn.Request.Context)
	}

	ApplyReply(c, turn, domain.SuggestionReply{Suggestions: suggestions(), FromMarkets: true}, now)
	if !strings.Contains(lastMessage(c), `based on the headline "Fed cuts rates"`) {
		t.Errorf("message = %q", lastMessage(c))
	}
}

func TestApplyReplySuggestions(t *testing.T) {
	c := suggesting(t)
	if c.SessionID != "s-1" {
		t.Errorf("SessionID = %q, want s-1", c.SessionID)
	}
	if c.Progress != ProgressSelect || c.BackendStep != stepSelect {
		t.Errorf("progress = %q step = %d", c.Progress, c.BackendStep)
	}
	if !strings.Contains(lastMessage(c), `your query "bitcoin"`) {
		t.Errorf("message = %q", lastMessage(c))
	}
}

func TestApplyReplyConversational(t *testing.T) {
	c := domain.NewConversation("c1", "0xabc", now)
	turn, _ := BeginSearch(c, "u1", "sports", now)
	ApplyReply(c, turn, domain.SuggestionReply{SessionID: "s-9", Prompt: "Which league?"}, now)

	if c.State != domain.StateSearching {
		t.Fatalf("state = %s, want searching", c.State)
	}
	if lastMessage(c) != "Which league?" {
		t.Errorf("last message = %q", lastMessage(c))
	}

	turn, err := FollowUp(c, "u1", "NBA", now)
	if err != nil {
		t.Fatalf("FollowUp: %v", err)
	}
	if turn.Request.SessionID != "s-9" {
		t.Errorf("follow-up session = %q, want s-9", turn.Request.SessionID)
	}
	ApplyReply(c, turn, domain.SuggestionReply{SessionID: "other", Prompt: "Ready?", AISuggestion: "Everything looks good to me"}, now)
	if c.SessionID != "s-9" {
		t.Errorf("session reassigned to %q", c.SessionID)
	}
	if c.SuggestedReply != "confirm" {
		t.Errorf("SuggestedReply = %q, want confirm", c.SuggestedReply)
	}
	if c.State != domain.StateAwaitingFreeform {
		t.Errorf("state = %s, want awaiting_freeform", c.State)
	}
}

func TestApplyReplyDraftedProposal(t *testing.T) {
	c := domain.NewConversation("c1", "0xabc", now)
	turn, _ := BeginSearch(c, "u1", "rates", now)
	draft := suggestions()[0]
	ApplyReply(c, turn, domain.SuggestionReply{Prompt: "Here is a draft.", Proposal: &draft}, now)

	if c.State != domain.StateEditing || c.Proposal == nil {
		t.Fatalf("state = %s proposal = %v", c.State, c.Proposal)
	}
	if c.AnchorIndex != len(c.Messages)-1 {
		t.Errorf("anchor = %d, want %d", c.AnchorIndex, len(c.Messages)-1)
	}
}

func TestApplyFailureKeepsState(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"logical with message", &domain.ServiceError{Status: 200, Message: "Quota exceeded"}, "⚠️ Quota exceeded"},
		{"logical without message", &domain.ServiceError{Status: 500}, "⚠️ " + MsgGenericError},
		{"network", errors.New("dial tcp: refused"), "⚠️ " + MsgNetworkError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.NewConversation("c1", "0xabc", now)
			c.SessionID = "s-1"
			BeginSearch(c, "u1", "q", now)
			ApplyFailure(c, tt.err, now)
			if c.State != domain.StateSearching || c.SessionID != "s-1" {
				t.Errorf("state = %s session = %q", c.State, c.SessionID)
			}
			if lastMessage(c) != tt.want {
				t.Errorf("message = %q, want %q", lastMessage(c), tt.want)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	c := suggesting(t)
	before := len(c.Messages)
	if err := Select(c, 1, now); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if c.State != domain.StateEditing || c.Proposal == nil || c.Proposal.Title != "Mars landing" {
		t.Fatalf("state = %s proposal = %+v", c.State, c.Proposal)
	}
	if c.AnchorIndex != before {
		t.Errorf("anchor = %d, want %d", c.AnchorIndex, before)
	}
	if c.Suggestions != nil {
		t.Errorf("suggestions not discarded: %d left", len(c.Suggestions))
	}
	if c.Progress != ProgressEditing {
		t.Errorf("progress = %q", c.Progress)
	}
	if err := Select(c, 0, now); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("second Select err = %v", err)
	}
}

func TestSelectSynthesisesSession(t *testing.T) {
	c := domain.NewConversation("c1", "0xabc", now)
	turn, _ := BeginSearch(c, "u1", "q", now)
	ApplyReply(c, turn, domain.SuggestionReply{Suggestions: suggestions(), Message: "pick one"}, now)
	if err := Select(c, 0, now); err != nil {
		t.Fatalf("Select: %v", err)
	}
	prefix := "temp_1772366400000_"
	if !strings.HasPrefix(c.SessionID, prefix) || len(c.SessionID) != len(prefix)+9 || !c.SessionSynthetic {
		t.Errorf("SessionID = %q synthetic = %v", c.SessionID, c.SessionSynthetic)
	}
}

func TestSelectOutOfRange(t *testing.T) {
	c := suggesting(t)
	if err := Select(c, 5, now); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if c.State != domain.StateSuggesting {
		t.Errorf("state = %s", c.State)
	}
}

func TestStartCustomFromIdle(t *testing.T) {
	c := domain.NewConversation("c1", "0xabc", now)
	if err := StartCustom(c, now); err != nil {
		t.Fatalf("StartCustom: %v", err)
	}
	if !c.IsCustom || c.State != domain.StateEditing || c.Progress != ProgressCustom {
		t.Fatalf("custom = %v state = %s progress = %q", c.IsCustom, c.State, c.Progress)
	}
	if c.Proposal.Question != "" || c.Proposal.Context != "Custom market" {
		t.Errorf("template = %+v", c.Proposal)
	}
	if lastMessage(c) != MsgCustomStart {
		t.Errorf("message = %q", lastMessage(c))
	}
}

func TestEdit(t *testing.T) {
	c := domain.NewConversation("c1", "0xabc", now)
	StartCustom(c, now)

	edits := map[string]string{
		"question":            "Will it snow in Lagos?",
		"category":            "weather",
		"resolution_criteria": "Met office",
		"end_date":            "2026-12-25",
		"initial_liquidity":   "12.5",
	}
	for f, v := range edits {
		if err := Edit(c, f, v, now); err != nil {
			t.Fatalf("Edit(%s): %v", f, err)
		}
	}
	if c.Proposal.EndDate != "25/12/2026 23:59:59" {
		t.Errorf("EndDate = %q", c.Proposal.EndDate)
	}
	if c.Proposal.InitialLiquidity == nil || c.Proposal.InitialLiquidity.String() != "12500000000000000000" {
		t.Errorf("InitialLiquidity = %v", c.Proposal.InitialLiquidity)
	}
	if err := Edit(c, "end_date", "01/01/2027 10:00:00", now); err != nil || c.Proposal.EndDate != "01/01/2027 10:00:00" {
		t.Errorf("display edit: err = %v value = %q", err, c.Proposal.EndDate)
	}
	if err := Edit(c, "oracle", "x", now); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unknown field err = %v", err)
	}
	if err := Edit(c, "initial_liquidity", "-3", now); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("negative liquidity err = %v", err)
	}
}

func TestEditOutsideEditing(t *testing.T) {
	c := suggesting(t)
	if err := Edit(c, "question", "x", now); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v", err)
	}
}

func TestSubmitRejectsPastEndDate(t *testing.T) {
	c := suggesting(t)
	Select(c, 0, now)
	Edit(c, "end_date", "01/01/2020 00:00:00", now)
	anchor := c.AnchorIndex

	_, err := Submit(c, now)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if c.State != domain.StateEditing {
		t.Errorf("state = %s, want editing", c.State)
	}
	if got := c.Messages[anchor+1].Content; got != "End time must be in the future!" {
		t.Errorf("status at anchor+1 = %q", got)
	}
}

func TestSubmitValidationOrder(t *testing.T) {
	tests := []struct {
		name string
		p    domain.Proposal
		want string
	}{
		{"empty", domain.Proposal{}, "Enter a market question."},
		{"no category", domain.Proposal{Question: "q"}, "Enter a category."},
		{"no date", domain.Proposal{Question: "q", Category: "c"}, "Select an end date."},
		{"no criteria", domain.Proposal{Question: "q", Category: "c", EndDate: "01/01/2030"}, "Add resolution criteria."},
		{"bad date", domain.Proposal{Question: "q", Category: "c", EndDate: "2030-13-40", ResolutionCriteria: "r"}, "Invalid date format."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.NewConversation("c1", "0xabc", now)
			StartCustom(c, now)
			p := tt.p
			c.Proposal = &p
			if _, err := Submit(c, now); err == nil {
				t.Fatal("Submit accepted invalid proposal")
			}
			if got := c.Messages[c.AnchorIndex+1].Content; got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubmitCompleteFlow(t *testing.T) {
	c := suggesting(t)
	Select(c, 0, now)

	req, err := Submit(c, now)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if c.State != domain.StateSubmitting {
		t.Fatalf("state = %s", c.State)
	}
	if req.Title != "Will BTC fall below $100k?" || req.ResolutionCriteria != "CoinGecko close" {
		t.Errorf("request = %+v", req)
	}
	if req.EndTime.Format(time.DateTime) != "2026-12-31 23:59:59" {
		t.Errorf("EndTime = %v", req.EndTime)
	}

	anchor := c.AnchorIndex
	c.InsertStatus("Preparing market...")
	c.InsertStatus("Creating market...")
	if err := Complete(c, req.Title, now); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got := []string{c.Messages[anchor+1].Content, c.Messages[anchor+2].Content, c.Messages[anchor+3].Content}
	want := []string{"Preparing market...", "Creating market...", `Market "Will BTC fall below $100k?" created! Live now.`}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("status[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if c.State != domain.StateCreated || c.SessionID != "" || c.Proposal != nil || c.AnchorIndex != domain.NoAnchor {
		t.Errorf("after complete: state=%s session=%q proposal=%v anchor=%d", c.State, c.SessionID, c.Proposal, c.AnchorIndex)
	}
	if c.Progress != ProgressCreated {
		t.Errorf("progress = %q", c.Progress)
	}

	if err := Reset(c, now); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if c.State != domain.StateIdle || len(c.Messages) != 0 {
		t.Errorf("after reset: state=%s messages=%d", c.State, len(c.Messages))
	}
}

func TestFailPreservesProposal(t *testing.T) {
	c := suggesting(t)
	Select(c, 0, now)
	Submit(c, now)
	if err := Fail(c, "Failed to create market.", now); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if c.State != domain.StateEditing || c.Proposal == nil || c.Proposal.Title != "BTC below 100k" {
		t.Fatalf("state = %s proposal = %+v", c.State, c.Proposal)
	}
	if c.Messages[c.AnchorIndex+1].Content != "Failed to create market." {
		t.Errorf("status = %q", c.Messages[c.AnchorIndex+1].Content)
	}
}

func TestCancel(t *testing.T) {
	t.Run("selected suggestion returns to list", func(t *testing.T) {
		c := suggesting(t)
		Select(c, 0, now)
		if err := Cancel(c, now); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if c.State != domain.StateSuggesting || len(c.Suggestions) != 2 || c.Proposal != nil {
			t.Errorf("state=%s suggestions=%d proposal=%v", c.State, len(c.Suggestions), c.Proposal)
		}
	})
	t.Run("custom resets", func(t *testing.T) {
		c := suggesting(t)
		StartCustom(c, now)
		if err := Cancel(c, now); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if c.State != domain.StateIdle || len(c.Messages) != 0 || c.SessionID != "" {
			t.Errorf("state=%s messages=%d session=%q", c.State, len(c.Messages), c.SessionID)
		}
	})
	t.Run("not while submitting", func(t *testing.T) {
		c := suggesting(t)
		Select(c, 0, now)
		Submit(c, now)
		if err := Cancel(c, now); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("err = %v", err)
		}
	})
}
