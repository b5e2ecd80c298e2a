package domain

import (
	"testing"
	"time"
)

func contents(c *Conversation) []string {
	out := make([]string, len(c.Messages))
	for i, m := range c.Messages {
		out[i] = m.Content
	}
	return out
}

func TestInsertStatusWithoutAnchorAppends(t *testing.T) {
	c := NewConversation("c", "o", time.Time{})
	c.Append(RoleUser, "hi")
	c.InsertStatus("Please connect your wallet first.")
	got := contents(c)
	if len(got) != 2 || got[1] != "Please connect your wallet first." {
		t.Fatalf("messages = %v", got)
	}
}

func TestInsertStatusAtAnchor(t *testing.T) {
	c := NewConversation("c", "o", time.Time{})
	c.Append(RoleUser, "q")
	c.SetAnchor(len(c.Messages))
	c.Append(RoleAssistant, "card")
	c.Append(RoleUser, "later")

	c.InsertStatus("one")
	c.InsertStatus("two")

	want := []string{"q", "card", "one", "two", "later"}
	got := contents(c)
	if len(got) != len(want) {
		t.Fatalf("messages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("messages = %v, want %v", got, want)
		}
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	c := NewConversation("c", "o", time.Time{})
	c.Append(RoleUser, "q")
	c.Proposal = &Proposal{Question: "a"}
	cp := c.Clone()
	cp.Messages[0].Content = "changed"
	cp.Proposal.Question = "b"
	if c.Messages[0].Content != "q" || c.Proposal.Question != "a" {
		t.Fatal("clone aliases original")
	}
}

func TestMarketNormalize(t *testing.T) {
	tests := []struct {
		yes, no      int64
		wantY, wantN int64
	}{
		{6000, 4000, 6000, 4000},
		{6000, 0, 6000, 4000},
		{0, 2500, 7500, 2500},
		{0, 0, 5000, 5000},
		{12000, -1, 10000, 0},
	}
	for _, tt := range tests {
		m := MarketState{YesPriceBp: tt.yes, NoPriceBp: tt.no}
		m.Normalize()
		if m.YesPriceBp != tt.wantY || m.NoPriceBp != tt.wantN || !m.Valid() {
			t.Errorf("Normalize(%d,%d) = %d,%d", tt.yes, tt.no, m.YesPriceBp, m.NoPriceBp)
		}
	}
}
