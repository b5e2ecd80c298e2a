package domain

import "time"

// ConversationState is the position of a conversation in the proposal flow.
type ConversationState string

const (
	StateIdle             ConversationState = "idle"
	StateSearching        ConversationState = "searching"
	StateSuggesting       ConversationState = "suggesting"
	StateAwaitingFreeform ConversationState = "awaiting_freeform"
	StateEditing          ConversationState = "editing"
	StateSubmitting       ConversationState = "submitting"
	StateCreated          ConversationState = "created"
)

// Role identifies the author of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NoAnchor marks a conversation without a proposal card.
const NoAnchor = -1

// Conversation is the aggregate every proposal transition operates on.
// It carries the session id and proposal anchor explicitly instead of
// keeping them as ambient state.
type Conversation struct {
	ID               string            `json:"id"`
	Owner            string            `json:"owner"`
	SessionID        string            `json:"session_id,omitempty"`
	SessionSynthetic bool              `json:"session_synthetic,omitempty"`
	State            ConversationState `json:"state"`
	BackendStep      int               `json:"backend_step"`
	Progress         string            `json:"progress"`
	Messages         []Message         `json:"messages"`
	AnchorIndex      int               `json:"anchor_index"`
	Suggestions      []Suggestion      `json:"suggestions,omitempty"`
	Proposal         *Proposal         `json:"proposal,omitempty"`
	IsCustom         bool              `json:"is_custom"`
	SuggestedReply   string            `json:"suggested_reply,omitempty"`
	CreatedTitle     string            `json:"created_title,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`

	// Shown holds the suggestion list while a selection is being edited so
	// that cancel can present it again.
	Shown []Suggestion `json:"shown,omitempty"`
	// Cursor is where the next status line goes.
	Cursor int `json:"cursor"`
}

// NewConversation returns an idle conversation with no anchor.
func NewConversation(id, owner string, now time.Time) *Conversation {
	return &Conversation{
		ID:          id,
		Owner:       owner,
		State:       StateIdle,
		AnchorIndex: NoAnchor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Append adds a transcript entry at the end.
func (c *Conversation) Append(role Role, content string) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content})
}

// SetAnchor records the transcript position of the proposal card. Status
// lines are inserted directly after it.
func (c *Conversation) SetAnchor(idx int) {
	c.AnchorIndex = idx
	c.Cursor = idx + 1
}

// ClearAnchor drops the proposal anchor.
func (c *Conversation) ClearAnchor() {
	c.AnchorIndex = NoAnchor
	c.Cursor = 0
}

// InsertStatus places an assistant status line next to the proposal card,
// or at the end of the transcript when there is no anchor. Successive
// status lines keep their order.
func (c *Conversation) InsertStatus(content string) {
	msg := Message{Role: RoleAssistant, Content: content}
	if c.AnchorIndex < 0 {
		c.Messages = append(c.Messages, msg)
		return
	}
	at := c.Cursor
	if at < c.AnchorIndex+1 {
		at = c.AnchorIndex + 1
	}
	if at >= len(c.Messages) {
		c.Messages = append(c.Messages, msg)
		c.Cursor = len(c.Messages)
		return
	}
	c.Messages = append(c.Messages, Message{})
	copy(c.Messages[at+1:], c.Messages[at:])
	c.Messages[at] = msg
	c.Cursor = at + 1
}

// StashSuggestions keeps the shown list for a later cancel.
func (c *Conversation) StashSuggestions(s []Suggestion) { c.Shown = s }

// StashedSuggestions returns the list shown before the last selection.
func (c *Conversation) StashedSuggestions() []Suggestion { return c.Shown }

// Clone returns a copy whose slices do not alias c.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Messages = append([]Message(nil), c.Messages...)
	out.Suggestions = append([]Suggestion(nil), c.Suggestions...)
	out.Shown = append([]Suggestion(nil), c.Shown...)
	if c.Proposal != nil {
		p := *c.Proposal
		out.Proposal = &p
	}
	return &out
}
