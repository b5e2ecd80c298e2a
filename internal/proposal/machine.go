// Package proposal drives the conversation that turns free text into a
// validated market-creation request. Every transition is a function over an
// explicit *domain.Conversation; nothing is kept between calls.
package proposal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/pricing"
)

// Turn is one user message on its way to the suggestion service.
type Turn struct {
	Request  domain.SuggestionRequest
	Query    string
	Headline string
}

// BeginSearch starts a search from Idle with a free-text query.
func BeginSearch(c *domain.Conversation, userID, query string, now time.Time) (Turn, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Turn{}, fmt.Errorf("proposal: empty query: %w", domain.ErrValidation)
	}
	if c.State != domain.StateIdle {
		return Turn{}, invalid("search", c)
	}
	c.State = domain.StateSearching
	c.Append(domain.RoleUser, query)
	touch(c, now)
	return Turn{
		Request: domain.SuggestionRequest{SessionID: c.SessionID, UserID: userID, Text: query},
		Query:   query,
	}, nil
}

// BeginHeadline starts a search from Idle seeded by a news headline.
func BeginHeadline(c *domain.Conversation, userID, headline string, now time.Time) (Turn, error) {
	headline = strings.TrimSpace(headline)
	if headline == "" {
		return Turn{}, fmt.Errorf("proposal: empty headline: %w", domain.ErrValidation)
	}
	if c.State != domain.StateIdle {
		return Turn{}, invalid("search", c)
	}
	prompt := fmt.Sprintf("Based on this headline: \"%s\", suggest some questions", headline)
	c.State = domain.StateSearching
	c.Append(domain.RoleUser, prompt)
	touch(c, now)
	return Turn{
		Request: domain.SuggestionRequest{
			SessionID: c.SessionID,
			UserID:    userID,
			Text:      prompt,
			Context:   "Original headline: " + headline,
		},
		Query:    prompt,
		Headline: headline,
	}, nil
}

// FollowUp sends a further user turn while the conversation is searching.
// Once a session exists the turn continues it.
func FollowUp(c *domain.Conversation, userID, text string, now time.Time) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, fmt.Errorf("proposal: empty message: %w", domain.ErrValidation)
	}
	switch c.State {
	case domain.StateSearching, domain.StateAwaitingFreeform, domain.StateSuggesting:
	default:
		return Turn{}, invalid("follow up", c)
	}
	c.Append(domain.RoleUser, text)
	c.SuggestedReply = ""
	touch(c, now)
	return Turn{
		Request: domain.SuggestionRequest{SessionID: c.SessionID, UserID: userID, Text: text},
		Query:   text,
	}, nil
}

// ApplyReply folds a successful suggestion-service answer into c.
// Suggestions move c to Suggesting; a backend-drafted proposal moves it to
// Editing; anything else is a conversational reply that keeps c searching,
// or awaiting a free-form answer when the backend proposes one.
func ApplyReply(c *domain.Conversation, t Turn, r domain.SuggestionReply, now time.Time) {
	defer touch(c, now)

	if r.SessionID != "" && c.SessionID == "" {
		c.SessionID = r.SessionID
	}

	switch {
	case len(r.Suggestions) > 0:
		c.Suggestions = r.Suggestions
		c.State = domain.StateSuggesting
		c.BackendStep = stepSelect
		c.Progress = ProgressSelect
		if r.FromMarkets {
			c.Append(domain.RoleAssistant, foundMessage(t, r))
		} else if r.Message != "" {
			c.Append(domain.RoleAssistant, r.Message)
		}
	case r.AISuggestion != "":
		reply := r.AISuggestion
		if strings.Contains(reply, everythingLooksOK) {
			reply = confirmReply
		}
		c.SuggestedReply = reply
	}

	if r.CurrentStep != nil && *r.CurrentStep != 0 {
		c.BackendStep = *r.CurrentStep
	}
	if r.Progress != "" {
		c.Progress = r.Progress
	}
	if r.Prompt != "" && !r.FromMarkets {
		c.Append(domain.RoleAssistant, r.Prompt)
	}
	if len(r.Suggestions) > 0 {
		return
	}

	if r.Prompt == "" && r.Message != "" {
		c.Append(domain.RoleAssistant, r.Message)
	}
	switch {
	case r.Proposal != nil:
		p := *r.Proposal
		c.Proposal = &p
		c.Suggestions = nil
		c.IsCustom = false
		c.State = domain.StateEditing
		c.SetAnchor(len(c.Messages) - 1)
	case c.State == domain.StateSuggesting:
	case r.AISuggestion != "":
		c.State = domain.StateAwaitingFreeform
	default:
		c.State = domain.StateSearching
	}
}

func foundMessage(t Turn, r domain.SuggestionReply) string {
	if t.Headline != "" {
		return fmt.Sprintf("I found these prediction markets based on the headline \"%s\". Please select one to customize, or create a custom market.", t.Headline)
	}
	q := r.Query
	if q == "" {
		q = t.Query
	}
	return fmt.Sprintf("I found these predictions based on your query \"%s\". Please select one to customize, or create a custom market.", q)
}

// ApplyFailure records a failed turn. State and session are left untouched
// so the user can retry.
func ApplyFailure(c *domain.Conversation, err error, now time.Time) {
	var se *domain.ServiceError
	switch {
	case errors.As(err, &se):
		msg := se.Message
		if msg == "" {
			msg = MsgGenericError
		}
		c.Append(domain.RoleAssistant, warningPrefix+msg)
	default:
		c.Append(domain.RoleAssistant, warningPrefix+MsgNetworkError)
	}
	touch(c, now)
}

// Select turns suggestion idx into the proposal being edited.
func Select(c *domain.Conversation, idx int, now time.Time) error {
	if c.State != domain.StateSuggesting {
		return invalid("select", c)
	}
	if idx < 0 || idx >= len(c.Suggestions) {
		return fmt.Errorf("proposal: suggestion %d out of range: %w", idx, domain.ErrValidation)
	}
	if c.SessionID == "" {
		c.SessionID = syntheticSessionID(now)
		c.SessionSynthetic = true
	}

	chosen := c.Suggestions[idx]
	c.StashSuggestions(c.Suggestions)
	c.Suggestions = nil
	c.Proposal = &chosen
	c.IsCustom = false
	c.State = domain.StateEditing
	c.BackendStep = stepEdit
	c.Progress = ProgressEditing

	c.SetAnchor(len(c.Messages))
	title := chosen.Title
	if title == "" {
		title = chosen.Question
	}
	c.Append(domain.RoleAssistant, fmt.Sprintf("You've selected: \"%s\". Now you can make any changes before creating the market.", title))
	touch(c, now)
	return nil
}

// StartCustom opens an empty proposal. It is offered next to the suggestion
// list and on the landing view.
func StartCustom(c *domain.Conversation, now time.Time) error {
	switch c.State {
	case domain.StateIdle, domain.StateSearching, domain.StateAwaitingFreeform, domain.StateSuggesting:
	default:
		return invalid("start custom", c)
	}
	c.StashSuggestions(nil)
	c.Suggestions = nil
	c.Proposal = &domain.Proposal{Context: customContext}
	c.IsCustom = true
	c.State = domain.StateEditing
	c.BackendStep = stepEdit
	c.Progress = ProgressCustom
	c.SetAnchor(len(c.Messages))
	c.Append(domain.RoleAssistant, MsgCustomStart)
	touch(c, now)
	return nil
}

// Edit sets one proposal field by its JSON name. No network calls.
func Edit(c *domain.Conversation, field, value string, now time.Time) error {
	if c.State != domain.StateEditing || c.Proposal == nil {
		return invalid("edit", c)
	}
	p := c.Proposal
	switch field {
	case "question":
		p.Question = value
	case "title":
		p.Title = value
	case "category":
		p.Category = value
	case "resolution_criteria":
		p.ResolutionCriteria = value
	case "description":
		p.Description = value
	case "context":
		p.Context = value
	case "end_date":
		if _, err := time.Parse(time.DateOnly, strings.TrimSpace(value)); err == nil {
			v, err := domain.EndDateFromInput(value, p.EndDate)
			if err != nil {
				return fmt.Errorf("proposal: edit end_date: %w", err)
			}
			value = v
		}
		p.EndDate = strings.TrimSpace(value)
	case "initial_liquidity":
		if strings.TrimSpace(value) == "" {
			p.InitialLiquidity = nil
			break
		}
		amt, err := pricing.ParseAmount(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("proposal: edit initial_liquidity: %w", errors.Join(domain.ErrValidation, err))
		}
		p.InitialLiquidity = amt
	default:
		return fmt.Errorf("proposal: unknown field %q: %w", field, domain.ErrValidation)
	}
	touch(c, now)
	return nil
}

// Submit validates the proposal. A rejected proposal leaves c in Editing
// with the reason inserted next to the proposal card; an accepted one moves
// c to Submitting and returns the request for the create-market pipeline.
func Submit(c *domain.Conversation, now time.Time) (domain.CreateMarketRequest, error) {
	if c.State != domain.StateEditing || c.Proposal == nil {
		return domain.CreateMarketRequest{}, invalid("submit", c)
	}
	req, err := c.Proposal.Validate(now)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			c.InsertStatus(ve.Message)
		}
		touch(c, now)
		return domain.CreateMarketRequest{}, fmt.Errorf("proposal: submit: %w", err)
	}
	c.State = domain.StateSubmitting
	touch(c, now)
	return req, nil
}

// Complete records a created market and closes the session.
func Complete(c *domain.Conversation, title string, now time.Time) error {
	if c.State != domain.StateSubmitting {
		return invalid("complete", c)
	}
	c.InsertStatus(fmt.Sprintf("Market \"%s\" created! Live now.", title))
	c.State = domain.StateCreated
	c.CreatedTitle = title
	c.BackendStep = stepCreated
	c.Progress = ProgressCreated
	c.SessionID = ""
	c.SessionSynthetic = false
	c.Proposal = nil
	c.StashSuggestions(nil)
	c.ClearAnchor()
	touch(c, now)
	return nil
}

// Fail returns a submitting conversation to Editing with the proposal kept.
// status, when not empty, is inserted next to the proposal card.
func Fail(c *domain.Conversation, status string, now time.Time) error {
	if c.State != domain.StateSubmitting {
		return invalid("fail", c)
	}
	if status != "" {
		c.InsertStatus(status)
	}
	c.State = domain.StateEditing
	touch(c, now)
	return nil
}

// Cancel abandons the proposal being edited. A custom proposal resets the
// conversation; a selected suggestion goes back to the list it came from.
func Cancel(c *domain.Conversation, now time.Time) error {
	if c.State != domain.StateEditing {
		return invalid("cancel", c)
	}
	if c.IsCustom || len(c.StashedSuggestions()) == 0 {
		reset(c)
		touch(c, now)
		return nil
	}
	c.Suggestions = c.StashedSuggestions()
	c.StashSuggestions(nil)
	c.Proposal = nil
	c.ClearAnchor()
	c.State = domain.StateSuggesting
	c.BackendStep = stepSelect
	c.Progress = ProgressSelect
	touch(c, now)
	return nil
}

// Reset starts over after a market was created.
func Reset(c *domain.Conversation, now time.Time) error {
	if c.State == domain.StateSubmitting {
		return invalid("reset", c)
	}
	reset(c)
	touch(c, now)
	return nil
}

func reset(c *domain.Conversation) {
	c.Messages = nil
	c.Suggestions = nil
	c.StashSuggestions(nil)
	c.Proposal = nil
	c.IsCustom = false
	c.SessionID = ""
	c.SessionSynthetic = false
	c.SuggestedReply = ""
	c.CreatedTitle = ""
	c.State = domain.StateIdle
	c.BackendStep = stepSearch
	c.Progress = ""
	c.ClearAnchor()
}

func syntheticSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("temp_%d_%s", now.UnixMilli(), suffix)
}

func invalid(action string, c *domain.Conversation) error {
	return fmt.Errorf("proposal: %s from %s: %w", action, c.State, domain.ErrInvalidTransition)
}

func touch(c *domain.Conversation, now time.Time) {
	c.UpdatedAt = now
}
