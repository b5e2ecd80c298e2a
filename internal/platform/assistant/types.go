package assistant

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/alanyoungcy/zento/internal/domain"
)

type searchRequest struct {
	Query   string `json:"query"`
	UserID  string `json:"user_id"`
	Context string `json:"context,omitempty"`
}

type continueRequest struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	Context   string `json:"context,omitempty"`
}

// apiReply is the raw response of both endpoints. Item lists are decoded
// lazily so one malformed suggestion does not discard the others.
type apiReply struct {
	Success           *bool             `json:"success"`
	SessionID         string            `json:"session_id"`
	PredictionMarkets []json.RawMessage `json:"prediction_markets"`
	Suggestions       []json.RawMessage `json:"suggestions"`
	AISuggestion      string            `json:"ai_suggestion"`
	Proposal          json.RawMessage   `json:"proposal"`
	CurrentStep       *flexInt          `json:"current_step"`
	Progress          string            `json:"progress"`
	Prompt            string            `json:"prompt"`
	Message           string            `json:"message"`
	Query             string            `json:"query"`
}

type apiSuggestion struct {
	Question           string    `json:"question"`
	Title              string    `json:"title"`
	Category           string    `json:"category"`
	EndDate            string    `json:"end_date"`
	ResolutionCriteria string    `json:"resolution_criteria"`
	Description        string    `json:"description"`
	AIProbability      flexFloat `json:"ai_probability"`
	Confidence         flexFloat `json:"confidence"`
	SentimentScore     flexFloat `json:"sentiment_score"`
	KeyFactors         []string  `json:"key_factors"`
	Sources            []string  `json:"sources"`
	Context            string    `json:"context"`
}

// flexFloat accepts a JSON number, a numeric string or null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (i *flexInt) UnmarshalJSON(b []byte) error {
	var f flexFloat
	if err := f.UnmarshalJSON(b); err != nil {
		return err
	}
	*i = flexInt(f)
	return nil
}

// decodeSuggestion normalises one list item. Items may be full objects or
// bare question strings; anything without a question is rejected.
func decodeSuggestion(raw json.RawMessage) (domain.Suggestion, bool) {
	var q string
	if err := json.Unmarshal(raw, &q); err == nil {
		q = strings.TrimSpace(q)
		return domain.Suggestion{Question: q, Title: q}, q != ""
	}
	var s apiSuggestion
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Suggestion{}, false
	}
	s.Question = strings.TrimSpace(s.Question)
	s.Title = strings.TrimSpace(s.Title)
	if s.Question == "" {
		s.Question = s.Title
	}
	if s.Question == "" {
		return domain.Suggestion{}, false
	}
	if s.Title == "" {
		s.Title = s.Question
	}
	return domain.Suggestion{
		Question:           s.Question,
		Title:              s.Title,
		Category:           strings.TrimSpace(s.Category),
		EndDate:            strings.TrimSpace(s.EndDate),
		ResolutionCriteria: strings.TrimSpace(s.ResolutionCriteria),
		Description:        s.Description,
		AIProbability:      float64(s.AIProbability),
		Confidence:         float64(s.Confidence),
		SentimentScore:     float64(s.SentimentScore),
		KeyFactors:         nonNil(s.KeyFactors),
		Sources:            nonNil(s.Sources),
		Context:            s.Context,
	}, true
}

func decodeList(items []json.RawMessage) []domain.Suggestion {
	out := make([]domain.Suggestion, 0, len(items))
	for _, raw := range items {
		if s, ok := decodeSuggestion(raw); ok {
			out = append(out, s)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// toDomain applies the precedence of the reply fields: prediction_markets
// first, then suggestions.
func (r apiReply) toDomain() domain.SuggestionReply {
	out := domain.SuggestionReply{
		SessionID:    r.SessionID,
		AISuggestion: strings.TrimSpace(r.AISuggestion),
		Progress:     r.Progress,
		Prompt:       strings.TrimSpace(r.Prompt),
		Message:      strings.TrimSpace(r.Message),
		Query:        r.Query,
	}
	if ms := decodeList(r.PredictionMarkets); len(ms) > 0 {
		out.Suggestions = ms
		out.FromMarkets = true
	} else if ss := decodeList(r.Suggestions); len(ss) > 0 {
		out.Suggestions = ss
	}
	if len(r.Proposal) > 0 && string(r.Proposal) != "null" {
		if p, ok := decodeSuggestion(r.Proposal); ok {
			out.Proposal = &p
		}
	}
	if r.CurrentStep != nil {
		step := int(*r.CurrentStep)
		out.CurrentStep = &step
	}
	return out
}
