package domain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// EndDateLayout is the display format of Proposal.EndDate.
const EndDateLayout = "02/01/2006 15:04:05"

// defaultEndClock is used when EndDate carries only a calendar date.
const defaultEndClock = "23:59:59"

// Proposal is a draft market. It is created empty (custom path) or from a
// selected Suggestion and is mutated field by field while editing.
type Proposal struct {
	Question           string   `json:"question"`
	Title              string   `json:"title,omitempty"`
	Category           string   `json:"category"`
	EndDate            string   `json:"end_date"`
	ResolutionCriteria string   `json:"resolution_criteria"`
	Description        string   `json:"description,omitempty"`
	AIProbability      float64  `json:"ai_probability,omitempty"`
	Confidence         float64  `json:"confidence,omitempty"`
	SentimentScore     float64  `json:"sentiment_score,omitempty"`
	KeyFactors         []string `json:"key_factors,omitempty"`
	Sources            []string `json:"sources,omitempty"`
	Context            string   `json:"context,omitempty"`
	InitialLiquidity   *big.Int `json:"initial_liquidity,omitempty"`
}

// Suggestion is a market proposal ranked by the suggestion service.
type Suggestion = Proposal

// ValidationError carries the user-facing reason a proposal was rejected.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Unwrap lets callers match ErrValidation with errors.Is.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// CreateMarketRequest is a validated proposal ready for the create-market pipeline.
type CreateMarketRequest struct {
	Title              string
	Description        string
	ResolutionCriteria string
	Category           string
	EndTime            time.Time
	InitialLiquidity   *big.Int
}

// Validate checks the proposal against now and returns the create request.
// The returned error is a *ValidationError whose message is shown verbatim.
func (p Proposal) Validate(now time.Time) (CreateMarketRequest, error) {
	switch {
	case strings.TrimSpace(p.Question) == "":
		return CreateMarketRequest{}, &ValidationError{Message: "Enter a market question."}
	case strings.TrimSpace(p.Category) == "":
		return CreateMarketRequest{}, &ValidationError{Message: "Enter a category."}
	case strings.TrimSpace(p.EndDate) == "":
		return CreateMarketRequest{}, &ValidationError{Message: "Select an end date."}
	case strings.TrimSpace(p.ResolutionCriteria) == "":
		return CreateMarketRequest{}, &ValidationError{Message: "Add resolution criteria."}
	}

	end, err := ParseEndDate(p.EndDate)
	if err != nil {
		return CreateMarketRequest{}, &ValidationError{Message: "Invalid date format."}
	}
	if end.Unix() <= now.Unix() {
		return CreateMarketRequest{}, &ValidationError{Message: "End time must be in the future!"}
	}

	desc := strings.TrimSpace(p.Description)
	if desc == "" {
		desc = p.ResolutionCriteria
	}
	var liq *big.Int
	if p.InitialLiquidity != nil {
		liq = new(big.Int).Set(p.InitialLiquidity)
	}
	return CreateMarketRequest{
		Title:              strings.TrimSpace(p.Question),
		Description:        desc,
		ResolutionCriteria: p.ResolutionCriteria,
		Category:           p.Category,
		EndTime:            end,
		InitialLiquidity:   liq,
	}, nil
}

// ParseEndDate parses "DD/MM/YYYY[ HH:MM:SS]" as a UTC instant. A missing
// time of day means end of day.
func ParseEndDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	datePart, clock, _ := strings.Cut(s, " ")
	clock = strings.TrimSpace(clock)
	if clock == "" {
		clock = defaultEndClock
	}
	t, err := time.ParseInLocation(EndDateLayout, datePart+" "+clock, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("domain: parse end date %q: %w", s, err)
	}
	return t, nil
}

// FormatEndDate renders t in the proposal display format (UTC).
func FormatEndDate(t time.Time) string {
	return t.UTC().Format(EndDateLayout)
}

// DisplayDate converts an end date to the YYYY-MM-DD form used by date
// inputs. Unparseable input yields "".
func DisplayDate(s string) string {
	t, err := ParseEndDate(s)
	if err != nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

// EndDateFromInput converts a YYYY-MM-DD date input back to the display
// format, keeping the time of day from prev when it parses.
func EndDateFromInput(date, prev string) (string, error) {
	d, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(date), time.UTC)
	if err != nil {
		return "", errors.Join(ErrValidation, err)
	}
	clock := defaultEndClock
	if p, err := ParseEndDate(prev); err == nil {
		clock = p.Format(time.TimeOnly)
	}
	return d.Format("02/01/2006") + " " + clock, nil
}
