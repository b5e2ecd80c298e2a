// Package notify sends operator alerts about trade pipelines to chat
// channels (Telegram, Discord). Alerts can be filtered by event name.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Sender is one notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans an alert out to every Sender. Events are names such as
// "trade.buy" or "trade.create_market"; a filter entry ending in ".*"
// matches every event with that prefix.
type Notifier struct {
	senders  []Sender
	exact    map[string]bool
	prefixes []string
	logger   *slog.Logger
}

// NewNotifier creates a Notifier. An empty events list allows everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	n := &Notifier{
		senders: senders,
		exact:   make(map[string]bool, len(events)),
		logger:  logger.With(slog.String("component", "notifier")),
	}
	for _, e := range events {
		e = strings.TrimSpace(e)
		switch {
		case e == "":
		case strings.HasSuffix(e, ".*"):
			n.prefixes = append(n.prefixes, strings.TrimSuffix(e, "*"))
		default:
			n.exact[e] = true
		}
	}
	return n
}

// Allows reports whether event passes the filter.
func (n *Notifier) Allows(event string) bool {
	if len(n.exact) == 0 && len(n.prefixes) == 0 {
		return true
	}
	if n.exact[event] {
		return true
	}
	for _, p := range n.prefixes {
		if strings.HasPrefix(event, p) {
			return true
		}
	}
	return false
}

// Notify sends to every sender if event passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.Allows(event) {
		n.logger.DebugContext(ctx, "notify: event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyAll sends to every sender regardless of the filter.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch tries every sender; one failure does not stop the others.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "notify: sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notify: sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
