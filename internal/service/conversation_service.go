package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/proposal"
	"github.com/alanyoungcy/zento/internal/trade"
)

// ConversationsChannel is the signal-bus channel conversation updates are
// published on.
const ConversationsChannel = "zento:conversations"

// conversationLockTTL covers a full create-market pipeline.
const conversationLockTTL = 10 * time.Minute

// MarketCreator runs the create-market pipeline.
type MarketCreator interface {
	Wallet() string
	CreateMarket(ctx context.Context, p domain.Proposal, sink trade.StatusSink) trade.Result
}

// ConversationService owns the conversation sessions: it loads a
// conversation, applies one state-machine transition, talks to the
// suggestion service or the trade pipeline, and saves the result.
type ConversationService struct {
	store     domain.ConversationStore
	assistant domain.SuggestionService
	creator   MarketCreator
	locks     domain.LockManager
	archive   domain.BlobWriter
	bus       domain.SignalBus
	userID    string
	now       func() time.Time
	logger    *slog.Logger
}

// NewConversationService creates a ConversationService. archive and bus
// may be nil; a nil locks falls back to in-process locking.
func NewConversationService(
	store domain.ConversationStore,
	assistant domain.SuggestionService,
	creator MarketCreator,
	locks domain.LockManager,
	archive domain.BlobWriter,
	bus domain.SignalBus,
	userID string,
	logger *slog.Logger,
) *ConversationService {
	if locks == nil {
		locks = trade.NewLocalLocks()
	}
	return &ConversationService{
		store:     store,
		assistant: assistant,
		creator:   creator,
		locks:     locks,
		archive:   archive,
		bus:       bus,
		userID:    userID,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "conversation_service")),
	}
}

// Start opens a conversation with a free-text query or, when headline is
// set, a headline-seeded search, and runs the first turn.
func (s *ConversationService) Start(ctx context.Context, query, headline string) (*domain.Conversation, error) {
	now := s.now()
	c := domain.NewConversation(uuid.New().String(), s.owner(), now)

	var (
		t   proposal.Turn
		err error
	)
	if headline != "" {
		t, err = proposal.BeginHeadline(c, s.user(), headline, now)
	} else {
		t, err = proposal.BeginSearch(c, s.user(), query, now)
	}
	if err != nil {
		return nil, fmt.Errorf("conversation_service: start: %w", err)
	}
	s.ask(ctx, c, t)

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns a conversation by id.
func (s *ConversationService) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("conversation_service: get %s: %w", id, err)
	}
	return c, nil
}

// Send sends a follow-up user message.
func (s *ConversationService) Send(ctx context.Context, id, text string) (*domain.Conversation, error) {
	return s.update(ctx, id, func(c *domain.Conversation) error {
		t, err := proposal.FollowUp(c, s.user(), text, s.now())
		if err != nil {
			return err
		}
		s.ask(ctx, c, t)
		return nil
	})
}

// Select picks suggestion idx for editing.
func (s *ConversationService) Select(ctx context.Context, id string, idx int) (*domain.Conversation, error) {
	return s.update(ctx, id, func(c *domain.Conversation) error {
		return proposal.Select(c, idx, s.now())
	})
}

// StartCustom opens an empty proposal.
func (s *ConversationService) StartCustom(ctx context.Context, id string) (*domain.Conversation, error) {
	return s.update(ctx, id, func(c *domain.Conversation) error {
		return proposal.StartCustom(c, s.now())
	})
}

// Edit applies field edits in name order and stops at the first bad one.
func (s *ConversationService) Edit(ctx context.Context, id string, fields map[string]string) (*domain.Conversation, error) {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return s.update(ctx, id, func(c *domain.Conversation) error {
		for _, k := range names {
			if err := proposal.Edit(c, k, fields[k], s.now()); err != nil {
				return err
			}
		}
		return nil
	})
}

// Cancel abandons the proposal being edited.
func (s *ConversationService) Cancel(ctx context.Context, id string) (*domain.Conversation, error) {
	return s.update(ctx, id, func(c *domain.Conversation) error {
		return proposal.Cancel(c, s.now())
	})
}

// Reset clears the conversation for another market.
func (s *ConversationService) Reset(ctx context.Context, id string) (*domain.Conversation, error) {
	return s.update(ctx, id, func(c *domain.Conversation) error {
		return proposal.Reset(c, s.now())
	})
}

// Submit validates the proposal and runs the create-market pipeline.
// Validation and pipeline failures end up as status lines in the
// transcript and are not returned as errors; the pipeline Result is
// returned for callers that need the transaction hash.
func (s *ConversationService) Submit(ctx context.Context, id string) (*domain.Conversation, trade.Result, error) {
	var res trade.Result
	c, err := s.update(ctx, id, func(c *domain.Conversation) error {
		if s.creator.Wallet() == "" {
			c.InsertStatus(proposal.MsgConnectWallet)
			return nil
		}
		if _, err := proposal.Submit(c, s.now()); err != nil {
			if errors.Is(err, domain.ErrValidation) {
				return nil
			}
			return err
		}

		res = s.creator.CreateMarket(ctx, *c.Proposal, c.InsertStatus)
		if res.OK {
			if err := proposal.Complete(c, res.Title, s.now()); err != nil {
				return err
			}
			s.archiveTranscript(ctx, c)
			return nil
		}
		return proposal.Fail(c, "", s.now())
	})
	return c, res, err
}

// update runs fn on a locked, freshly loaded conversation and saves it.
// fn errors abort without saving.
func (s *ConversationService) update(ctx context.Context, id string, fn func(*domain.Conversation) error) (*domain.Conversation, error) {
	unlock, err := s.locks.Acquire(ctx, "conversation:"+id, conversationLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			err = domain.ErrBusy
		}
		return nil, fmt.Errorf("conversation_service: lock %s: %w", id, err)
	}
	defer unlock()

	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("conversation_service: load %s: %w", id, err)
	}
	if err := fn(c); err != nil {
		return nil, fmt.Errorf("conversation_service: %s: %w", id, err)
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ConversationService) save(ctx context.Context, c *domain.Conversation) error {
	if err := s.store.Save(ctx, c); err != nil {
		return fmt.Errorf("conversation_service: save %s: %w", c.ID, err)
	}
	s.publish(ctx, c)
	return nil
}

// ask sends one turn. Service failures become transcript lines.
func (s *ConversationService) ask(ctx context.Context, c *domain.Conversation, t proposal.Turn) {
	reply, err := s.assistant.Suggest(ctx, t.Request)
	if err != nil {
		s.logger.WarnContext(ctx, "conversation_service: suggestion request failed",
			slog.String("conversation_id", c.ID),
			slog.String("error", err.Error()),
		)
		proposal.ApplyFailure(c, err, s.now())
		return
	}
	proposal.ApplyReply(c, t, reply, s.now())
}

func (s *ConversationService) publish(ctx context.Context, c *domain.Conversation) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"event":           "conversation_updated",
		"conversation_id": c.ID,
		"state":           c.State,
		"progress":        c.Progress,
		"messages":        len(c.Messages),
	})
	if err == nil {
		err = s.bus.Publish(ctx, ConversationsChannel, payload)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "conversation_service: publish failed",
			slog.String("conversation_id", c.ID),
			slog.String("error", err.Error()),
		)
	}
}

// archiveTranscript stores the transcript of a conversation that created a
// market. Failures are logged only.
func (s *ConversationService) archiveTranscript(ctx context.Context, c *domain.Conversation) {
	if s.archive == nil {
		return
	}
	data, err := json.Marshal(c)
	if err == nil {
		path := fmt.Sprintf("transcripts/%s/%s.json", c.CreatedAt.UTC().Format("2006/01/02"), c.ID)
		err = s.archive.Put(context.WithoutCancel(ctx), path, bytes.NewReader(data), "application/json")
	}
	if err != nil {
		s.logger.WarnContext(ctx, "conversation_service: archive transcript failed",
			slog.String("conversation_id", c.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ConversationService) owner() string {
	if w := s.creator.Wallet(); w != "" {
		return w
	}
	return s.user()
}

func (s *ConversationService) user() string {
	if s.userID != "" {
		return s.userID
	}
	if w := s.creator.Wallet(); w != "" {
		return w
	}
	return "anonymous"
}
