package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/zento/internal/domain"
	"github.com/alanyoungcy/zento/internal/server/middleware"
	"github.com/alanyoungcy/zento/internal/trade"
)

// ConversationService is what the conversation handler needs from the
// service layer.
type ConversationService interface {
	Start(ctx context.Context, query, headline string) (*domain.Conversation, error)
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	Send(ctx context.Context, id, text string) (*domain.Conversation, error)
	Select(ctx context.Context, id string, idx int) (*domain.Conversation, error)
	StartCustom(ctx context.Context, id string) (*domain.Conversation, error)
	Edit(ctx context.Context, id string, fields map[string]string) (*domain.Conversation, error)
	Submit(ctx context.Context, id string) (*domain.Conversation, trade.Result, error)
	Cancel(ctx context.Context, id string) (*domain.Conversation, error)
	Reset(ctx context.Context, id string) (*domain.Conversation, error)
}

// ConversationHandler drives the market-proposal conversations.
type ConversationHandler struct {
	convs  ConversationService
	logger *slog.Logger
}

// NewConversationHandler creates a ConversationHandler.
func NewConversationHandler(convs ConversationService, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{convs: convs, logger: logger}
}

type startRequest struct {
	Query    string `json:"query"`
	Headline string `json:"headline"`
}

// Start opens a conversation and runs the first search.
// POST /api/conversations {"query":"..."} or {"headline":"..."}
func (h *ConversationHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" && strings.TrimSpace(req.Headline) == "" {
		writeError(w, http.StatusBadRequest, "query or headline required")
		return
	}
	c, err := h.convs.Start(r.Context(), req.Query, req.Headline)
	h.respond(w, r, c, err, http.StatusCreated)
}

// Get returns a conversation.
// GET /api/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.convs.Get(r.Context(), r.PathValue("id"))
	h.respond(w, r, c, err, http.StatusOK)
}

type messageRequest struct {
	Text string `json:"text"`
}

// Send sends a follow-up message.
// POST /api/conversations/{id}/messages {"text":"..."}
func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.convs.Send(r.Context(), r.PathValue("id"), req.Text)
	h.respond(w, r, c, err, http.StatusOK)
}

type selectRequest struct {
	Index int `json:"index"`
}

// Select picks a suggestion to edit.
// POST /api/conversations/{id}/select {"index":0}
func (h *ConversationHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.convs.Select(r.Context(), r.PathValue("id"), req.Index)
	h.respond(w, r, c, err, http.StatusOK)
}

// StartCustom opens an empty proposal.
// POST /api/conversations/{id}/custom
func (h *ConversationHandler) StartCustom(w http.ResponseWriter, r *http.Request) {
	c, err := h.convs.StartCustom(r.Context(), r.PathValue("id"))
	h.respond(w, r, c, err, http.StatusOK)
}

// Edit updates proposal fields.
// PATCH /api/conversations/{id}/proposal {"title":"...","end_date":"2026-12-31"}
func (h *ConversationHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := decodeBody(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "no fields to edit")
		return
	}
	c, err := h.convs.Edit(r.Context(), r.PathValue("id"), fields)
	h.respond(w, r, c, err, http.StatusOK)
}

type submitResponse struct {
	Conversation *domain.Conversation `json:"conversation"`
	Result       trade.Result         `json:"result"`
}

// Submit validates the proposal and creates the market.
// POST /api/conversations/{id}/submit
func (h *ConversationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	c, res, err := h.convs.Submit(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logError(r, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Conversation: c, Result: res})
}

// Cancel abandons the proposal.
// POST /api/conversations/{id}/cancel
func (h *ConversationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	c, err := h.convs.Cancel(r.Context(), r.PathValue("id"))
	h.respond(w, r, c, err, http.StatusOK)
}

// Reset clears the conversation.
// POST /api/conversations/{id}/reset
func (h *ConversationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	c, err := h.convs.Reset(r.Context(), r.PathValue("id"))
	h.respond(w, r, c, err, http.StatusOK)
}

func (h *ConversationHandler) respond(w http.ResponseWriter, r *http.Request, c *domain.Conversation, err error, status int) {
	if err != nil {
		h.logError(r, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, status, c)
}

func (h *ConversationHandler) logError(r *http.Request, err error) {
	if statusFor(err) != http.StatusInternalServerError {
		return
	}
	h.logger.ErrorContext(r.Context(), "handler: conversation request failed",
		slog.String("request_id", middleware.RequestID(r.Context())),
		slog.String("conversation_id", r.PathValue("id")),
		slog.String("error", err.Error()),
	)
}
