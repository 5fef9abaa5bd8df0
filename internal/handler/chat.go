// Package handler implements the HTTP and socket transports. Both are thin:
// they parse an envelope, call the shared TurnService, and write the
// normalized response.
package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-orchestrator/internal/middleware"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
	"github.com/capitalize-ai/chat-orchestrator/internal/service"
	"github.com/capitalize-ai/chat-orchestrator/pkg/logger"
)

// ChatHandler serves the stateless web-chat transport.
type ChatHandler struct {
	turns  *service.TurnService
	logger *logger.Logger
}

// NewChatHandler creates the chat handler.
func NewChatHandler(turns *service.TurnService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{turns: turns, logger: log}
}

// Post handles POST /chat: one inbound message, one reply.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateParticipantID(req.ParticipantID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ConversationID != "" {
		if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	participantID := req.ParticipantID
	if authed := middleware.AuthenticatedParticipant(r.Context()); authed != "" {
		participantID = authed
	}

	res, err := h.turns.ProcessTurn(r.Context(), service.TurnInput{
		Message:        req.Message,
		ParticipantID:  participantID,
		ConversationID: req.ConversationID,
		Language:       req.Language,
		Channel:        model.ChannelWebChat,
		Transport:      "http",
		UserAgent:      r.UserAgent(),
		ContactInfo:    req.ContactInfo,
	})
	if err != nil {
		h.logger.Error("turn failed before conversation context", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "unable to process message")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Get handles GET /chat?conversationId=...: conversation plus visible
// history. The seeded system prompt is never returned. Without an id it is a
// liveness probe.
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversationId")
	if conversationID == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor := middleware.ActorFromContext(r.Context(), r.URL.Query().Get("participantId"))
	view, err := h.turns.Conversation(r.Context(), conversationID, actor)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Delete handles DELETE /chat: close a conversation. Closing twice succeeds.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req model.CloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor := middleware.ActorFromContext(r.Context(), req.ParticipantID)
	if err := h.turns.Close(r.Context(), req.ConversationID, actor, "user_request", nil); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"conversationId": req.ConversationID,
	})
}
