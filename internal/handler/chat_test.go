package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-orchestrator/internal/booking"
	"github.com/capitalize-ai/chat-orchestrator/internal/crm"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
	"github.com/capitalize-ai/chat-orchestrator/internal/responder"
	"github.com/capitalize-ai/chat-orchestrator/internal/service"
	"github.com/capitalize-ai/chat-orchestrator/internal/store"
	"github.com/capitalize-ai/chat-orchestrator/pkg/logger"
)

func newTestHandlers(t *testing.T) (*ChatHandler, *WSHandler) {
	t.Helper()
	ch, ws, _ := newTestHandlersWithStore(t)
	return ch, ws
}

func newTestHandlersWithStore(t *testing.T) (*ChatHandler, *WSHandler, *store.MemoryStore) {
	t.Helper()
	log, err := logger.New("error")
	require.NoError(t, err)

	st := store.NewMemoryStore()
	chain := responder.NewChain(log,
		responder.NewEscalationResponder(),
		responder.NewBookingResponder(booking.New()),
		responder.NewAgentResponder(nil, time.Second),
		responder.NewGenerativeResponder(nil, "", time.Second),
		responder.NewStaticResponder(),
	)
	turns := service.NewTurnService(st, chain, crm.NopSyncer{}, log)
	return NewChatHandler(turns, log), NewWSHandler(turns, log), st
}

func postChat(t *testing.T, h *ChatHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h.Post(rec, req)
	return rec
}

func TestChatPost_EmptyMessageRejected(t *testing.T) {
	h, _ := newTestHandlers(t)
	rec := postChat(t, h, model.ChatRequest{Message: ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatPost_InvalidBodyRejected(t *testing.T) {
	h, _ := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	h.Post(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatPost_ReturnsReply(t *testing.T) {
	h, _ := newTestHandlers(t)
	rec := postChat(t, h, model.ChatRequest{Message: "what are your fees", ParticipantID: "p1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var res model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.Response)
	require.NotEmpty(t, res.ConversationID)
	require.Equal(t, "p1", res.ParticipantID)
	require.Equal(t, "quick_response", res.Agent)
}

func TestChatGet_WithoutIDIsLiveness(t *testing.T) {
	h, _ := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}

func TestChatGet_NotFound(t *testing.T) {
	h, _ := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodGet, "/chat?conversationId=00000000-0000-0000-0000-000000000001", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatGet_ForbiddenForOtherParticipant(t *testing.T) {
	h, _ := newTestHandlers(t)
	rec := postChat(t, h, model.ChatRequest{Message: "hello", ParticipantID: "alice"})
	var res model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	url := fmt.Sprintf("/chat?conversationId=%s&participantId=bob", res.ConversationID)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	getRec := httptest.NewRecorder()
	h.Get(getRec, req)
	require.Equal(t, http.StatusForbidden, getRec.Code)
}

func TestChatGet_OwnerSeesHistoryWithoutSystemPrompt(t *testing.T) {
	h, _ := newTestHandlers(t)
	rec := postChat(t, h, model.ChatRequest{Message: "hello", ParticipantID: "alice"})
	var res model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	url := fmt.Sprintf("/chat?conversationId=%s&participantId=alice", res.ConversationID)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	getRec := httptest.NewRecorder()
	h.Get(getRec, req)
	require.Equal(t, http.StatusOK, getRec.Code)

	var view model.ConversationView
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &view))
	require.Len(t, view.Messages, 2)
	require.Equal(t, model.RoleUser, view.Messages[0].Role)
	require.Equal(t, model.RoleAssistant, view.Messages[1].Role)
}

func TestChatDelete_Idempotent(t *testing.T) {
	h, _ := newTestHandlers(t)
	rec := postChat(t, h, model.ChatRequest{Message: "hello", ParticipantID: "alice"})
	var res model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	for i := 0; i < 2; i++ {
		raw, err := json.Marshal(model.CloseRequest{ConversationID: res.ConversationID, ParticipantID: "alice"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodDelete, "/chat", bytes.NewReader(raw))
		delRec := httptest.NewRecorder()
		h.Delete(delRec, req)
		require.Equal(t, http.StatusOK, delRec.Code)
		require.Contains(t, delRec.Body.String(), `"success":true`)
	}
}

func TestChatDelete_ForbiddenForOtherParticipant(t *testing.T) {
	h, _ := newTestHandlers(t)
	rec := postChat(t, h, model.ChatRequest{Message: "hello", ParticipantID: "alice"})
	var res model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	raw, err := json.Marshal(model.CloseRequest{ConversationID: res.ConversationID, ParticipantID: "bob"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodDelete, "/chat", bytes.NewReader(raw))
	delRec := httptest.NewRecorder()
	h.Delete(delRec, req)
	require.Equal(t, http.StatusForbidden, delRec.Code)
}
