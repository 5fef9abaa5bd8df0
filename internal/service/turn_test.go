package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-orchestrator/internal/booking"
	"github.com/capitalize-ai/chat-orchestrator/internal/crm"
	"github.com/capitalize-ai/chat-orchestrator/internal/locale"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
	"github.com/capitalize-ai/chat-orchestrator/internal/quickresponse"
	"github.com/capitalize-ai/chat-orchestrator/internal/responder"
	"github.com/capitalize-ai/chat-orchestrator/internal/store"
	"github.com/capitalize-ai/chat-orchestrator/pkg/logger"
)

// newTestService wires the full pipeline with no external collaborators: the
// agent tier is absent and the generative tier has no client, so both
// decline on every turn.
func newTestService(t *testing.T) (*TurnService, *store.MemoryStore) {
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
	return NewTurnService(st, chain, crm.NopSyncer{}, log), st
}

func TestProcessTurn_FeesScenario(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.ProcessTurn(context.Background(), TurnInput{
		Message:       "what are your fees",
		ParticipantID: "p1",
		Channel:       model.ChannelWebChat,
		Transport:     "http",
	})
	require.NoError(t, err)

	cand, ok := quickresponse.Match("what are your fees", model.LanguageEnglish)
	require.True(t, ok)
	require.Equal(t, locale.WithDisclaimer(cand.Text, model.LanguageEnglish), res.Response)
	require.Equal(t, "quick_response", res.Agent)
	require.NotEmpty(t, res.ConversationID)
}

func TestProcessTurn_DisclaimerExactlyOnceAcrossTurns(t *testing.T) {
	svc, _ := newTestService(t)

	var convID string
	for _, msg := range []string{"what are your fees", "where is your office", "tell me something"} {
		res, err := svc.ProcessTurn(context.Background(), TurnInput{
			Message:        msg,
			ParticipantID:  "p1",
			ConversationID: convID,
			Channel:        model.ChannelWebChat,
			Transport:      "http",
		})
		require.NoError(t, err)
		require.NotEmpty(t, res.Response)
		require.Equal(t, 1, strings.Count(strings.ToLower(res.Response), "not legal advice"), msg)
		convID = res.ConversationID
	}
}

func TestProcessTurn_BookingScenario(t *testing.T) {
	svc, st := newTestService(t)

	r1, err := svc.ProcessTurn(context.Background(), TurnInput{
		Message:       "I need an appointment",
		ParticipantID: "p1",
		Channel:       model.ChannelWebChat,
		Transport:     "http",
	})
	require.NoError(t, err)
	require.Equal(t, "appointment_booking", r1.Agent)
	require.Contains(t, r1.Response, "What type of legal matter")

	r2, err := svc.ProcessTurn(context.Background(), TurnInput{
		Message:        "immigration",
		ParticipantID:  "p1",
		ConversationID: r1.ConversationID,
		Channel:        model.ChannelWebChat,
		Transport:      "http",
	})
	require.NoError(t, err)
	require.Equal(t, "appointment_booking", r2.Agent)
	require.Contains(t, r2.Response, "day and time")

	r3, err := svc.ProcessTurn(context.Background(), TurnInput{
		Message:        "tomorrow at 2pm",
		ParticipantID:  "p1",
		ConversationID: r1.ConversationID,
		Channel:        model.ChannelWebChat,
		Transport:      "http",
	})
	require.NoError(t, err)
	require.Len(t, r3.Actions, 1)
	require.Equal(t, "appointment-booked", r3.Actions[0].Type)
	require.Regexp(t, regexp.MustCompile(`APT-[0-9A-F]{8}`), r3.Response)

	// The completed state is persisted on the conversation.
	conv, err := st.Conversation(context.Background(), r1.ConversationID)
	require.NoError(t, err)
	require.NotNil(t, conv.BookingFlow)
	require.True(t, conv.BookingFlow.BookingComplete)
	require.Equal(t, "immigration", conv.BookingFlow.Slot(model.SlotPracticeArea))
}

func TestProcessTurn_CompletedBookingNotReTriggered(t *testing.T) {
	svc, _ := newTestService(t)

	r1, err := svc.ProcessTurn(context.Background(), TurnInput{
		Message:       "schedule an immigration consultation",
		ParticipantID: "p1",
		Channel:       model.ChannelWebChat,
	})
	require.NoError(t, err)
	_, err = svc.ProcessTurn(context.Background(), TurnInput{
		Message:        "monday morning",
		ParticipantID:  "p1",
		ConversationID: r1.ConversationID,
		Channel:        model.ChannelWebChat,
	})
	require.NoError(t, err)

	// An unrelated follow-up is not claimed by the booking tier.
	r3, err := svc.ProcessTurn(context.Background(), TurnInput{
		Message:        "thanks, where is your office",
		ParticipantID:  "p1",
		ConversationID: r1.ConversationID,
		Channel:        model.ChannelWebChat,
	})
	require.NoError(t, err)
	require.NotEqual(t, "appointment_booking", r3.Agent)
}

func TestProcessTurn_VoiceEscalationHasPhoneNumber(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.ProcessTurn(context.Background(), TurnInput{
		Message:       "can you call me on the phone",
		ParticipantID: "p1",
		Channel:       model.ChannelWebChat,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Escalation)
	require.Equal(t, model.EscalationVoice, res.Escalation.Type)
	require.Equal(t, locale.OfficePhone, res.Escalation.PhoneNumber)
}

func TestProcessTurn_AnonymousParticipantAssigned(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.ProcessTurn(context.Background(), TurnInput{
		Message: "hello there",
		Channel: model.ChannelWebChat,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.ParticipantID, "anon-"))
}

func TestProcessTurn_FirstPersistedMessageIsSystem(t *testing.T) {
	svc, st := newTestService(t)

	res, err := svc.ProcessTurn(context.Background(), TurnInput{
		Message:       "hello",
		ParticipantID: "p1",
		Channel:       model.ChannelWebChat,
	})
	require.NoError(t, err)

	msgs, err := st.History(context.Background(), res.ConversationID, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(msgs), 3)
	require.Equal(t, model.RoleSystem, msgs[0].Role)
	require.Equal(t, model.RoleUser, msgs[1].Role)
	require.Equal(t, model.RoleAssistant, msgs[2].Role)
}

func TestProcessTurn_ContactInfoRecordedAsSlots(t *testing.T) {
	svc, st := newTestService(t)

	res, err := svc.ProcessTurn(context.Background(), TurnInput{
		Message:       "hello",
		ParticipantID: "p1",
		Channel:       model.ChannelWebChat,
		ContactInfo:   map[string]string{"name": "Maria", "phone": "555-0100"},
	})
	require.NoError(t, err)

	conv, err := st.Conversation(context.Background(), res.ConversationID)
	require.NoError(t, err)
	require.NotNil(t, conv.BookingFlow)
	require.Equal(t, "Maria", conv.BookingFlow.Slot("contact_name"))
	require.Equal(t, "555-0100", conv.BookingFlow.Slot("contact_phone"))
}

func TestProcessTurn_EmptyMessageRejected(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ProcessTurn(context.Background(), TurnInput{Message: "   "})
	require.Error(t, err)
}

func TestStartConversation_PersistsWelcome(t *testing.T) {
	svc, st := newTestService(t)

	conv, welcome, err := svc.StartConversation(context.Background(), "", model.LanguageSpanish, "test-agent")
	require.NoError(t, err)
	require.Equal(t, locale.Welcome(model.LanguageSpanish), welcome)
	require.True(t, strings.HasPrefix(conv.ParticipantID, "anon-"))
	require.Equal(t, model.ChannelSocket, conv.Channel)

	msgs, err := st.History(context.Background(), conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, model.RoleSystem, msgs[0].Role)
	require.Equal(t, model.RoleAssistant, msgs[1].Role)
	require.Equal(t, welcome, msgs[1].Content)
}

func TestClose_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.ProcessTurn(context.Background(), TurnInput{
		Message:       "hello",
		ParticipantID: "p1",
		Channel:       model.ChannelWebChat,
	})
	require.NoError(t, err)

	actor := store.Actor{ParticipantID: "p1"}
	require.NoError(t, svc.Close(context.Background(), res.ConversationID, actor, "user_request", nil))
	require.NoError(t, svc.Close(context.Background(), res.ConversationID, actor, "user_request", nil))
}

func TestConversation_HidesSystemPrompt(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.ProcessTurn(context.Background(), TurnInput{
		Message:       "hello",
		ParticipantID: "p1",
		Channel:       model.ChannelWebChat,
	})
	require.NoError(t, err)

	view, err := svc.Conversation(context.Background(), res.ConversationID, store.Actor{ParticipantID: "p1"})
	require.NoError(t, err)
	for _, m := range view.Messages {
		require.NotEqual(t, model.RoleSystem, m.Role)
	}

	_, err = svc.Conversation(context.Background(), res.ConversationID, store.Actor{ParticipantID: "intruder"})
	require.ErrorIs(t, err, store.ErrForbidden)
}

// historyCapture records how much history reaches the responder tier.
type historyCapture struct {
	turns int
}

func (c *historyCapture) Name() string { return "capture" }

func (c *historyCapture) Respond(ctx context.Context, message string, actx *model.AgentContext) (*responder.Result, error) {
	c.turns = len(actx.History)
	return nil, nil
}

func TestProcessTurn_HistoryWindowBounded(t *testing.T) {
	log, err := logger.New("error")
	require.NoError(t, err)

	capture := &historyCapture{}
	st := store.NewMemoryStore()
	chain := responder.NewChain(log, capture, responder.NewStaticResponder())
	svc := NewTurnService(st, chain, crm.NopSyncer{}, log)

	var convID string
	for i := 0; i < model.HistoryWindow+4; i++ {
		res, err := svc.ProcessTurn(context.Background(), TurnInput{
			Message:        fmt.Sprintf("hello again number %d", i),
			ParticipantID:  "p-window",
			ConversationID: convID,
			Channel:        model.ChannelWebChat,
			Transport:      "http",
		})
		require.NoError(t, err)
		convID = res.ConversationID
	}

	require.Equal(t, model.HistoryWindow, capture.turns)
}
