// Package service holds the turn pipeline shared by the HTTP and socket
// transports. Both hand every inbound message to the same TurnService so
// matching, booking state, escalation, and persistence behave identically
// regardless of how the message arrived.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-orchestrator/internal/crm"
	"github.com/capitalize-ai/chat-orchestrator/internal/delivery"
	"github.com/capitalize-ai/chat-orchestrator/internal/locale"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
	"github.com/capitalize-ai/chat-orchestrator/internal/quickresponse"
	"github.com/capitalize-ai/chat-orchestrator/internal/responder"
	"github.com/capitalize-ai/chat-orchestrator/internal/store"
	"github.com/capitalize-ai/chat-orchestrator/pkg/logger"
	"github.com/capitalize-ai/chat-orchestrator/pkg/metrics"
)

// TurnInput carries one inbound message plus its transport envelope.
type TurnInput struct {
	Message        string
	ParticipantID  string
	ConversationID string
	Language       model.Language
	Channel        model.Channel
	Transport      string
	UserAgent      string

	// ContactInfo is optional caller-supplied contact detail, recorded as
	// booking slots so a later flow does not re-ask for it.
	ContactInfo map[string]string

	// ForceNew starts a fresh conversation instead of reusing the active
	// one. Set by the socket transport's init event.
	ForceNew bool
}

// TurnService runs the per-message pipeline: resolve the conversation,
// persist the inbound message, run the responder chain, persist and mirror
// the reply. Turns on the same conversation are serialized by a keyed lock,
// so booking-flow read-modify-write never interleaves.
type TurnService struct {
	store  store.Store
	locker *store.Locker
	chain  *responder.Chain
	syncer crm.Syncer
	logger *logger.Logger
}

// NewTurnService wires the pipeline. syncer may be a crm.NopSyncer when the
// side channel is disabled.
func NewTurnService(st store.Store, chain *responder.Chain, syncer crm.Syncer, log *logger.Logger) *TurnService {
	return &TurnService{
		store:  st,
		locker: store.NewLocker(),
		chain:  chain,
		syncer: syncer,
		logger: log,
	}
}

// ProcessTurn handles one inbound message end to end and returns the wire
// response. It fails only when no conversation context could be established;
// once a conversation exists, pipeline failures degrade to the static
// fallback rather than surfacing an error.
func (s *TurnService) ProcessTurn(ctx context.Context, in TurnInput) (*model.ChatResponse, error) {
	started := time.Now()

	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, fmt.Errorf("empty message")
	}
	if in.ParticipantID == "" {
		in.ParticipantID = AnonymousParticipantID()
	}
	if in.Channel == "" {
		in.Channel = model.ChannelWebChat
	}

	// Serialize on the conversation when the caller named one, otherwise on
	// the (participant, channel) pair so concurrent first messages resolve
	// to a single conversation.
	lockKey := in.ConversationID
	if lockKey == "" {
		lockKey = "resolve:" + in.ParticipantID + ":" + string(in.Channel)
	}
	unlock := s.locker.Lock(lockKey)
	defer unlock()

	conv, created, err := s.store.ResolveConversation(ctx, store.ResolveParams{
		ExplicitID:    in.ConversationID,
		ParticipantID: in.ParticipantID,
		Channel:       in.Channel,
		Language:      in.Language,
		Source:        in.Transport,
		UserAgent:     in.UserAgent,
		ForceNew:      in.ForceNew,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}
	if conv.ID != lockKey {
		convUnlock := s.locker.Lock(conv.ID)
		defer convUnlock()
	}
	if created {
		metrics.ConversationsTotal.WithLabelValues(string(conv.Channel)).Inc()
	}

	log := s.logger.WithConversation(conv.ID, conv.ParticipantID)

	if len(in.ContactInfo) > 0 {
		s.recordContactInfo(ctx, conv, in.ContactInfo, log)
	}

	history, err := s.store.History(ctx, conv.ID, model.HistoryWindow)
	if err != nil {
		log.Warn("history read failed", zap.Error(err))
	}

	userMsg, err := s.store.AppendMessage(ctx, conv.ID, model.RoleUser, message, model.MessageMetadata{
		Language: conv.Language,
		Source:   in.Transport,
	})
	if err != nil {
		log.Error("user message persist failed", zap.Error(err))
	}

	actx := s.buildContext(conv, history, message)

	res, err := s.chain.Respond(ctx, message, actx)
	if err != nil {
		log.Error("responder chain produced no result", zap.Error(err))
		metrics.RecordTurn(in.Transport, "static_fallback", time.Since(started).Seconds())
		return s.degrade(ctx, conv, log), nil
	}

	if res.BookingFlow != nil {
		if err := s.store.ApplyBookingFlow(ctx, conv.ID, res.BookingFlow); err != nil {
			log.Error("booking state persist failed", zap.Error(err))
		}
	}

	assistantMsg, err := s.store.AppendMessage(ctx, conv.ID, model.RoleAssistant, res.Content, model.MessageMetadata{
		Agent:       res.Agent,
		Actions:     res.Actions,
		Suggestions: res.Suggestions,
		Language:    conv.Language,
		Source:      in.Transport,
	})
	if err != nil {
		log.Error("assistant message persist failed", zap.Error(err))
	}

	s.recordOutcome(conv, res, log)
	s.mirror(conv, userMsg, assistantMsg, res.Escalation)

	metrics.RecordTurn(in.Transport, res.Agent, time.Since(started).Seconds())
	return delivery.Normalize(res, conv), nil
}

// StartConversation opens a fresh conversation for a persistent connection
// and returns it with the localized welcome line. The welcome is persisted
// so reconnect history matches what the client saw.
func (s *TurnService) StartConversation(ctx context.Context, participantID string, lang model.Language, userAgent string) (*model.Conversation, string, error) {
	if participantID == "" {
		participantID = AnonymousParticipantID()
	}
	conv, created, err := s.store.ResolveConversation(ctx, store.ResolveParams{
		ParticipantID: participantID,
		Channel:       model.ChannelSocket,
		Language:      lang,
		Source:        "ws",
		UserAgent:     userAgent,
		ForceNew:      true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("start conversation: %w", err)
	}
	if created {
		metrics.ConversationsTotal.WithLabelValues(string(conv.Channel)).Inc()
	}

	welcome := locale.Welcome(conv.Language)
	if _, err := s.store.AppendMessage(ctx, conv.ID, model.RoleAssistant, welcome, model.MessageMetadata{
		Agent:    "welcome",
		Language: conv.Language,
	}); err != nil {
		s.logger.WithConversation(conv.ID, conv.ParticipantID).Warn("welcome persist failed", zap.Error(err))
	}
	return conv, welcome, nil
}

// Conversation returns a caller-facing view, enforcing ownership.
func (s *TurnService) Conversation(ctx context.Context, id string, actor store.Actor) (*model.ConversationView, error) {
	conv, err := s.store.Conversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(conv) {
		return nil, store.ErrForbidden
	}
	msgs, err := s.store.History(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	view := &model.ConversationView{
		Conversation: conv,
		Messages:     make([]model.Message, 0, len(msgs)),
	}
	for _, m := range msgs {
		if m.Role == model.RoleSystem {
			continue
		}
		view.Messages = append(view.Messages, m)
	}
	return view, nil
}

// Close ends a conversation. Closing an already-closed conversation is a
// no-op success. Extra fields are recorded in the conversation metadata.
func (s *TurnService) Close(ctx context.Context, id string, actor store.Actor, reason string, extra map[string]string) error {
	unlock := s.locker.Lock(id)
	defer unlock()
	return s.store.CloseConversation(ctx, id, actor, reason, extra)
}

// SetLanguage switches the conversation language for subsequent turns.
func (s *TurnService) SetLanguage(ctx context.Context, id string, actor store.Actor, lang model.Language) error {
	unlock := s.locker.Lock(id)
	defer unlock()

	conv, err := s.store.Conversation(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanAccess(conv) {
		return store.ErrForbidden
	}
	return s.store.UpdateLanguage(ctx, id, lang)
}

func (s *TurnService) buildContext(conv *model.Conversation, history []model.Message, message string) *model.AgentContext {
	turns := make([]model.ChatTurn, 0, len(history))
	for _, m := range history {
		turns = append(turns, model.ChatTurn{Role: m.Role, Content: m.Content})
	}

	meta := map[string]string{
		model.HintChannel: string(conv.Channel),
	}
	if cand, ok := quickresponse.Match(message, conv.Language); ok {
		meta[model.HintQuickResponse] = cand.Text
		meta[model.HintQuickResponseLabel] = cand.Label
	}

	return &model.AgentContext{
		ParticipantID:  conv.ParticipantID,
		ConversationID: conv.ID,
		Language:       conv.Language,
		History:        turns,
		BookingFlow:    conv.BookingFlow.Clone(),
		Metadata:       meta,
	}
}

// recordContactInfo folds caller-supplied contact fields into the booking
// state so an in-progress or future flow can skip re-asking for them.
func (s *TurnService) recordContactInfo(ctx context.Context, conv *model.Conversation, info map[string]string, log *logger.Logger) {
	flow := conv.BookingFlow.Clone()
	if flow == nil {
		flow = &model.BookingFlowState{SchemaVersion: model.BookingFlowSchemaVersion}
	}
	changed := false
	for _, key := range []string{"name", "phone", "email"} {
		val := strings.TrimSpace(info[key])
		if val == "" {
			continue
		}
		slot := "contact_" + key
		if flow.Slot(slot) != val {
			flow.SetSlot(slot, val)
			changed = true
		}
	}
	if !changed {
		return
	}
	flow.UpdatedAt = time.Now()
	if err := s.store.ApplyBookingFlow(ctx, conv.ID, flow); err != nil {
		log.Warn("contact info persist failed", zap.Error(err))
		return
	}
	conv.BookingFlow = flow
}

func (s *TurnService) recordOutcome(conv *model.Conversation, res *responder.Result, log *logger.Logger) {
	for _, action := range res.Actions {
		if action.Type == "appointment-booked" {
			metrics.BookingsCompleted.Inc()
			log.Info("booking completed",
				zap.String("confirmation", action.Data["confirmationNumber"]),
			)
		}
	}
	if res.Escalation != nil {
		metrics.EscalationsTotal.WithLabelValues(string(res.Escalation.Type)).Inc()
		log.Info("escalation requested", zap.String("type", string(res.Escalation.Type)))
	}
}

// mirror ships the turn's messages to the CRM side channel. It runs detached
// from the request: the reply is already decided and must not wait on it.
func (s *TurnService) mirror(conv *model.Conversation, userMsg, assistantMsg *model.Message, esc *model.Escalation) {
	convCopy := *conv
	go func() {
		ctx := context.Background()
		if userMsg != nil {
			s.syncer.SyncMessage(ctx, &convCopy, userMsg)
		}
		if assistantMsg != nil {
			s.syncer.SyncMessage(ctx, &convCopy, assistantMsg)
		}
		if esc != nil && esc.Type == model.EscalationHuman {
			s.syncer.NotifyEscalation(ctx, &convCopy, esc)
		}
	}()
}

// degrade persists and returns the static fallback when the pipeline failed
// after a conversation was established.
func (s *TurnService) degrade(ctx context.Context, conv *model.Conversation, log *logger.Logger) *model.ChatResponse {
	content := locale.WithDisclaimer(locale.Degraded(conv.Language), conv.Language)
	if _, err := s.store.AppendMessage(ctx, conv.ID, model.RoleAssistant, content, model.MessageMetadata{
		Agent:    "static_fallback",
		Error:    true,
		Language: conv.Language,
	}); err != nil {
		log.Error("degraded reply persist failed", zap.Error(err))
	}
	return delivery.Degraded(content, conv)
}

// AnonymousParticipantID mints the identifier used when a caller supplies
// none. The prefix keeps anonymous traffic distinguishable in the store and
// the CRM mirror.
func AnonymousParticipantID() string {
	return "anon-" + uuid.Must(uuid.NewV7()).String()
}
