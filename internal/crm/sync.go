// Package crm mirrors conversation traffic to the CRM side channel. All
// operations are best-effort: they run after the user-visible reply is
// decided and must never delay or fail it.
package crm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-orchestrator/internal/model"
	natsclient "github.com/capitalize-ai/chat-orchestrator/internal/nats"
	"github.com/capitalize-ai/chat-orchestrator/pkg/logger"
	"github.com/capitalize-ai/chat-orchestrator/pkg/metrics"
)

// publishTimeout bounds every side-channel publish.
const publishTimeout = 5 * time.Second

// Syncer mirrors messages and escalations to an external system.
type Syncer interface {
	// SyncMessage mirrors one persisted message. Errors are handled (logged)
	// by the implementation; callers fire and forget.
	SyncMessage(ctx context.Context, conv *model.Conversation, msg *model.Message)

	// NotifyEscalation enqueues an on-call notification for a human
	// escalation.
	NotifyEscalation(ctx context.Context, conv *model.Conversation, esc *model.Escalation)
}

// messageRecord is the wire shape of a mirrored message.
type messageRecord struct {
	ConversationID string         `json:"conversation_id"`
	ParticipantID  string         `json:"participant_id"`
	Language       model.Language `json:"language"`
	Channel        model.Channel  `json:"channel"`
	Role           model.Role     `json:"role"`
	Content        string         `json:"content"`
	Agent          string         `json:"agent,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// escalationRecord is the wire shape of an escalation notification.
type escalationRecord struct {
	ConversationID string               `json:"conversation_id"`
	ParticipantID  string               `json:"participant_id"`
	Language       model.Language       `json:"language"`
	Type           model.EscalationType `json:"type"`
	RequestedAt    time.Time            `json:"requested_at"`
}

// StreamSyncer publishes mirror records onto the JetStream side channel.
type StreamSyncer struct {
	stream *natsclient.StreamManager
	logger *logger.Logger
}

// NewStreamSyncer creates a JetStream-backed syncer.
func NewStreamSyncer(stream *natsclient.StreamManager, log *logger.Logger) *StreamSyncer {
	return &StreamSyncer{stream: stream, logger: log}
}

func (s *StreamSyncer) SyncMessage(ctx context.Context, conv *model.Conversation, msg *model.Message) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	record := messageRecord{
		ConversationID: conv.ID,
		ParticipantID:  conv.ParticipantID,
		Language:       conv.Language,
		Channel:        conv.Channel,
		Role:           msg.Role,
		Content:        msg.Content,
		Agent:          msg.Metadata.Agent,
		CreatedAt:      msg.CreatedAt,
	}

	subject := natsclient.MirrorSubject(conv.ID, string(msg.Role))
	if err := s.stream.Publish(ctx, subject, record); err != nil {
		metrics.CRMSyncTotal.WithLabelValues("message", "error").Inc()
		s.logger.Warn("crm mirror failed",
			zap.String("conversation_id", conv.ID),
			zap.Error(err),
		)
		return
	}
	metrics.CRMSyncTotal.WithLabelValues("message", "ok").Inc()
}

func (s *StreamSyncer) NotifyEscalation(ctx context.Context, conv *model.Conversation, esc *model.Escalation) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	record := escalationRecord{
		ConversationID: conv.ID,
		ParticipantID:  conv.ParticipantID,
		Language:       conv.Language,
		Type:           esc.Type,
		RequestedAt:    time.Now(),
	}

	subject := natsclient.EscalationSubject(conv.ID, string(esc.Type))
	if err := s.stream.Publish(ctx, subject, record); err != nil {
		metrics.CRMSyncTotal.WithLabelValues("escalation", "error").Inc()
		s.logger.Warn("escalation notification failed",
			zap.String("conversation_id", conv.ID),
			zap.String("type", string(esc.Type)),
			zap.Error(err),
		)
		return
	}
	metrics.CRMSyncTotal.WithLabelValues("escalation", "ok").Inc()
}

// NopSyncer discards everything. Used when the side channel is disabled.
type NopSyncer struct{}

func (NopSyncer) SyncMessage(context.Context, *model.Conversation, *model.Message)         {}
func (NopSyncer) NotifyEscalation(context.Context, *model.Conversation, *model.Escalation) {}
