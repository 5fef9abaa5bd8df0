package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/chat-orchestrator/internal/locale"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

// MemoryStore is a single-process in-memory store. It is the default backend
// for development and tests; multi-instance deployments should use the Redis
// backend so a second process sees consistent state.
type MemoryStore struct {
	mu       sync.RWMutex
	convs    map[string]*model.Conversation
	messages map[string][]model.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convs:    make(map[string]*model.Conversation),
		messages: make(map[string][]model.Message),
	}
}

func (s *MemoryStore) ResolveConversation(ctx context.Context, p ResolveParams) (*model.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !p.ForceNew {
		if p.ExplicitID != "" {
			if conv, ok := s.convs[p.ExplicitID]; ok && conv.Active() && conv.ParticipantID == p.ParticipantID {
				return cloneConv(conv), false, nil
			}
		}

		// Most recent active conversation for (participant, channel).
		var latest *model.Conversation
		for _, conv := range s.convs {
			if !conv.Active() || conv.ParticipantID != p.ParticipantID || conv.Channel != p.Channel {
				continue
			}
			if latest == nil || conv.StartedAt.After(latest.StartedAt) {
				latest = conv
			}
		}
		if latest != nil {
			return cloneConv(latest), false, nil
		}
	}

	conv := newConversation(p)
	s.convs[conv.ID] = conv
	s.messages[conv.ID] = []model.Message{newSystemMessage(conv)}
	return cloneConv(conv), true, nil
}

func (s *MemoryStore) Conversation(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneConv(conv), nil
}

func (s *MemoryStore) History(ctx context.Context, id string, limit int) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.convs[id]; !ok {
		return nil, ErrNotFound
	}
	msgs := s.messages[id]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, conversationID string, role model.Role, content string, meta model.MessageMetadata) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[conversationID]; !ok {
		return nil, ErrNotFound
	}
	msg := newMessage(conversationID, role, content, meta)
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	return &msg, nil
}

func (s *MemoryStore) ApplyBookingFlow(ctx context.Context, conversationID string, flow *model.BookingFlowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[conversationID]
	if !ok {
		return ErrNotFound
	}
	conv.BookingFlow = flow.Clone()
	return nil
}

func (s *MemoryStore) UpdateLanguage(ctx context.Context, conversationID string, lang model.Language) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[conversationID]
	if !ok {
		return ErrNotFound
	}
	conv.Language = lang.Normalize()
	return nil
}

func (s *MemoryStore) CloseConversation(ctx context.Context, id string, actor Actor, reason string, extra map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok {
		return ErrNotFound
	}
	if !actor.CanAccess(conv) {
		return ErrForbidden
	}
	if conv.Status == model.StatusClosed {
		return nil
	}
	now := time.Now()
	conv.Status = model.StatusClosed
	conv.EndedAt = &now
	if reason != "" || len(extra) > 0 {
		if conv.Metadata == nil {
			conv.Metadata = make(map[string]string)
		}
		if reason != "" {
			conv.Metadata["close_reason"] = reason
		}
		for k, v := range extra {
			conv.Metadata[k] = v
		}
	}
	return nil
}

func newConversation(p ResolveParams) *model.Conversation {
	meta := map[string]string{"source": p.Source}
	if p.UserAgent != "" {
		meta["user_agent"] = p.UserAgent
	}
	return &model.Conversation{
		ID:            uuid.Must(uuid.NewV7()).String(),
		ParticipantID: p.ParticipantID,
		Language:      p.Language.Normalize(),
		Status:        model.StatusActive,
		Channel:       p.Channel,
		Metadata:      meta,
		StartedAt:     time.Now(),
	}
}

func newSystemMessage(conv *model.Conversation) model.Message {
	return newMessage(conv.ID, model.RoleSystem, locale.SystemPrompt(conv.Language), model.MessageMetadata{Language: conv.Language})
}

func newMessage(conversationID string, role model.Role, content string, meta model.MessageMetadata) model.Message {
	return model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       meta,
		CreatedAt:      time.Now(),
	}
}

func cloneConv(conv *model.Conversation) *model.Conversation {
	out := *conv
	out.BookingFlow = conv.BookingFlow.Clone()
	if conv.Metadata != nil {
		out.Metadata = make(map[string]string, len(conv.Metadata))
		for k, v := range conv.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
