package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

// Key layout:
//
//	chat:conv:<id>                 conversation JSON
//	chat:conv:<id>:msgs            list of message JSON, append order
//	chat:active:<participant>:<ch> id of the most recent active conversation
//
// The active index is a single value because at most one active conversation
// per (participant, channel) is the default target for new messages.
const (
	convKeyPrefix   = "chat:conv:"
	activeKeyPrefix = "chat:active:"
)

// RedisStore is the Redis-backed session store, for deployments where more
// than one process instance must see consistent conversation state.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore wraps an existing Redis client. ttl bounds how long closed
// conversations linger; zero means no expiry.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func convKey(id string) string { return convKeyPrefix + id }
func msgsKey(id string) string { return convKey(id) + ":msgs" }
func activeKey(participantID string, channel model.Channel) string {
	return fmt.Sprintf("%s%s:%s", activeKeyPrefix, participantID, channel)
}

func (s *RedisStore) ResolveConversation(ctx context.Context, p ResolveParams) (*model.Conversation, bool, error) {
	if !p.ForceNew {
		if p.ExplicitID != "" {
			conv, err := s.getConversation(ctx, p.ExplicitID)
			if err == nil && conv.Active() && conv.ParticipantID == p.ParticipantID {
				return conv, false, nil
			}
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, false, err
			}
		}

		id, err := s.rdb.Get(ctx, activeKey(p.ParticipantID, p.Channel)).Result()
		if err == nil && id != "" {
			conv, getErr := s.getConversation(ctx, id)
			if getErr == nil && conv.Active() {
				return conv, false, nil
			}
		} else if err != nil && !errors.Is(err, redis.Nil) {
			return nil, false, fmt.Errorf("read active index: %w", err)
		}
	}

	conv := newConversation(p)
	if err := s.putConversation(ctx, conv); err != nil {
		return nil, false, err
	}
	if err := s.appendRaw(ctx, conv.ID, newSystemMessage(conv)); err != nil {
		return nil, false, err
	}
	if err := s.rdb.Set(ctx, activeKey(p.ParticipantID, p.Channel), conv.ID, 0).Err(); err != nil {
		return nil, false, fmt.Errorf("write active index: %w", err)
	}
	return conv, true, nil
}

func (s *RedisStore) Conversation(ctx context.Context, id string) (*model.Conversation, error) {
	return s.getConversation(ctx, id)
}

func (s *RedisStore) History(ctx context.Context, id string, limit int) ([]model.Message, error) {
	if _, err := s.getConversation(ctx, id); err != nil {
		return nil, err
	}
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.rdb.LRange(ctx, msgsKey(id), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	msgs := make([]model.Message, 0, len(raw))
	for _, item := range raw {
		var msg model.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RedisStore) AppendMessage(ctx context.Context, conversationID string, role model.Role, content string, meta model.MessageMetadata) (*model.Message, error) {
	if _, err := s.getConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	msg := newMessage(conversationID, role, content, meta)
	if err := s.appendRaw(ctx, conversationID, msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *RedisStore) ApplyBookingFlow(ctx context.Context, conversationID string, flow *model.BookingFlowState) error {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	conv.BookingFlow = flow.Clone()
	return s.putConversation(ctx, conv)
}

func (s *RedisStore) UpdateLanguage(ctx context.Context, conversationID string, lang model.Language) error {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	conv.Language = lang.Normalize()
	return s.putConversation(ctx, conv)
}

func (s *RedisStore) CloseConversation(ctx context.Context, id string, actor Actor, reason string, extra map[string]string) error {
	conv, err := s.getConversation(ctx, id)
	if err != nil {
		return err
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
	if err := s.putConversation(ctx, conv); err != nil {
		return err
	}
	// The active index may already point at a newer conversation for this
	// participant, so only clear it when it still names the closed one.
	idxKey := activeKey(conv.ParticipantID, conv.Channel)
	current, err := s.rdb.Get(ctx, idxKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read active index: %w", err)
	}
	if current == id {
		if err := s.rdb.Del(ctx, idxKey).Err(); err != nil {
			return fmt.Errorf("clear active index: %w", err)
		}
	}
	if s.ttl > 0 {
		s.rdb.Expire(ctx, convKey(id), s.ttl)
		s.rdb.Expire(ctx, msgsKey(id), s.ttl)
	}
	return nil
}

func (s *RedisStore) getConversation(ctx context.Context, id string) (*model.Conversation, error) {
	data, err := s.rdb.Get(ctx, convKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read conversation: %w", err)
	}
	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, nil
}

func (s *RedisStore) putConversation(ctx context.Context, conv *model.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	if err := s.rdb.Set(ctx, convKey(conv.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("write conversation: %w", err)
	}
	return nil
}

func (s *RedisStore) appendRaw(ctx context.Context, conversationID string, msg model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := s.rdb.RPush(ctx, msgsKey(conversationID), data).Err(); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
