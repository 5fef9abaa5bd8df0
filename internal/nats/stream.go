package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	// StreamName is the name of the chat side-channel stream.
	StreamName = "CHAT_SYNC"

	// SubjectPrefix is the prefix for all chat side-channel subjects.
	SubjectPrefix = "chatsync"
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the side-channel stream exists.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "CRM mirror and escalation events for chat conversations",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MirrorSubject returns the CRM-mirror subject for a message role.
func MirrorSubject(conversationID, role string) string {
	return fmt.Sprintf("%s.%s.msg.%s", SubjectPrefix, conversationID, role)
}

// EscalationSubject returns the subject for an escalation notification.
func EscalationSubject(conversationID, escalationType string) string {
	return fmt.Sprintf("%s.%s.escalation.%s", SubjectPrefix, conversationID, escalationType)
}

// Publish marshals v and publishes it to subject.
func (m *StreamManager) Publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if _, err := m.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	return nil
}
