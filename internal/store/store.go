// Package store implements the session store: resolving inbound requests to
// conversations, persisting messages, and serializing turns per conversation.
package store

import (
	"context"
	"errors"

	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

var (
	// ErrNotFound means no conversation exists for the given id.
	ErrNotFound = errors.New("conversation not found")
	// ErrForbidden means the actor is neither the owner nor privileged.
	ErrForbidden = errors.New("not authorized for this conversation")
)

// Actor identifies who is performing a read or close.
type Actor struct {
	ParticipantID string
	Privileged    bool
}

// CanAccess reports whether the actor may read or close the conversation.
func (a Actor) CanAccess(conv *model.Conversation) bool {
	return a.Privileged || (a.ParticipantID != "" && a.ParticipantID == conv.ParticipantID)
}

// ResolveParams carries everything needed to find or create a conversation.
type ResolveParams struct {
	ExplicitID    string
	ParticipantID string
	Channel       model.Channel
	Language      model.Language
	Source        string
	UserAgent     string

	// ForceNew skips reuse of an existing active conversation. The socket
	// transport's chat:init always starts a fresh conversation.
	ForceNew bool
}

// Store is the durable conversation store shared by both transports.
type Store interface {
	// ResolveConversation returns the conversation an inbound message belongs
	// to. Explicit ids are honored only when they name an active conversation
	// owned by the participant; otherwise the most recent active conversation
	// for (participant, channel) is used; otherwise a new one is created and
	// seeded with exactly one system message for the language. The bool
	// reports whether a conversation was created.
	ResolveConversation(ctx context.Context, p ResolveParams) (*model.Conversation, bool, error)

	// Conversation returns a conversation by id.
	Conversation(ctx context.Context, id string) (*model.Conversation, error)

	// History returns the conversation's messages in append order. A limit of
	// 0 means all.
	History(ctx context.Context, id string, limit int) ([]model.Message, error)

	// AppendMessage persists one message.
	AppendMessage(ctx context.Context, conversationID string, role model.Role, content string, meta model.MessageMetadata) (*model.Message, error)

	// ApplyBookingFlow writes the merged booking-flow state back onto the
	// conversation. Callers must hold the conversation's turn lock.
	ApplyBookingFlow(ctx context.Context, conversationID string, flow *model.BookingFlowState) error

	// UpdateLanguage changes the conversation's language for subsequent turns.
	UpdateLanguage(ctx context.Context, conversationID string, lang model.Language) error

	// CloseConversation marks the conversation closed and stamps EndedAt.
	// Closing an already-closed conversation is a no-op success. Extra
	// fields, such as the socket session duration, are merged into the
	// conversation metadata alongside the close reason.
	CloseConversation(ctx context.Context, id string, actor Actor, reason string, extra map[string]string) error
}
