package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageMetadata carries structured per-message annotations.
type MessageMetadata struct {
	Agent       string   `json:"agent,omitempty"`
	Actions     []Action `json:"actions,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Error       bool     `json:"error,omitempty"`
	Source      string   `json:"source,omitempty"`
	Language    Language `json:"language,omitempty"`
}

// Message represents one conversation turn entry.
type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	Metadata       MessageMetadata `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Action is a structured side-effect attached to a reply, e.g. an
// appointment-booked confirmation.
type Action struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data,omitempty"`
}
