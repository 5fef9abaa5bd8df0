// Package model defines data structures for the conversation orchestration core.
package model

import (
	"time"
)

// Language is a supported conversation language.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageSpanish Language = "es"
)

// Normalize returns a supported language, defaulting to English.
func (l Language) Normalize() Language {
	if l == LanguageSpanish {
		return LanguageSpanish
	}
	return LanguageEnglish
}

// Status represents the lifecycle state of a conversation.
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Channel identifies the transport a conversation arrived on.
type Channel string

const (
	ChannelWebChat Channel = "web_chat"
	ChannelSocket  Channel = "socket"
)

// Conversation represents one ongoing dialogue.
type Conversation struct {
	ID            string            `json:"id"`
	ParticipantID string            `json:"participant_id"`
	Language      Language          `json:"language"`
	Status        Status            `json:"status"`
	Channel       Channel           `json:"channel"`
	BookingFlow   *BookingFlowState `json:"booking_flow,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	StartedAt     time.Time         `json:"started_at"`
	EndedAt       *time.Time        `json:"ended_at,omitempty"`
}

// Active reports whether the conversation still accepts messages.
func (c *Conversation) Active() bool {
	return c != nil && c.Status == StatusActive
}
