package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxMessageLength bounds a single chat message.
const MaxMessageLength = 4000

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("message cannot be empty")
	}
	if len(content) > MaxMessageLength {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateParticipantID validates a caller-supplied participant ID.
func ValidateParticipantID(id string) error {
	if len(id) > 128 {
		return errors.New("participant ID exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New("participant ID must be valid UTF-8")
	}
	return nil
}
