package model

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message        string            `json:"message"`
	ParticipantID  string            `json:"participantId,omitempty"`
	Language       Language          `json:"language,omitempty"`
	ConversationID string            `json:"conversationId,omitempty"`
	ContactInfo    map[string]string `json:"contactInfo,omitempty"`
}

// ChatResponse is the normalized reply shape shared by both transports.
type ChatResponse struct {
	Response       string      `json:"response"`
	ConversationID string      `json:"conversationId"`
	ParticipantID  string      `json:"participantId"`
	Agent          string      `json:"agent,omitempty"`
	Suggestions    []string    `json:"suggestions,omitempty"`
	Actions        []Action    `json:"actions,omitempty"`
	Handoff        string      `json:"handoff,omitempty"`
	Escalation     *Escalation `json:"escalation,omitempty"`
}

// CloseRequest is the body of DELETE /chat.
type CloseRequest struct {
	ConversationID string `json:"conversationId"`
	ParticipantID  string `json:"participantId,omitempty"`
}

// ConversationView is the GET /chat payload for one conversation.
type ConversationView struct {
	Conversation *Conversation `json:"conversation"`
	Messages     []Message     `json:"messages"`
}

// EscalationType distinguishes voice hand-offs from human hand-offs.
type EscalationType string

const (
	EscalationVoice EscalationType = "voice"
	EscalationHuman EscalationType = "human"
)

// Escalation is the side-channel payload emitted when a turn hands the
// conversation off to a human or the voice line.
type Escalation struct {
	Type        EscalationType `json:"type"`
	Message     string         `json:"message"`
	PhoneNumber string         `json:"phoneNumber,omitempty"`
}
