package model

// HistoryWindow is the bounded number of recent messages handed to responders.
const HistoryWindow = 10

// AgentContext is the ephemeral per-turn view handed to responders. It is
// built fresh for every inbound message and never persisted.
type AgentContext struct {
	ParticipantID  string
	ConversationID string
	Language       Language
	History        []ChatTurn
	BookingFlow    *BookingFlowState

	// Metadata is a free-form bag for cross-responder signaling, e.g. the
	// quick-response candidate computed once at the top of the turn.
	Metadata map[string]string
}

// ChatTurn is the minimal role/content pair responders and LLM clients see.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Window returns the most recent n turns of history.
func (c *AgentContext) Window(n int) []ChatTurn {
	if len(c.History) <= n {
		return c.History
	}
	return c.History[len(c.History)-n:]
}

// Hint reads a metadata signal, empty if unset.
func (c *AgentContext) Hint(key string) string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[key]
}

// Metadata keys used for cross-responder hints.
const (
	HintQuickResponse      = "quick_response"
	HintQuickResponseLabel = "quick_response_label"
	HintChannel            = "channel"
)
