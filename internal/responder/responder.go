// Package responder implements the tiered fallback chain that guarantees
// every inbound message gets exactly one reply: escalation detection, the
// booking flow, a specialized agent, the generative backend, and a static
// fallback that cannot fail.
package responder

import (
	"context"

	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

// Result is one responder's candidate reply. Content must be non-empty for
// the chain to accept it.
type Result struct {
	Content     string
	Agent       string
	Suggestions []string
	Actions     []model.Action
	Handoff     string

	// Escalation is set when the turn hands off to a human or the voice line.
	Escalation *model.Escalation

	// BookingFlow, when non-nil, is the updated flow state the caller must
	// persist atomically with the assistant message.
	BookingFlow *model.BookingFlowState

	Metadata map[string]string
}

// Responder produces a candidate reply for a message, or declines. A
// responder declines by returning (nil, nil), or by returning an error,
// which the chain logs and treats the same way.
type Responder interface {
	Name() string
	Respond(ctx context.Context, message string, actx *model.AgentContext) (*Result, error)
}

// SpecializedAgent is the external specialized-capability contract. The
// orchestrator addresses it only through this interface; implementations may
// time out or fail and the chain contains those failures.
type SpecializedAgent interface {
	Handle(ctx context.Context, message string, actx *model.AgentContext) (*Result, error)
}
