package responder

import (
	"context"
	"errors"
	"time"

	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

// DefaultAgentTimeout bounds one specialized-agent call.
const DefaultAgentTimeout = 10 * time.Second

// AgentResponder wraps the external specialized agent with a timeout. A nil
// agent (not configured) simply declines every turn.
type AgentResponder struct {
	agent   SpecializedAgent
	timeout time.Duration
}

// NewAgentResponder creates the specialized-agent tier.
func NewAgentResponder(agent SpecializedAgent, timeout time.Duration) *AgentResponder {
	if timeout <= 0 {
		timeout = DefaultAgentTimeout
	}
	return &AgentResponder{agent: agent, timeout: timeout}
}

func (r *AgentResponder) Name() string { return "specialized_agent" }

func (r *AgentResponder) Respond(ctx context.Context, message string, actx *model.AgentContext) (*Result, error) {
	if r.agent == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.agent.Handle(ctx, message, actx)
	if err != nil {
		return nil, err
	}
	if res == nil || res.Content == "" {
		return nil, nil
	}
	if res.Agent == "" {
		res.Agent = r.Name()
	}
	return res, nil
}

// AgentFunc adapts a function to the SpecializedAgent interface.
type AgentFunc func(ctx context.Context, message string, actx *model.AgentContext) (*Result, error)

func (f AgentFunc) Handle(ctx context.Context, message string, actx *model.AgentContext) (*Result, error) {
	return f(ctx, message, actx)
}

// ErrAgentUnavailable can be returned by agent implementations when the
// capability is temporarily down; the chain treats it like any decline.
var ErrAgentUnavailable = errors.New("specialized agent unavailable")
