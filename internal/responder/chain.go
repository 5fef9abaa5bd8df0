package responder

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-orchestrator/internal/locale"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
	"github.com/capitalize-ai/chat-orchestrator/pkg/logger"
	"github.com/capitalize-ai/chat-orchestrator/pkg/metrics"
)

// ErrNoResponder means every tier declined, including the static fallback.
// That is a programming bug, not a runtime condition: the static tier cannot
// decline.
var ErrNoResponder = errors.New("no responder produced a reply")

// Chain tries responders in priority order and stops at the first usable
// reply. The returned content is guaranteed non-empty and carries the
// locale disclaimer exactly once.
type Chain struct {
	responders []Responder
	logger     *logger.Logger
}

// NewChain builds the chain in the given priority order. The last responder
// is expected to always succeed.
func NewChain(log *logger.Logger, responders ...Responder) *Chain {
	return &Chain{responders: responders, logger: log}
}

// Respond runs the chain for one turn.
func (c *Chain) Respond(ctx context.Context, message string, actx *model.AgentContext) (*Result, error) {
	for _, r := range c.responders {
		metrics.ResponderAttempts.WithLabelValues(r.Name()).Inc()

		res, err := c.try(ctx, r, message, actx)
		if err != nil {
			// A responder failure means "this responder declined", never
			// "the turn failed".
			metrics.ResponderFailures.WithLabelValues(r.Name()).Inc()
			c.logger.Warn("responder declined with error",
				zap.String("responder", r.Name()),
				zap.String("conversation_id", actx.ConversationID),
				zap.Error(err),
			)
			continue
		}
		if res == nil || res.Content == "" {
			continue
		}

		res.Content = locale.WithDisclaimer(res.Content, actx.Language)
		return res, nil
	}

	return nil, ErrNoResponder
}

// try isolates one responder call, converting a panic into a decline so a
// misbehaving collaborator cannot take the turn down.
func (c *Chain) try(ctx context.Context, r Responder, message string, actx *model.AgentContext) (res *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = errors.New("responder panicked")
		}
	}()
	return r.Respond(ctx, message, actx)
}
