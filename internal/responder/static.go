package responder

import (
	"context"

	"github.com/capitalize-ai/chat-orchestrator/internal/locale"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

// StaticResponder is the last tier and always succeeds: it answers with the
// quick-response candidate computed at the top of the turn when one exists,
// otherwise the fixed clarification message in the conversation's language.
type StaticResponder struct{}

// NewStaticResponder creates the static tier.
func NewStaticResponder() *StaticResponder {
	return &StaticResponder{}
}

func (r *StaticResponder) Name() string { return "static_fallback" }

func (r *StaticResponder) Respond(ctx context.Context, message string, actx *model.AgentContext) (*Result, error) {
	if text := actx.Hint(model.HintQuickResponse); text != "" {
		return &Result{
			Content: text,
			Agent:   "quick_response",
			Metadata: map[string]string{
				"quick_response_label": actx.Hint(model.HintQuickResponseLabel),
			},
		}, nil
	}

	return &Result{
		Content: locale.Fallback(actx.Language),
		Agent:   r.Name(),
	}, nil
}
