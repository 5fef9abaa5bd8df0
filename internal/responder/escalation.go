package responder

import (
	"context"
	"strings"

	"github.com/capitalize-ai/chat-orchestrator/internal/locale"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

// humanKeywords are checked before voiceKeywords: "talk to a human" matches
// both sets and must escalate to a human.
var humanKeywords = []string{
	"human", "person", "representative", "real agent", "someone from your team",
	"humano", "persona", "representante",
}

var voiceKeywords = []string{
	"speak", "talk", "call", "phone",
	"hablar", "llamar", "teléfono", "telefono",
}

// DetectEscalation classifies a transfer-to-human/voice request.
func DetectEscalation(message string) (model.EscalationType, bool) {
	lower := strings.ToLower(message)
	matched := false
	for _, kw := range voiceKeywords {
		if strings.Contains(lower, kw) {
			matched = true
			break
		}
	}
	for _, kw := range humanKeywords {
		if strings.Contains(lower, kw) {
			return model.EscalationHuman, true
		}
	}
	if matched {
		return model.EscalationVoice, true
	}
	return "", false
}

// EscalationResponder short-circuits the chain when the user asks for a
// human or the voice line. It never fails from the caller's perspective.
type EscalationResponder struct{}

// NewEscalationResponder creates the escalation tier.
func NewEscalationResponder() *EscalationResponder {
	return &EscalationResponder{}
}

func (r *EscalationResponder) Name() string { return "escalation" }

func (r *EscalationResponder) Respond(ctx context.Context, message string, actx *model.AgentContext) (*Result, error) {
	escType, ok := DetectEscalation(message)
	if !ok {
		return nil, nil
	}

	esc := &model.Escalation{
		Type:    escType,
		Message: locale.EscalationMessage(escType, actx.Language),
	}
	if escType == model.EscalationVoice {
		esc.PhoneNumber = locale.OfficePhone
	}

	return &Result{
		Content:    esc.Message,
		Agent:      "escalation",
		Escalation: esc,
		Metadata:   map[string]string{"escalation_type": string(escType)},
	}, nil
}
