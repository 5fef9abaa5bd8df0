package responder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-orchestrator/internal/locale"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

func TestDetectEscalation(t *testing.T) {
	cases := []struct {
		message string
		want    model.EscalationType
		ok      bool
	}{
		{"I want to talk to a human", model.EscalationHuman, true},
		{"can I speak with a representative", model.EscalationHuman, true},
		{"quiero hablar con una persona", model.EscalationHuman, true},
		{"can you call me", model.EscalationVoice, true},
		{"I'd rather speak on the phone", model.EscalationVoice, true},
		{"what are your office hours", "", false},
	}
	for _, tc := range cases {
		got, ok := DetectEscalation(tc.message)
		require.Equal(t, tc.ok, ok, tc.message)
		require.Equal(t, tc.want, got, tc.message)
	}
}

func TestEscalationResponder_VoiceIncludesPhoneNumber(t *testing.T) {
	r := NewEscalationResponder()
	actx := &model.AgentContext{Language: model.LanguageEnglish}

	res, err := r.Respond(context.Background(), "please call me back", actx)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotNil(t, res.Escalation)
	require.Equal(t, model.EscalationVoice, res.Escalation.Type)
	require.Equal(t, locale.OfficePhone, res.Escalation.PhoneNumber)
	require.NotEmpty(t, res.Content)
}

func TestEscalationResponder_HumanHasNoPhoneNumber(t *testing.T) {
	r := NewEscalationResponder()
	actx := &model.AgentContext{Language: model.LanguageSpanish}

	res, err := r.Respond(context.Background(), "quiero hablar con un representante", actx)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, model.EscalationHuman, res.Escalation.Type)
	require.Empty(t, res.Escalation.PhoneNumber)
}

func TestEscalationResponder_DeclinesOrdinaryMessages(t *testing.T) {
	r := NewEscalationResponder()
	actx := &model.AgentContext{Language: model.LanguageEnglish}

	res, err := r.Respond(context.Background(), "what is a green card", actx)
	require.NoError(t, err)
	require.Nil(t, res)
}
