package locale

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

func TestWithDisclaimer_AppendsOnce(t *testing.T) {
	out := WithDisclaimer("some answer", model.LanguageEnglish)
	require.Equal(t, 1, strings.Count(strings.ToLower(out), "not legal advice"))

	// Re-applying does not duplicate.
	again := WithDisclaimer(out, model.LanguageEnglish)
	require.Equal(t, out, again)
}

func TestWithDisclaimer_DetectsSpanishMarker(t *testing.T) {
	content := "respuesta. Esto no es asesoramiento legal."
	require.Equal(t, content, WithDisclaimer(content, model.LanguageSpanish))
}

func TestLocalizedTexts_BothLanguagesPresent(t *testing.T) {
	for _, lang := range []model.Language{model.LanguageEnglish, model.LanguageSpanish} {
		require.NotEmpty(t, SystemPrompt(lang))
		require.NotEmpty(t, Disclaimer(lang))
		require.NotEmpty(t, Welcome(lang))
		require.NotEmpty(t, Fallback(lang))
		require.NotEmpty(t, Degraded(lang))
		require.NotEmpty(t, EscalationMessage(model.EscalationVoice, lang))
		require.NotEmpty(t, EscalationMessage(model.EscalationHuman, lang))
	}
}

func TestUnknownLanguageNormalizesToEnglish(t *testing.T) {
	require.Equal(t, Welcome(model.LanguageEnglish), Welcome(model.Language("fr")))
}
