package quickresponse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-orchestrator/internal/locale"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

func TestMatch_FeesKeyword(t *testing.T) {
	cand, ok := Match("What are your fees for an injury case?", model.LanguageEnglish)
	require.True(t, ok)
	require.Equal(t, "fees", cand.Label)
	require.Contains(t, cand.Text, "contingency")
}

func TestMatch_CaseInsensitive(t *testing.T) {
	cand, ok := Match("EMERGENCY!!", model.LanguageEnglish)
	require.True(t, ok)
	require.Equal(t, "emergency", cand.Label)
	require.Contains(t, cand.Text, locale.OfficePhone)
}

func TestMatch_DeclarationOrderWins(t *testing.T) {
	// "consultation" and "cost" both match; consultation is declared first.
	cand, ok := Match("how much does a consultation cost", model.LanguageEnglish)
	require.True(t, ok)
	require.Equal(t, "consultation", cand.Label)
}

func TestMatch_SpanishKeywordEnglishConversation(t *testing.T) {
	// A Spanish keyword still classifies, but the reply follows the
	// conversation language.
	cand, ok := Match("necesito una cita", model.LanguageEnglish)
	require.True(t, ok)
	require.Equal(t, "consultation", cand.Label)
	require.Contains(t, cand.Text, "schedule a consultation")
}

func TestMatch_SpanishReply(t *testing.T) {
	cand, ok := Match("cuanto es el costo", model.LanguageSpanish)
	require.True(t, ok)
	require.Equal(t, "fees", cand.Label)
	require.Contains(t, cand.Text, "honorarios")
}

func TestMatch_NoMatch(t *testing.T) {
	_, ok := Match("tell me about your history", model.LanguageEnglish)
	require.False(t, ok)
}
