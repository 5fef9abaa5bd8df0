package responder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-orchestrator/internal/locale"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
	"github.com/capitalize-ai/chat-orchestrator/pkg/logger"
)

type stubResponder struct {
	name  string
	res   *Result
	err   error
	panic bool
	calls *[]string
}

func (s *stubResponder) Name() string { return s.name }

func (s *stubResponder) Respond(ctx context.Context, message string, actx *model.AgentContext) (*Result, error) {
	if s.calls != nil {
		*s.calls = append(*s.calls, s.name)
	}
	if s.panic {
		panic("boom")
	}
	return s.res, s.err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error")
	require.NoError(t, err)
	return log
}

func TestChain_AgentFailureFallsThroughToGenerative(t *testing.T) {
	var calls []string
	agent := &stubResponder{name: "specialized_agent", err: errors.New("agent unavailable"), calls: &calls}
	generative := &stubResponder{name: "generative", res: &Result{Content: "generated reply", Agent: "generative"}, calls: &calls}

	chain := NewChain(testLogger(t), agent, generative)
	res, err := chain.Respond(context.Background(), "hello", &model.AgentContext{Language: model.LanguageEnglish})
	require.NoError(t, err)
	require.Equal(t, []string{"specialized_agent", "generative"}, calls)
	require.Equal(t, "generative", res.Agent)
	require.Contains(t, res.Content, "generated reply")
}

func TestChain_BothTiersFailQuickResponseCandidateWins(t *testing.T) {
	agent := &stubResponder{name: "specialized_agent", err: errors.New("down")}
	generative := &stubResponder{name: "generative", err: errors.New("down")}

	actx := &model.AgentContext{
		Language: model.LanguageEnglish,
		Metadata: map[string]string{
			model.HintQuickResponse:      "candidate text",
			model.HintQuickResponseLabel: "fees",
		},
	}

	chain := NewChain(testLogger(t), agent, generative, NewStaticResponder())
	res, err := chain.Respond(context.Background(), "what are your fees", actx)
	require.NoError(t, err)
	require.Equal(t, "quick_response", res.Agent)
	require.True(t, strings.HasPrefix(res.Content, "candidate text"))
}

func TestChain_BothTiersFailNoCandidateFixedFallback(t *testing.T) {
	agent := &stubResponder{name: "specialized_agent", err: errors.New("down")}
	generative := &stubResponder{name: "generative", err: errors.New("down")}

	actx := &model.AgentContext{Language: model.LanguageEnglish}
	chain := NewChain(testLogger(t), agent, generative, NewStaticResponder())

	res, err := chain.Respond(context.Background(), "zzzz", actx)
	require.NoError(t, err)
	require.Equal(t, "static_fallback", res.Agent)
	require.True(t, strings.HasPrefix(res.Content, locale.Fallback(model.LanguageEnglish)))
}

func TestChain_DisclaimerAppendedExactlyOnce(t *testing.T) {
	r := &stubResponder{name: "generative", res: &Result{Content: "plain answer", Agent: "generative"}}
	chain := NewChain(testLogger(t), r)

	res, err := chain.Respond(context.Background(), "hi", &model.AgentContext{Language: model.LanguageEnglish})
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(strings.ToLower(res.Content), "not legal advice"))
}

func TestChain_DisclaimerNotDuplicated(t *testing.T) {
	content := "answer. This is not legal advice."
	r := &stubResponder{name: "generative", res: &Result{Content: content, Agent: "generative"}}
	chain := NewChain(testLogger(t), r)

	res, err := chain.Respond(context.Background(), "hi", &model.AgentContext{Language: model.LanguageEnglish})
	require.NoError(t, err)
	require.Equal(t, content, res.Content)
}

func TestChain_PanicIsContained(t *testing.T) {
	var calls []string
	bad := &stubResponder{name: "specialized_agent", panic: true, calls: &calls}
	good := &stubResponder{name: "generative", res: &Result{Content: "still alive", Agent: "generative"}, calls: &calls}

	chain := NewChain(testLogger(t), bad, good)
	res, err := chain.Respond(context.Background(), "hi", &model.AgentContext{Language: model.LanguageEnglish})
	require.NoError(t, err)
	require.Equal(t, []string{"specialized_agent", "generative"}, calls)
	require.Contains(t, res.Content, "still alive")
}

func TestChain_EmptyContentTreatedAsDecline(t *testing.T) {
	empty := &stubResponder{name: "generative", res: &Result{Content: "", Agent: "generative"}}
	chain := NewChain(testLogger(t), empty, NewStaticResponder())

	res, err := chain.Respond(context.Background(), "hi", &model.AgentContext{Language: model.LanguageEnglish})
	require.NoError(t, err)
	require.Equal(t, "static_fallback", res.Agent)
}

func TestChain_AllDeclinedReturnsErr(t *testing.T) {
	chain := NewChain(testLogger(t), &stubResponder{name: "a"}, &stubResponder{name: "b"})
	_, err := chain.Respond(context.Background(), "hi", &model.AgentContext{Language: model.LanguageEnglish})
	require.ErrorIs(t, err, ErrNoResponder)
}
