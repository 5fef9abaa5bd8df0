package responder

import (
	"context"
	"time"

	"github.com/capitalize-ai/chat-orchestrator/internal/llm"
	"github.com/capitalize-ai/chat-orchestrator/internal/locale"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

// DefaultGenerativeTimeout bounds one LLM call. The upstream wait is
// otherwise unbounded; a slow completion is treated as a decline.
const DefaultGenerativeTimeout = 20 * time.Second

// GenerativeResponder asks the configured LLM backend for a free-text reply
// over the turn history. A nil client declines every turn.
type GenerativeResponder struct {
	client  llm.Client
	model   string
	timeout time.Duration
}

// NewGenerativeResponder creates the generative tier.
func NewGenerativeResponder(client llm.Client, modelName string, timeout time.Duration) *GenerativeResponder {
	if timeout <= 0 {
		timeout = DefaultGenerativeTimeout
	}
	return &GenerativeResponder{client: client, model: modelName, timeout: timeout}
}

func (r *GenerativeResponder) Name() string { return "generative" }

func (r *GenerativeResponder) Respond(ctx context.Context, message string, actx *model.AgentContext) (*Result, error) {
	if r.client == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	messages := buildPrompt(message, actx)

	resp, err := r.client.Complete(ctx, &llm.CompletionRequest{
		Model:       r.model,
		Messages:    messages,
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}
	if resp.Content == "" {
		return nil, nil
	}

	return &Result{
		Content:  resp.Content,
		Agent:    r.Name(),
		Metadata: map[string]string{"model": resp.Model},
	}, nil
}

// buildPrompt assembles the LLM message list: the system prompt always
// first, then the bounded history window, then the current user message.
func buildPrompt(message string, actx *model.AgentContext) []llm.ChatMessage {
	window := actx.Window(model.HistoryWindow)

	messages := make([]llm.ChatMessage, 0, len(window)+2)
	if len(window) == 0 || window[0].Role != model.RoleSystem {
		messages = append(messages, llm.ChatMessage{
			Role:    string(model.RoleSystem),
			Content: locale.SystemPrompt(actx.Language),
		})
	}
	for _, turn := range window {
		messages = append(messages, llm.ChatMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	return append(messages, llm.ChatMessage{
		Role:    string(model.RoleUser),
		Content: message,
	})
}
