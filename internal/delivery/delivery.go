// Package delivery normalizes a responder-chain result into the wire
// response. Both transports call Normalize so their semantic fields can
// never drift apart.
package delivery

import (
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
	"github.com/capitalize-ai/chat-orchestrator/internal/responder"
)

// Normalize maps one chain result onto the shared wire shape.
func Normalize(res *responder.Result, conv *model.Conversation) *model.ChatResponse {
	return &model.ChatResponse{
		Response:       res.Content,
		ConversationID: conv.ID,
		ParticipantID:  conv.ParticipantID,
		Agent:          res.Agent,
		Suggestions:    res.Suggestions,
		Actions:        res.Actions,
		Handoff:        res.Handoff,
		Escalation:     res.Escalation,
	}
}

// Degraded builds the worst-case response when the pipeline failed after a
// conversation context was established: the static text plus disclaimer,
// flagged with the fallback agent label.
func Degraded(content string, conv *model.Conversation) *model.ChatResponse {
	return &model.ChatResponse{
		Response:       content,
		ConversationID: conv.ID,
		ParticipantID:  conv.ParticipantID,
		Agent:          "static_fallback",
	}
}
