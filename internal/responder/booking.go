package responder

import (
	"context"

	"github.com/capitalize-ai/chat-orchestrator/internal/booking"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

// BookingResponder engages when booking intent is detected or a flow is
// already in progress, and owns the turn until the flow completes or is
// abandoned.
type BookingResponder struct {
	flow *booking.Flow
}

// NewBookingResponder creates the booking tier around a flow.
func NewBookingResponder(flow *booking.Flow) *BookingResponder {
	return &BookingResponder{flow: flow}
}

func (r *BookingResponder) Name() string { return "appointment_booking" }

func (r *BookingResponder) Respond(ctx context.Context, message string, actx *model.AgentContext) (*Result, error) {
	if !r.flow.ShouldEngage(actx.BookingFlow, message) {
		return nil, nil
	}

	res := r.flow.Advance(actx.BookingFlow, message, actx.Language)

	return &Result{
		Content:     res.Reply,
		Agent:       r.Name(),
		Actions:     res.Actions,
		BookingFlow: res.State,
	}, nil
}
