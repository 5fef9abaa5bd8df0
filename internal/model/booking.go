package model

import (
	"time"
)

// BookingFlowSchemaVersion identifies the shape of BookingFlowState. Bump when
// fields change meaning so stored state from older deployments is detectable.
const BookingFlowSchemaVersion = 1

// Booking slot identifiers. The flow collects slots in declaration order.
const (
	SlotPracticeArea  = "practice_area"
	SlotPreferredTime = "preferred_time"
)

// BookingFlowState is the multi-turn scheduling sub-dialogue state stored on a
// conversation. Updates are field-level merges, never whole-object replacement.
type BookingFlowState struct {
	SchemaVersion   int               `json:"schema_version"`
	InProgress      bool              `json:"in_progress"`
	LastStep        string            `json:"last_step,omitempty"`
	Collected       map[string]string `json:"collected,omitempty"`
	FailedAttempts  int               `json:"failed_attempts,omitempty"`
	BookingComplete bool              `json:"booking_complete"`
	ConfirmationNum string            `json:"confirmation_number,omitempty"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Clone returns a deep copy so a turn can mutate state without aliasing the
// stored conversation.
func (b *BookingFlowState) Clone() *BookingFlowState {
	if b == nil {
		return nil
	}
	out := *b
	if b.Collected != nil {
		out.Collected = make(map[string]string, len(b.Collected))
		for k, v := range b.Collected {
			out.Collected[k] = v
		}
	}
	return &out
}

// Slot returns a collected slot value.
func (b *BookingFlowState) Slot(name string) string {
	if b == nil || b.Collected == nil {
		return ""
	}
	return b.Collected[name]
}

// SetSlot records a collected slot value.
func (b *BookingFlowState) SetSlot(name, value string) {
	if b.Collected == nil {
		b.Collected = make(map[string]string)
	}
	b.Collected[name] = value
}
