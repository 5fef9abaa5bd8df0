package booking

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

func fixedFlow(now time.Time) *Flow {
	return &Flow{IdleTimeout: DefaultIdleTimeout, Now: func() time.Time { return now }}
}

func TestFlow_RoundTripToComplete(t *testing.T) {
	f := fixedFlow(time.Now())

	require.True(t, f.ShouldEngage(nil, "I need an appointment"))

	r1 := f.Advance(nil, "I need an appointment", model.LanguageEnglish)
	require.False(t, r1.Completed)
	require.Equal(t, StepAskPracticeArea, r1.State.LastStep)
	require.Contains(t, r1.Reply, "What type of legal matter")

	require.True(t, f.ShouldEngage(r1.State, "immigration"))
	r2 := f.Advance(r1.State, "immigration", model.LanguageEnglish)
	require.False(t, r2.Completed)
	require.Equal(t, "immigration", r2.State.Slot(model.SlotPracticeArea))
	require.Equal(t, StepAskPreferredTime, r2.State.LastStep)

	r3 := f.Advance(r2.State, "tomorrow at 2pm", model.LanguageEnglish)
	require.True(t, r3.Completed)
	require.True(t, r3.State.BookingComplete)
	require.False(t, r3.State.InProgress)
	require.Equal(t, "tomorrow at 2pm", r3.State.Slot(model.SlotPreferredTime))
	require.Regexp(t, regexp.MustCompile(`^APT-[0-9A-F]{8}$`), r3.State.ConfirmationNum)
	require.Contains(t, r3.Reply, r3.State.ConfirmationNum)
	require.Len(t, r3.Actions, 1)
	require.Equal(t, "appointment-booked", r3.Actions[0].Type)
	require.Equal(t, r3.State.ConfirmationNum, r3.Actions[0].Data["confirmationNumber"])
}

func TestFlow_CompletedFlowDoesNotReTrigger(t *testing.T) {
	f := fixedFlow(time.Now())
	completed := &model.BookingFlowState{
		SchemaVersion:   model.BookingFlowSchemaVersion,
		BookingComplete: true,
		LastStep:        StepComplete,
		UpdatedAt:       time.Now(),
	}

	require.False(t, f.ShouldEngage(completed, "thanks for your help"))
	require.True(t, f.ShouldEngage(completed, "I need another appointment"))
}

func TestFlow_OpportunisticAreaExtraction(t *testing.T) {
	f := fixedFlow(time.Now())

	r := f.Advance(nil, "I want to schedule an immigration consultation", model.LanguageEnglish)
	require.Equal(t, "immigration", r.State.Slot(model.SlotPracticeArea))
	require.Equal(t, StepAskPreferredTime, r.State.LastStep)
}

func TestFlow_CancelPhraseAbandons(t *testing.T) {
	f := fixedFlow(time.Now())

	r1 := f.Advance(nil, "book a consultation", model.LanguageEnglish)
	r2 := f.Advance(r1.State, "never mind", model.LanguageEnglish)
	require.True(t, r2.Abandoned)
	require.False(t, r2.State.InProgress)
	require.Equal(t, StepAbandoned, r2.State.LastStep)
}

func TestFlow_TwoFailedValidationsAbandon(t *testing.T) {
	f := fixedFlow(time.Now())

	r1 := f.Advance(nil, "schedule an immigration appointment", model.LanguageEnglish)
	require.Equal(t, StepAskPreferredTime, r1.State.LastStep)

	r2 := f.Advance(r1.State, "eh", model.LanguageEnglish)
	require.False(t, r2.Abandoned)
	require.Equal(t, 1, r2.State.FailedAttempts)

	r3 := f.Advance(r2.State, "no", model.LanguageEnglish)
	require.True(t, r3.Abandoned)
	require.False(t, r3.State.InProgress)
}

func TestFlow_AbandonedFlowKeepsCollectedSlots(t *testing.T) {
	f := fixedFlow(time.Now())

	r1 := f.Advance(nil, "schedule an immigration appointment", model.LanguageEnglish)
	r2 := f.Advance(r1.State, "cancel", model.LanguageEnglish)
	require.True(t, r2.Abandoned)

	// Restarting skips straight to the time question.
	r3 := f.Advance(r2.State, "actually let's book it", model.LanguageEnglish)
	require.Equal(t, "immigration", r3.State.Slot(model.SlotPracticeArea))
	require.Equal(t, StepAskPreferredTime, r3.State.LastStep)
}

func TestFlow_IdleFlowDoesNotClaimTurn(t *testing.T) {
	now := time.Now()
	f := fixedFlow(now)
	state := &model.BookingFlowState{
		SchemaVersion: model.BookingFlowSchemaVersion,
		InProgress:    true,
		LastStep:      StepAskPracticeArea,
		UpdatedAt:     now.Add(-time.Hour),
	}

	require.False(t, f.ShouldEngage(state, "hello again"))
	require.True(t, f.ShouldEngage(state, "about that appointment"))
}

func TestFlow_SpanishPrompts(t *testing.T) {
	f := fixedFlow(time.Now())

	r := f.Advance(nil, "quiero agendar una cita", model.LanguageSpanish)
	require.Contains(t, r.Reply, "asunto legal")
}

func TestNewConfirmationNumber_Format(t *testing.T) {
	re := regexp.MustCompile(`^APT-[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		n := NewConfirmationNumber()
		require.Regexp(t, re, n)
		require.False(t, seen[n])
		seen[n] = true
	}
}
