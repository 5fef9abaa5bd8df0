// Package booking implements the multi-turn scheduling sub-dialogue. The flow
// asks for one missing slot per turn, re-asks on invalid answers, and emits an
// appointment-booked action with a confirmation number on completion.
package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

// Step identifiers recorded in BookingFlowState.LastStep.
const (
	StepAskPracticeArea  = "ask_practice_area"
	StepAskPreferredTime = "ask_preferred_time"
	StepComplete         = "complete"
	StepAbandoned        = "abandoned"
)

// DefaultIdleTimeout is how long a flow may sit idle before the next turn
// treats it as abandoned.
const DefaultIdleTimeout = 30 * time.Minute

// maxFailedAttempts is the number of consecutive invalid answers tolerated
// before the flow abandons.
const maxFailedAttempts = 2

var intentKeywords = []string{
	"appointment", "schedule", "book", "consultation",
	"cita", "consulta", "agendar",
}

var cancelPhrases = []string{
	"cancel", "never mind", "nevermind", "stop", "forget it",
	"cancelar", "olvidalo", "olvídalo", "dejalo", "déjalo",
}

// practiceAreas maps normalized area names to their recognizable synonyms in
// both languages.
var practiceAreas = []struct {
	name     string
	synonyms []string
}{
	{"immigration", []string{"immigration", "visa", "green card", "citizenship", "asylum", "inmigración", "inmigracion", "ciudadanía", "ciudadania", "asilo"}},
	{"personal_injury", []string{"personal injury", "injury", "accident", "lesiones", "accidente"}},
	{"workers_compensation", []string{"workers", "compensation", "workplace", "compensación laboral", "compensacion laboral"}},
	{"criminal_defense", []string{"criminal", "dui", "arrest", "defensa criminal", "arresto"}},
	{"family_law", []string{"family", "divorce", "custody", "familiar", "divorcio", "custodia"}},
}

// HasIntent reports whether the message expresses booking intent.
func HasIntent(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range intentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Result is the outcome of advancing the flow one turn.
type Result struct {
	Reply     string
	State     *model.BookingFlowState
	Actions   []model.Action
	Completed bool
	Abandoned bool
}

// Flow drives the booking state machine. Zero-value timeout and clock fall
// back to defaults.
type Flow struct {
	IdleTimeout time.Duration
	Now         func() time.Time
}

// New returns a Flow with the default idle timeout.
func New() *Flow {
	return &Flow{IdleTimeout: DefaultIdleTimeout}
}

func (f *Flow) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *Flow) idleTimeout() time.Duration {
	if f.IdleTimeout > 0 {
		return f.IdleTimeout
	}
	return DefaultIdleTimeout
}

// ShouldEngage reports whether the flow owns this turn: either booking intent
// is present in the message, or a non-expired flow is already in progress. A
// flow idle past the timeout no longer claims the turn on its own.
func (f *Flow) ShouldEngage(state *model.BookingFlowState, message string) bool {
	if HasIntent(message) {
		return true
	}
	if state == nil || !state.InProgress {
		return false
	}
	return f.now().Sub(state.UpdatedAt) <= f.idleTimeout()
}

// Advance runs one turn of the flow. The caller persists the returned state
// atomically with the assistant message.
func (f *Flow) Advance(prev *model.BookingFlowState, message string, lang model.Language) Result {
	lang = lang.Normalize()
	state := prev.Clone()

	fresh := false
	if state == nil || state.BookingComplete || !state.InProgress {
		// Starting (or restarting) the flow. Collected slots from an earlier
		// abandoned attempt are kept so the user is not re-asked.
		next := &model.BookingFlowState{
			SchemaVersion: model.BookingFlowSchemaVersion,
			InProgress:    true,
		}
		if state != nil && !state.BookingComplete {
			next.Collected = state.Collected
		}
		state = next
		fresh = true
	}
	state.UpdatedAt = f.now()

	if isCancel(message) {
		state.InProgress = false
		state.LastStep = StepAbandoned
		state.FailedAttempts = 0
		return Result{
			Reply:     prompt(lang, "cancelled"),
			State:     state,
			Abandoned: true,
		}
	}

	// Opportunistic extraction: the message may already answer the slot we
	// were about to ask for ("I need help with an immigration appointment").
	if state.Slot(model.SlotPracticeArea) == "" {
		if area, ok := matchPracticeArea(message); ok {
			state.SetSlot(model.SlotPracticeArea, area)
			state.FailedAttempts = 0
		} else if !fresh && state.LastStep == StepAskPracticeArea {
			return f.reask(state, lang, StepAskPracticeArea)
		}
		if state.Slot(model.SlotPracticeArea) == "" {
			state.LastStep = StepAskPracticeArea
			return Result{Reply: prompt(lang, StepAskPracticeArea), State: state}
		}
	}

	if state.Slot(model.SlotPreferredTime) == "" {
		if state.LastStep == StepAskPreferredTime {
			if answer, ok := validTime(message); ok {
				state.SetSlot(model.SlotPreferredTime, answer)
				state.FailedAttempts = 0
			} else {
				return f.reask(state, lang, StepAskPreferredTime)
			}
		} else {
			state.LastStep = StepAskPreferredTime
			return Result{Reply: prompt(lang, StepAskPreferredTime), State: state}
		}
	}

	// All slots collected: complete the booking.
	state.InProgress = false
	state.BookingComplete = true
	state.LastStep = StepComplete
	state.ConfirmationNum = NewConfirmationNumber()

	return Result{
		Reply: completionReply(lang, state),
		State: state,
		Actions: []model.Action{{
			Type: "appointment-booked",
			Data: map[string]string{"confirmationNumber": state.ConfirmationNum},
		}},
		Completed: true,
	}
}

func (f *Flow) reask(state *model.BookingFlowState, lang model.Language, step string) Result {
	state.FailedAttempts++
	if state.FailedAttempts >= maxFailedAttempts {
		state.InProgress = false
		state.LastStep = StepAbandoned
		state.FailedAttempts = 0
		return Result{
			Reply:     prompt(lang, "abandoned"),
			State:     state,
			Abandoned: true,
		}
	}
	state.LastStep = step
	return Result{Reply: prompt(lang, step+"_retry"), State: state}
}

// NewConfirmationNumber generates a unique confirmation of the form
// APT-XXXXXXXX.
func NewConfirmationNumber() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "APT-" + strings.ToUpper(id[:8])
}

func isCancel(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, phrase := range cancelPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func matchPracticeArea(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, area := range practiceAreas {
		for _, syn := range area.synonyms {
			if strings.Contains(lower, syn) {
				return area.name, true
			}
		}
	}
	return "", false
}

// validTime accepts any substantive answer for the preferred-time slot. The
// scheduling team confirms exact times; the flow only needs something a human
// can act on.
func validTime(message string) (string, bool) {
	trimmed := strings.TrimSpace(message)
	if len(trimmed) < 3 {
		return "", false
	}
	return trimmed, true
}

var prompts = map[string]map[model.Language]string{
	StepAskPracticeArea: {
		model.LanguageEnglish: "I can help you schedule a consultation. What type of legal matter is this about? For example: immigration, personal injury, workers' compensation, criminal defense, or family law.",
		model.LanguageSpanish: "Puedo ayudarte a programar una consulta. ¿De qué tipo de asunto legal se trata? Por ejemplo: inmigración, lesiones personales, compensación laboral, defensa criminal o derecho familiar.",
	},
	StepAskPracticeArea + "_retry": {
		model.LanguageEnglish: "I didn't catch the practice area. Could you tell me which area your matter falls under? Immigration, personal injury, workers' compensation, criminal defense, or family law?",
		model.LanguageSpanish: "No entendí el área de práctica. ¿Podrías decirme a qué área corresponde tu asunto? ¿Inmigración, lesiones personales, compensación laboral, defensa criminal o derecho familiar?",
	},
	StepAskPreferredTime: {
		model.LanguageEnglish: "Great. What day and time work best for your consultation?",
		model.LanguageSpanish: "Perfecto. ¿Qué día y hora funcionan mejor para tu consulta?",
	},
	StepAskPreferredTime + "_retry": {
		model.LanguageEnglish: "Could you give me a preferred day and time for the consultation?",
		model.LanguageSpanish: "¿Podrías darme un día y hora de preferencia para la consulta?",
	},
	"cancelled": {
		model.LanguageEnglish: "No problem, I've cancelled the scheduling request. Is there anything else I can help you with?",
		model.LanguageSpanish: "No hay problema, he cancelado la solicitud de cita. ¿Hay algo más en lo que pueda ayudarte?",
	},
	"abandoned": {
		model.LanguageEnglish: "Let's set scheduling aside for now. If you'd like to book a consultation later, just let me know. Is there anything else I can help you with?",
		model.LanguageSpanish: "Dejemos la cita de lado por ahora. Si deseas programar una consulta más tarde, avísame. ¿Hay algo más en lo que pueda ayudarte?",
	},
}

func prompt(lang model.Language, key string) string {
	return prompts[key][lang]
}

var completionReplies = map[model.Language]string{
	model.LanguageEnglish: "You're all set! I've scheduled your consultation. Your confirmation number is %s. Someone from our team will reach out to confirm the details.",
	model.LanguageSpanish: "¡Listo! He programado tu consulta. Tu número de confirmación es %s. Alguien de nuestro equipo se comunicará contigo para confirmar los detalles.",
}

func completionReply(lang model.Language, state *model.BookingFlowState) string {
	return strings.Replace(completionReplies[lang], "%s", state.ConfirmationNum, 1)
}
