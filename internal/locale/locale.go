// Package locale holds the English and Spanish copy the orchestration core
// emits: system prompts, disclaimers, canned answers, booking prompts and
// escalation confirmations. Keeping the strings in one place keeps the
// language switch a pure lookup.
package locale

import (
	"strings"

	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

// OfficePhone is the firm's intake line, included in escalation payloads and
// emergency copy. Must stay dialable.
const OfficePhone = "1-844-967-3536"

var systemPrompts = map[model.Language]string{
	model.LanguageEnglish: `You are a helpful AI assistant for a law firm specializing in immigration, personal injury, workers' compensation, criminal defense, and family law.

Your role is to:
1. Provide general legal information (NOT legal advice)
2. Help users understand their legal situation
3. Guide them to appropriate resources
4. Schedule consultations when appropriate
5. Always include appropriate disclaimers

Key guidelines:
- Be professional yet warm and empathetic
- Always clarify that you provide information, not legal advice
- Encourage users to schedule a consultation for specific cases
- If asked about fees, mention that consultations are often free`,

	model.LanguageSpanish: `Eres un asistente de IA útil para un bufete de abogados especializado en inmigración, lesiones personales, compensación laboral, defensa criminal y derecho familiar.

Tu función es:
1. Proporcionar información legal general (NO asesoramiento legal)
2. Ayudar a los usuarios a entender su situación legal
3. Guiarlos a los recursos apropiados
4. Programar consultas cuando sea apropiado
5. Siempre incluir descargos de responsabilidad apropiados

Pautas clave:
- Sé profesional pero cálido y empático
- Siempre aclara que proporcionas información, no asesoramiento legal
- Anima a los usuarios a programar una consulta para casos específicos
- Si preguntan sobre tarifas, menciona que las consultas a menudo son gratuitas`,
}

// SystemPrompt returns the behavioral prompt seeded as the first message of
// every conversation.
func SystemPrompt(lang model.Language) string {
	return systemPrompts[lang.Normalize()]
}

var disclaimers = map[model.Language]string{
	model.LanguageEnglish: "I'm an AI assistant providing general legal information. This is not legal advice and does not create an attorney-client relationship. For specific legal matters, please consult with one of our attorneys.",
	model.LanguageSpanish: "Soy un asistente de IA que proporciona información legal general. Esto no es asesoramiento legal y no crea una relación abogado-cliente. Para asuntos legales específicos, consulte con uno de nuestros abogados.",
}

// disclaimerMarkers are the substrings that count as disclaimer-equivalent
// language already present in a reply.
var disclaimerMarkers = []string{
	"not legal advice",
	"no es asesoramiento legal",
}

// Disclaimer returns the locale's compliance disclaimer.
func Disclaimer(lang model.Language) string {
	return disclaimers[lang.Normalize()]
}

// ContainsDisclaimer reports whether content already carries disclaimer
// language, preventing duplicates on follow-up turns.
func ContainsDisclaimer(content string) bool {
	lower := strings.ToLower(content)
	for _, marker := range disclaimerMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// WithDisclaimer appends the locale disclaimer unless the content already
// contains disclaimer-equivalent language.
func WithDisclaimer(content string, lang model.Language) string {
	if ContainsDisclaimer(content) {
		return content
	}
	return content + "\n\n*" + Disclaimer(lang) + "*"
}

var welcome = map[model.Language]string{
	model.LanguageEnglish: "Hello! I'm the firm's virtual assistant. How can I help you today?",
	model.LanguageSpanish: "¡Hola! Soy el asistente virtual del bufete. ¿Cómo puedo ayudarte hoy?",
}

// Welcome returns the localized greeting sent on socket chat:init.
func Welcome(lang model.Language) string {
	return welcome[lang.Normalize()]
}

var fallback = map[model.Language]string{
	model.LanguageEnglish: "I'm not sure I understood that. Could you rephrase your question, or tell me a bit more about your legal situation?",
	model.LanguageSpanish: "No estoy seguro de haber entendido. ¿Podrías reformular tu pregunta o contarme un poco más sobre tu situación legal?",
}

// Fallback returns the fixed "please clarify" reply used when no responder
// produced anything better.
func Fallback(lang model.Language) string {
	return fallback[lang.Normalize()]
}

var degraded = map[model.Language]string{
	model.LanguageEnglish: "I apologize, I had trouble processing your message. Please try again or call us at " + OfficePhone + ".",
	model.LanguageSpanish: "Disculpa, tuve un problema al procesar tu mensaje. Por favor, intenta de nuevo o llámanos al " + OfficePhone + ".",
}

// Degraded returns the worst-case reply used when the turn pipeline itself
// failed after a conversation context was established.
func Degraded(lang model.Language) string {
	return degraded[lang.Normalize()]
}

var escalationVoice = map[model.Language]string{
	model.LanguageEnglish: "I'm transferring you to our voice assistant. Please call " + OfficePhone + ".",
	model.LanguageSpanish: "Te estoy transfiriendo a nuestro asistente de voz. Por favor, llama al " + OfficePhone + ".",
}

var escalationHuman = map[model.Language]string{
	model.LanguageEnglish: "A member of our team will be in touch with you shortly.",
	model.LanguageSpanish: "Un miembro de nuestro equipo se pondrá en contacto contigo pronto.",
}

// EscalationMessage returns the user-facing confirmation for an escalation.
func EscalationMessage(t model.EscalationType, lang model.Language) string {
	if t == model.EscalationVoice {
		return escalationVoice[lang.Normalize()]
	}
	return escalationHuman[lang.Normalize()]
}
