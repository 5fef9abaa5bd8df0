// Package quickresponse implements the deterministic keyword classifier for
// high-frequency intents. It is cheap enough to run on every turn; the result
// is attached to the agent context as a hint and doubles as the final
// fallback body when no richer responder answers.
package quickresponse

import (
	"strings"

	"github.com/capitalize-ai/chat-orchestrator/internal/locale"
	"github.com/capitalize-ai/chat-orchestrator/internal/model"
)

// Candidate is a matched quick response.
type Candidate struct {
	Label string
	Text  string
}

type category struct {
	label    string
	keywords map[model.Language][]string
	text     map[model.Language]string
}

// categories are evaluated in declaration order; the first match wins. Order
// is part of the contract, tests depend on it.
var categories = []category{
	{
		label: "consultation",
		keywords: map[model.Language][]string{
			model.LanguageEnglish: {"consultation", "appointment"},
			model.LanguageSpanish: {"consulta", "cita"},
		},
		text: map[model.Language]string{
			model.LanguageEnglish: "I'd be happy to help you schedule a consultation with one of our attorneys. You can call us at " + locale.OfficePhone + " or I can collect your information to have someone contact you. What works best for you?",
			model.LanguageSpanish: "Me encantaría ayudarte a programar una consulta con uno de nuestros abogados. Puedes llamarnos al " + locale.OfficePhone + " o puedo recopilar tu información para que alguien se comunique contigo. ¿Qué funciona mejor para ti?",
		},
	},
	{
		label: "fees",
		keywords: map[model.Language][]string{
			model.LanguageEnglish: {"fee", "cost", "price"},
			model.LanguageSpanish: {"precio", "costo", "tarifa"},
		},
		text: map[model.Language]string{
			model.LanguageEnglish: "Many of our consultations are free, and we often work on a contingency fee basis for personal injury cases, meaning you don't pay unless we win. For other matters, we offer competitive rates and payment plans. Would you like to discuss this with an attorney?",
			model.LanguageSpanish: "Muchas de nuestras consultas son gratuitas, y a menudo trabajamos con honorarios de contingencia para casos de lesiones personales, lo que significa que no pagas a menos que ganemos. Para otros asuntos, ofrecemos tarifas competitivas y planes de pago. ¿Te gustaría discutir esto con un abogado?",
		},
	},
	{
		label: "locations",
		keywords: map[model.Language][]string{
			model.LanguageEnglish: {"location", "office", "address"},
			model.LanguageSpanish: {"ubicación", "ubicacion", "oficina"},
		},
		text: map[model.Language]string{
			model.LanguageEnglish: "We have offices in Charlotte, NC and Atlanta, GA. For immigration matters, we can assist clients nationwide. We also offer virtual consultations for your convenience.",
			model.LanguageSpanish: "Tenemos oficinas en Charlotte, NC y Atlanta, GA. Para asuntos de inmigración, podemos ayudar a clientes en todo el país. También ofrecemos consultas virtuales para tu conveniencia.",
		},
	},
	{
		label: "emergency",
		keywords: map[model.Language][]string{
			model.LanguageEnglish: {"emergency", "urgent"},
			model.LanguageSpanish: {"emergencia", "urgente"},
		},
		text: map[model.Language]string{
			model.LanguageEnglish: "If this is a legal emergency, please call us immediately at " + locale.OfficePhone + ". We have attorneys available to help with urgent matters.",
			model.LanguageSpanish: "Si esta es una emergencia legal, llámanos inmediatamente al " + locale.OfficePhone + ". Tenemos abogados disponibles para ayudar con asuntos urgentes.",
		},
	},
}

// Match classifies a message. It is a pure function: case-insensitive,
// substring-based, ties broken by declaration order. Keywords of both
// languages are checked so a Spanish keyword in an English-tagged
// conversation still matches, but the reply text follows the conversation
// language.
func Match(text string, lang model.Language) (Candidate, bool) {
	lower := strings.ToLower(text)
	lang = lang.Normalize()

	for _, cat := range categories {
		for _, kws := range []([]string){cat.keywords[model.LanguageEnglish], cat.keywords[model.LanguageSpanish]} {
			for _, kw := range kws {
				if strings.Contains(lower, kw) {
					return Candidate{Label: cat.label, Text: cat.text[lang]}, true
				}
			}
		}
	}
	return Candidate{}, false
}
