package responder

import (
	"fmt"
	"strings"

	"colegiobot/internal/models"
)

// Keyword lists for the rule-based responder. Matching is substring
// based over the lower-cased, trimmed message body; first match wins in
// the order tested by Reply.
var (
	greetingKeywords = []string{"hola", "buenos días", "buenos dias", "buenas tardes", "buenas noches", "buen día", "buen dia", "saludos"}
	hoursKeywords    = []string{"horario", "hora de entrada", "hora de salida", "a qué hora", "a que hora"}
	locationKeywords = []string{"ubicación", "ubicacion", "dirección", "direccion", "dónde están", "donde estan", "dónde queda", "donde queda", "cómo llegar", "como llegar"}
	costKeywords     = []string{"costo", "precio", "cuánto cuesta", "cuanto cuesta", "inscripción", "inscripcion", "colegiatura", "mensualidad"}
	visitKeywords    = []string{"cita", "visita", "agendar", "recorrido", "conocer la escuela"}
	programKeywords  = []string{"primaria", "secundaria", "grados", "niveles", "programas", "qué ofrecen", "que ofrecen"}
)

// RuleResponder maps keywords to canned replies built from the school
// profile. It never fails, so it doubles as the fallback for the
// LLM-backed responder.
type RuleResponder struct {
	school *models.SchoolProfile
}

func NewRuleResponder(school *models.SchoolProfile) *RuleResponder {
	return &RuleResponder{school: school}
}

// Reply generates a reply for the message body. Contacts with more than
// one prior message and a competitor or informed-prospect status get a
// status-specific message before any keyword is tested. The count
// already includes the message being answered, hence the threshold.
func (r *RuleResponder) Reply(contact *models.Contact, body string) string {
	if contact != nil && contact.MessageCount > 2 {
		switch contact.Status {
		case models.StatusCompetitor:
			return fmt.Sprintf("Gracias por tu interés en %s. Con gusto seguimos en contacto si buscas más información.", r.school.Name)
		case models.StatusInformedProspect:
			return fmt.Sprintf("¡Qué gusto saludarte de nuevo! ¿Te gustaría agendar una visita? Puedes hacerlo aquí: %s", r.school.VisitURL)
		}
	}

	normalized := strings.ToLower(strings.TrimSpace(body))

	switch {
	case matchesAny(normalized, greetingKeywords):
		return fmt.Sprintf("¡Hola! Soy el asistente virtual de %s. ¿En qué puedo ayudarte?", r.school.Name)
	case matchesAny(normalized, hoursKeywords):
		return "Horarios: " + r.school.Hours
	case matchesAny(normalized, locationKeywords):
		return "Nos encuentras en: " + r.school.Location
	case matchesAny(normalized, costKeywords):
		return fmt.Sprintf("El costo de inscripción es %s. ¿Te gustaría conocer la escuela? Agenda una visita: %s", r.school.EnrollmentCost, r.school.VisitURL)
	case matchesAny(normalized, visitKeywords):
		return "¡Con gusto! Agenda tu visita aquí: " + r.school.VisitURL
	case matchesAny(normalized, programKeywords):
		return "Ofrecemos: " + r.school.Programs
	}

	return r.fallbackMenu()
}

// fallbackMenu is the canned response when no keyword matches.
func (r *RuleResponder) fallbackMenu() string {
	return fmt.Sprintf("Soy el asistente virtual de %s. Puedo ayudarte con:\n"+
		"- Horarios\n"+
		"- Ubicación\n"+
		"- Costos de inscripción\n"+
		"- Programas (%s)\n"+
		"- Agendar una visita\n"+
		"¿Sobre qué te gustaría saber más?", r.school.Name, r.school.Programs)
}

// Topic is the coarse intent of an inbound message.
type Topic string

const (
	TopicGreeting Topic = "greeting"
	TopicHours    Topic = "hours"
	TopicLocation Topic = "location"
	TopicCost     Topic = "cost"
	TopicVisit    Topic = "visit"
	TopicPrograms Topic = "programs"
	TopicOther    Topic = "other"
)

// Informational reports whether the topic answers a factual question
// about the school.
func (t Topic) Informational() bool {
	switch t {
	case TopicHours, TopicLocation, TopicCost, TopicPrograms:
		return true
	}
	return false
}

// ClassifyTopic runs the same keyword matching as Reply and returns the
// matched topic. Status transitions key off this.
func ClassifyTopic(body string) Topic {
	normalized := strings.ToLower(strings.TrimSpace(body))

	switch {
	case matchesAny(normalized, greetingKeywords):
		return TopicGreeting
	case matchesAny(normalized, hoursKeywords):
		return TopicHours
	case matchesAny(normalized, locationKeywords):
		return TopicLocation
	case matchesAny(normalized, costKeywords):
		return TopicCost
	case matchesAny(normalized, visitKeywords):
		return TopicVisit
	case matchesAny(normalized, programKeywords):
		return TopicPrograms
	}
	return TopicOther
}

func matchesAny(body string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(body, keyword) {
			return true
		}
	}
	return false
}
