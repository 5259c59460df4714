package responder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"colegiobot/internal/constants"
	"colegiobot/internal/models"
	"colegiobot/pkg/circuitbreaker"
	"colegiobot/pkg/openrouter"

	"github.com/sirupsen/logrus"
)

// Source identifies which responder produced a reply.
type Source string

const (
	SourceRules Source = "rules"
	SourceLLM   Source = "llm"
)

// LLMResponder answers with a chat completion built from the school
// knowledge block and recent conversation history. Any failure falls
// back to the rule-based responder, so a reply is always produced.
type LLMResponder struct {
	client  openrouter.Client
	breaker *circuitbreaker.CircuitBreaker
	rules   *RuleResponder
	school  *models.SchoolProfile
	logger  *logrus.Logger
	timeout time.Duration
}

func NewLLMResponder(
	client openrouter.Client,
	breaker *circuitbreaker.CircuitBreaker,
	rules *RuleResponder,
	school *models.SchoolProfile,
	logger *logrus.Logger,
	timeout time.Duration,
) *LLMResponder {
	return &LLMResponder{
		client:  client,
		breaker: breaker,
		rules:   rules,
		school:  school,
		logger:  logger,
		timeout: timeout,
	}
}

// Reply generates a reply for the message body. The contact's status
// pre-emption rule applies before the LLM is consulted.
func (l *LLMResponder) Reply(ctx context.Context, contact *models.Contact, body string, history []models.Message) (string, Source) {
	if contact != nil && contact.MessageCount > 2 {
		switch contact.Status {
		case models.StatusCompetitor, models.StatusInformedProspect:
			return l.rules.Reply(contact, body), SourceRules
		}
	}

	if l.client == nil {
		return l.rules.Reply(contact, body), SourceRules
	}

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var reply string
	err := l.breaker.Execute(callCtx, func(ctx context.Context) error {
		var completeErr error
		reply, completeErr = l.client.Complete(ctx, l.buildMessages(contact, body, history))
		return completeErr
	})
	if err != nil {
		l.logger.WithError(err).Warn("LLM completion failed, falling back to rules")
		return l.rules.Reply(contact, body), SourceRules
	}

	return reply, SourceLLM
}

// buildMessages assembles the chat completion request: a system prompt
// with the knowledge block and contact context, up to five prior
// messages, then the current message.
func (l *LLMResponder) buildMessages(contact *models.Contact, body string, history []models.Message) []openrouter.ChatMessage {
	messages := []openrouter.ChatMessage{
		{Role: "system", Content: l.systemPrompt(contact)},
	}

	start := 0
	if len(history) > constants.DefaultHistoryMessages {
		start = len(history) - constants.DefaultHistoryMessages
	}
	for _, msg := range history[start:] {
		role := "user"
		if msg.Direction == models.DirectionOutgoing {
			role = "assistant"
		}
		messages = append(messages, openrouter.ChatMessage{
			Role:    role,
			Content: truncate(msg.Body, constants.DefaultHistoryCharCap),
		})
	}

	messages = append(messages, openrouter.ChatMessage{Role: "user", Content: body})
	return messages
}

func (l *LLMResponder) systemPrompt(contact *models.Contact) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Eres el asistente virtual de %s.\n", l.school.Name)
	b.WriteString("Información clave:\n")
	fmt.Fprintf(&b, "- Horarios: %s\n", l.school.Hours)
	if l.school.Location != "" {
		fmt.Fprintf(&b, "- Ubicación: %s\n", l.school.Location)
	}
	fmt.Fprintf(&b, "- Servicios: %s\n", l.school.Programs)
	fmt.Fprintf(&b, "- Costo inscripción: %s\n", l.school.EnrollmentCost)
	fmt.Fprintf(&b, "- Agendar visita: %s\n", l.school.VisitURL)
	b.WriteString("Responde solo con esta información. Si no sabes algo, di: 'Te ayudo a agendar una cita.'\n")

	if contact != nil {
		fmt.Fprintf(&b, "El contacto tiene estatus %q y ha intercambiado %d mensajes.\n", contact.Status, contact.MessageCount)
	}

	return b.String()
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
