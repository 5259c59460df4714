package service

import (
	"context"
	"fmt"
	"time"

	"colegiobot/internal/metrics"
	"colegiobot/internal/models"
	"colegiobot/internal/privacy"
	"colegiobot/internal/responder"
	"colegiobot/internal/retry"
	"colegiobot/internal/validation"
	"colegiobot/pkg/circuitbreaker"
	"colegiobot/pkg/twilio"

	apperrors "colegiobot/internal/errors"

	"github.com/sirupsen/logrus"
)

// Store is the persistence surface the conversation service needs.
type Store interface {
	GetContactByPhone(ctx context.Context, phone string) (*models.Contact, error)
	GetOrCreateContact(ctx context.Context, phone string) (*models.Contact, bool, error)
	ListContacts(ctx context.Context, status models.ContactStatus, limit, offset int) ([]models.Contact, bool, error)
	UpdateContactStatus(ctx context.Context, contactID int64, status models.ContactStatus) error
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetMessagesByContact(ctx context.Context, contactID int64, limit int) ([]models.Message, error)
}

// ReplyGenerator produces a reply for an inbound message.
type ReplyGenerator interface {
	Reply(ctx context.Context, contact *models.Contact, body string, history []models.Message) (string, responder.Source)
}

// ConversationService drives the webhook flow: contact upsert, message
// persistence, reply generation, and outbound delivery.
type ConversationService struct {
	store     Store
	generator ReplyGenerator
	sender    twilio.Client
	breaker   *circuitbreaker.CircuitBreaker
	backoff   *retry.Backoff
	logger    *logrus.Logger
}

func NewConversationService(
	store Store,
	generator ReplyGenerator,
	sender twilio.Client,
	breaker *circuitbreaker.CircuitBreaker,
	backoff *retry.Backoff,
	logger *logrus.Logger,
) *ConversationService {
	return &ConversationService{
		store:     store,
		generator: generator,
		sender:    sender,
		breaker:   breaker,
		backoff:   backoff,
		logger:    logger,
	}
}

// HandleInbound processes one webhook delivery end to end. The chat
// user always gets a reply string back; outbound delivery failure is
// reported in logs and metrics, never to the sender.
func (s *ConversationService) HandleInbound(ctx context.Context, inbound models.InboundMessage) (*models.WebhookResponse, error) {
	phone := models.CanonicalPhone(inbound.From)

	if err := validation.ValidatePhoneNumber(phone); err != nil {
		return nil, err
	}
	if err := validation.ValidateMessageBody(inbound.Body); err != nil {
		return nil, err
	}

	contact, created, err := s.store.GetOrCreateContact(ctx, phone)
	if err != nil {
		return nil, apperrors.NewDatabaseError("upsert contact", err)
	}
	if created {
		metrics.IncrementCounter("contacts_created_total", nil, "New contacts from inbound messages")
	}

	// History is fetched before the incoming message is stored so the
	// generator sees prior turns only; the current body is passed to it
	// separately.
	history, err := s.store.GetMessagesByContact(ctx, contact.ID, 0)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load history, generating reply without it")
		history = nil
	}

	incoming := &models.Message{
		ContactID: contact.ID,
		Direction: models.DirectionIncoming,
		Body:      inbound.Body,
	}
	if err := s.store.SaveMessage(ctx, incoming); err != nil {
		return nil, apperrors.NewDatabaseError("save incoming message", err)
	}
	contact.MessageCount++
	contact.LastContactAt = incoming.CreatedAt

	reply, source := s.generator.Reply(ctx, contact, inbound.Body, history)
	metrics.IncrementCounter("replies_total", map[string]string{"source": string(source)}, "Replies by generator source")

	outgoing := &models.Message{
		ContactID: contact.ID,
		Direction: models.DirectionOutgoing,
		Body:      reply,
	}

	if result := s.deliver(ctx, inbound.From, reply); result != nil {
		outgoing.GatewaySID = &result.SID
	}

	if err := s.store.SaveMessage(ctx, outgoing); err != nil {
		return nil, apperrors.NewDatabaseError("save outgoing message", err)
	}
	contact.MessageCount++

	s.advanceStatus(ctx, contact, inbound.Body)

	s.logger.WithFields(logrus.Fields(privacy.MaskSensitiveFields(map[string]interface{}{
		LogFieldContactID: contact.ID,
		LogFieldPhone:     phone,
		LogFieldStatus:    string(contact.Status),
		LogFieldSource:    string(source),
		LogFieldCount:     contact.MessageCount,
	}))).Info("Processed inbound message")

	return &models.WebhookResponse{
		Status:    "received",
		ContactID: contact.ID,
		Reply:     reply,
	}, nil
}

// deliver sends the reply through the gateway with bounded retries
// behind the circuit breaker. Returns nil when delivery is disabled or
// ultimately fails.
func (s *ConversationService) deliver(ctx context.Context, to, body string) *twilio.SendResult {
	if s.sender == nil {
		s.logger.Debug("Outbound delivery disabled, skipping send")
		return nil
	}

	start := time.Now()
	var result *twilio.SendResult

	err := s.backoff.RetryWithPredicate(ctx, func() error {
		return s.breaker.Execute(ctx, func(ctx context.Context) error {
			var sendErr error
			result, sendErr = s.sender.SendWhatsApp(ctx, to, body)
			return sendErr
		})
	}, func(err error) bool {
		if circuitbreaker.IsOpenError(err) {
			return false
		}
		if apiErr, ok := err.(*twilio.APIError); ok {
			return apiErr.Retryable()
		}
		return true
	})

	metrics.RecordTimer("twilio_send_duration", time.Since(start), nil, "Outbound send duration")

	if err != nil {
		metrics.IncrementCounter("twilio_send_failures_total", nil, "Failed outbound sends")
		s.logger.WithError(err).WithField(LogFieldPhone, privacy.MaskPhoneNumber(to)).Error("Failed to send reply")
		return nil
	}

	metrics.IncrementCounter("twilio_send_success_total", nil, "Successful outbound sends")
	s.logger.WithFields(logrus.Fields{
		LogFieldSID:    result.SID,
		LogFieldStatus: result.Status,
	}).Debug("Reply accepted by gateway")

	return result
}

// advanceStatus moves the contact through the lifecycle based on what
// the message asked about. An informational answer promotes a new
// prospect to informed; a scheduling request promotes toward a visit.
func (s *ConversationService) advanceStatus(ctx context.Context, contact *models.Contact, body string) {
	topic := responder.ClassifyTopic(body)

	var target models.ContactStatus
	switch {
	case topic == responder.TopicVisit:
		target = models.StatusVisitScheduled
	case topic.Informational():
		target = models.StatusInformedProspect
	default:
		return
	}

	if !models.CanTransition(contact.Status, target) {
		return
	}

	if err := s.store.UpdateContactStatus(ctx, contact.ID, target); err != nil {
		s.logger.WithError(err).WithField(LogFieldContactID, contact.ID).Warn("Failed to update contact status")
		return
	}

	s.logger.WithFields(logrus.Fields{
		LogFieldContactID: contact.ID,
		"from":            string(contact.Status),
		"to":              string(target),
	}).Info("Contact status advanced")

	contact.Status = target
	contact.IsCompetitor = target == models.StatusCompetitor
}

// ListContacts returns one page of contacts. Page numbering is 1-based.
func (s *ConversationService) ListContacts(ctx context.Context, status models.ContactStatus, page, limit int) (*models.ContactPage, error) {
	page, limit = validation.ValidatePageParams(page, limit)

	if status != "" && !models.IsValidStatus(status) {
		return nil, apperrors.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	offset := (page - 1) * limit
	contacts, hasMore, err := s.store.ListContacts(ctx, status, limit, offset)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list contacts", err)
	}

	return &models.ContactPage{
		Contacts: contacts,
		Page:     page,
		Limit:    limit,
		HasMore:  hasMore,
	}, nil
}

// GetConversation returns a contact and its message history in
// chronological order. Unknown phones yield a not-found error.
func (s *ConversationService) GetConversation(ctx context.Context, rawPhone string, limit int) (*models.Conversation, error) {
	phone := models.CanonicalPhone(rawPhone)

	contact, err := s.store.GetContactByPhone(ctx, phone)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get contact", err)
	}
	if contact == nil {
		return nil, apperrors.NewNotFoundError("contact", privacy.MaskPhoneNumber(phone))
	}

	messages, err := s.store.GetMessagesByContact(ctx, contact.ID, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get messages", err)
	}

	return &models.Conversation{
		Contact:  *contact,
		Messages: messages,
	}, nil
}
