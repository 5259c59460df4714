package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	apperrors "colegiobot/internal/errors"
	"colegiobot/internal/models"
	"colegiobot/internal/responder"
	"colegiobot/internal/retry"
	"colegiobot/pkg/circuitbreaker"
	"colegiobot/pkg/twilio"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(store Store, generator ReplyGenerator, sender twilio.Client) *ConversationService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  2,
	})
	breaker := circuitbreaker.NewWithLogger("twilio", 5, time.Minute, logger)

	return NewConversationService(store, generator, sender, breaker, backoff, logger)
}

func inbound(from, body string) models.InboundMessage {
	return models.InboundMessage{From: from, Body: body, To: "whatsapp:+14155238886"}
}

func TestHandleInbound_NewContact(t *testing.T) {
	store := newMemoryStore()
	sender := &mockSender{}
	svc := newTestService(store, &echoGenerator{}, sender)

	resp, err := svc.HandleInbound(context.Background(), inbound("whatsapp:+5215512345678", "hola"))
	require.NoError(t, err)

	assert.Equal(t, "received", resp.Status)
	assert.NotZero(t, resp.ContactID)
	assert.NotEmpty(t, resp.Reply)

	contact := store.contactByID(resp.ContactID)
	require.NotNil(t, contact)
	assert.Equal(t, "+5215512345678", contact.Phone)
	assert.Equal(t, int64(2), contact.MessageCount)
}

func TestHandleInbound_CanonicalizesPhone(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, &echoGenerator{}, &mockSender{})

	first, err := svc.HandleInbound(context.Background(), inbound("whatsapp:+5215512345678", "hola"))
	require.NoError(t, err)

	// Same number without the channel prefix must hit the same contact.
	second, err := svc.HandleInbound(context.Background(), inbound("+5215512345678", "¿horarios?"))
	require.NoError(t, err)

	assert.Equal(t, first.ContactID, second.ContactID)
}

func TestHandleInbound_RoundTripCounter(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, &echoGenerator{}, &mockSender{})

	var contactID int64
	const rounds = 3
	for i := 0; i < rounds; i++ {
		resp, err := svc.HandleInbound(context.Background(), inbound("whatsapp:+5215512345678", "hola"))
		require.NoError(t, err)
		contactID = resp.ContactID
	}

	contact := store.contactByID(contactID)
	assert.Equal(t, int64(2*rounds), contact.MessageCount)
}

func TestHandleInbound_SavesOutgoingWithSID(t *testing.T) {
	store := newMemoryStore()
	sender := &mockSender{}
	svc := newTestService(store, &echoGenerator{}, sender)

	resp, err := svc.HandleInbound(context.Background(), inbound("whatsapp:+5215512345678", "hola"))
	require.NoError(t, err)

	messages, err := store.GetMessagesByContact(context.Background(), resp.ContactID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, models.DirectionIncoming, messages[0].Direction)
	assert.Equal(t, models.DirectionOutgoing, messages[1].Direction)
	require.NotNil(t, messages[1].GatewaySID)
	assert.Contains(t, *messages[1].GatewaySID, "SM")
}

func TestHandleInbound_SendFailureStillReplies(t *testing.T) {
	store := newMemoryStore()
	sender := &mockSender{err: errors.New("gateway down")}
	svc := newTestService(store, &echoGenerator{}, sender)

	resp, err := svc.HandleInbound(context.Background(), inbound("whatsapp:+5215512345678", "hola"))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Reply)

	// Outgoing message is stored without a delivery identifier.
	messages, _ := store.GetMessagesByContact(context.Background(), resp.ContactID, 0)
	require.Len(t, messages, 2)
	assert.Nil(t, messages[1].GatewaySID)
}

func TestHandleInbound_NoSenderConfigured(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, &echoGenerator{}, nil)

	resp, err := svc.HandleInbound(context.Background(), inbound("whatsapp:+5215512345678", "hola"))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Reply)
}

func TestHandleInbound_InvalidPhone(t *testing.T) {
	svc := newTestService(newMemoryStore(), &echoGenerator{}, &mockSender{})

	_, err := svc.HandleInbound(context.Background(), inbound("whatsapp:abc", "hola"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
}

func TestHandleInbound_EmptyBody(t *testing.T) {
	svc := newTestService(newMemoryStore(), &echoGenerator{}, &mockSender{})

	_, err := svc.HandleInbound(context.Background(), inbound("whatsapp:+5215512345678", "   "))
	require.Error(t, err)
}

func TestHandleInbound_RetriesTransientSendErrors(t *testing.T) {
	store := newMemoryStore()
	sender := &mockSender{err: &twilio.APIError{StatusCode: 503, Message: "unavailable"}}
	svc := newTestService(store, &echoGenerator{}, sender)

	_, err := svc.HandleInbound(context.Background(), inbound("whatsapp:+5215512345678", "hola"))
	require.NoError(t, err)

	// Backoff is configured with two attempts.
	assert.Equal(t, 2, sender.calls)
}

func TestHandleInbound_DoesNotRetryRejections(t *testing.T) {
	store := newMemoryStore()
	sender := &mockSender{err: &twilio.APIError{StatusCode: 400, Message: "bad number"}}
	svc := newTestService(store, &echoGenerator{}, sender)

	_, err := svc.HandleInbound(context.Background(), inbound("whatsapp:+5215512345678", "hola"))
	require.NoError(t, err)
	assert.Equal(t, 1, sender.calls)
}

func TestHandleInbound_StatusAdvancesOnInformationalAnswer(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, &echoGenerator{}, &mockSender{})

	resp, err := svc.HandleInbound(context.Background(), inbound("whatsapp:+5215512345678", "¿Cuáles son los horarios?"))
	require.NoError(t, err)

	contact := store.contactByID(resp.ContactID)
	assert.Equal(t, models.StatusInformedProspect, contact.Status)
}

func TestHandleInbound_StatusAdvancesOnVisitRequest(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, &echoGenerator{}, &mockSender{})

	resp, err := svc.HandleInbound(context.Background(), inbound("whatsapp:+5215512345678", "quiero agendar una visita"))
	require.NoError(t, err)

	contact := store.contactByID(resp.ContactID)
	assert.Equal(t, models.StatusVisitScheduled, contact.Status)
}

func TestHandleInbound_GreetingKeepsStatus(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, &echoGenerator{}, &mockSender{})

	resp, err := svc.HandleInbound(context.Background(), inbound("whatsapp:+5215512345678", "hola"))
	require.NoError(t, err)

	contact := store.contactByID(resp.ContactID)
	assert.Equal(t, models.StatusNewProspect, contact.Status)
}

func TestHandleInbound_HistoryExcludesCurrentMessage(t *testing.T) {
	store := newMemoryStore()
	gen := &captureGenerator{}
	svc := newTestService(store, gen, &mockSender{})
	ctx := context.Background()

	_, err := svc.HandleInbound(ctx, inbound("whatsapp:+5215512345678", "primer mensaje"))
	require.NoError(t, err)
	_, err = svc.HandleInbound(ctx, inbound("whatsapp:+5215512345678", "mensaje unico de prueba"))
	require.NoError(t, err)

	require.Len(t, gen.histories, 2)

	// The first exchange has no prior turns.
	assert.Empty(t, gen.histories[0])

	// The second sees only the first round trip; the current body is
	// handed to the generator separately and must not appear here.
	require.Len(t, gen.histories[1], 2)
	for _, msg := range gen.histories[1] {
		assert.NotEqual(t, "mensaje unico de prueba", msg.Body)
	}
}

func TestGetConversation_UnknownPhone(t *testing.T) {
	svc := newTestService(newMemoryStore(), &echoGenerator{}, &mockSender{})

	_, err := svc.GetConversation(context.Background(), "whatsapp:+5210000000000", 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetConversation_ReturnsChronologicalHistory(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, &echoGenerator{}, &mockSender{})

	for i := 0; i < 2; i++ {
		_, err := svc.HandleInbound(context.Background(), inbound("whatsapp:+5215512345678", "hola"))
		require.NoError(t, err)
	}

	conv, err := svc.GetConversation(context.Background(), "+5215512345678", 0)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 4)
	for i := 1; i < len(conv.Messages); i++ {
		assert.False(t, conv.Messages[i].CreatedAt.Before(conv.Messages[i-1].CreatedAt))
	}
}

func TestListContacts_Pagination(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, &echoGenerator{}, &mockSender{})

	ctx := context.Background()
	for i := 0; i < 15; i++ {
		phone := "whatsapp:+52155500110" + string(rune('0'+i%10)) + string(rune('0'+i/10))
		_, err := svc.HandleInbound(ctx, inbound(phone, "hola"))
		require.NoError(t, err)
	}

	page2, err := svc.ListContacts(ctx, "", 2, 10)
	require.NoError(t, err)
	assert.Len(t, page2.Contacts, 5)
	assert.False(t, page2.HasMore)

	page1, err := svc.ListContacts(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Len(t, page1.Contacts, 10)
	assert.True(t, page1.HasMore)
}

func TestListContacts_InvalidStatus(t *testing.T) {
	svc := newTestService(newMemoryStore(), &echoGenerator{}, &mockSender{})

	_, err := svc.ListContacts(context.Background(), "martian", 1, 10)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.GetCode(err))
}

func TestListContacts_StatusFilter(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, &echoGenerator{}, &mockSender{})
	ctx := context.Background()

	resp, err := svc.HandleInbound(ctx, inbound("whatsapp:+5215512345678", "hola"))
	require.NoError(t, err)
	_, err = svc.HandleInbound(ctx, inbound("whatsapp:+5215587654321", "hola"))
	require.NoError(t, err)

	require.NoError(t, store.UpdateContactStatus(ctx, resp.ContactID, models.StatusCompetitor))

	page, err := svc.ListContacts(ctx, models.StatusCompetitor, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Contacts, 1)
	assert.Equal(t, resp.ContactID, page.Contacts[0].ID)
}

func TestHandleInbound_UsesLLMGeneratorSource(t *testing.T) {
	store := newMemoryStore()
	gen := &echoGenerator{reply: "respuesta del modelo", source: responder.SourceLLM}
	svc := newTestService(store, gen, &mockSender{})

	resp, err := svc.HandleInbound(context.Background(), inbound("whatsapp:+5215512345678", "pregunta libre"))
	require.NoError(t, err)
	assert.Equal(t, "respuesta del modelo", resp.Reply)
}
