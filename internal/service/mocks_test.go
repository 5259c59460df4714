package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"colegiobot/internal/models"
	"colegiobot/internal/responder"
	"colegiobot/pkg/twilio"
)

// memoryStore is an in-memory Store for service tests.
type memoryStore struct {
	mu       sync.Mutex
	contacts map[string]*models.Contact
	messages map[int64][]models.Message
	nextID   int64

	failSave   error
	failLookup error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		contacts: make(map[string]*models.Contact),
		messages: make(map[int64][]models.Message),
	}
}

func (m *memoryStore) GetContactByPhone(ctx context.Context, phone string) (*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failLookup != nil {
		return nil, m.failLookup
	}

	contact, ok := m.contacts[phone]
	if !ok {
		return nil, nil
	}
	copied := *contact
	return &copied, nil
}

func (m *memoryStore) GetOrCreateContact(ctx context.Context, phone string) (*models.Contact, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failLookup != nil {
		return nil, false, m.failLookup
	}

	if contact, ok := m.contacts[phone]; ok {
		copied := *contact
		return &copied, false, nil
	}

	m.nextID++
	contact := &models.Contact{
		ID:             m.nextID,
		Phone:          phone,
		Status:         models.StatusNewProspect,
		FirstContactAt: time.Now().UTC(),
		LastContactAt:  time.Now().UTC(),
	}
	m.contacts[phone] = contact
	copied := *contact
	return &copied, true, nil
}

func (m *memoryStore) ListContacts(ctx context.Context, status models.ContactStatus, limit, offset int) ([]models.Contact, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []models.Contact
	for _, contact := range m.contacts {
		if status != "" && contact.Status != status {
			continue
		}
		all = append(all, *contact)
	}

	if offset >= len(all) {
		return nil, false, nil
	}
	all = all[offset:]
	hasMore := len(all) > limit
	if hasMore {
		all = all[:limit]
	}
	return all, hasMore, nil
}

func (m *memoryStore) UpdateContactStatus(ctx context.Context, contactID int64, status models.ContactStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, contact := range m.contacts {
		if contact.ID == contactID {
			contact.Status = status
			contact.IsCompetitor = status == models.StatusCompetitor
			return nil
		}
	}
	return fmt.Errorf("no contact found with id %d", contactID)
}

func (m *memoryStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSave != nil {
		return m.failSave
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	m.nextID++
	msg.ID = m.nextID
	m.messages[msg.ContactID] = append(m.messages[msg.ContactID], *msg)

	for _, contact := range m.contacts {
		if contact.ID == msg.ContactID {
			contact.MessageCount++
			contact.LastContactAt = msg.CreatedAt
		}
	}
	return nil
}

func (m *memoryStore) GetMessagesByContact(ctx context.Context, contactID int64, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.messages[contactID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *memoryStore) contactByID(id int64) *models.Contact {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, contact := range m.contacts {
		if contact.ID == id {
			copied := *contact
			return &copied
		}
	}
	return nil
}

// mockSender records sends and can be told to fail.
type mockSender struct {
	mu    sync.Mutex
	sent  []string
	to    []string
	err   error
	calls int
}

func (m *mockSender) SendWhatsApp(ctx context.Context, to, body string) (*twilio.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, body)
	m.to = append(m.to, to)
	return &twilio.SendResult{SID: fmt.Sprintf("SM%04d", m.calls), Status: "queued"}, nil
}

// captureGenerator records the history handed to each Reply call.
type captureGenerator struct {
	histories [][]models.Message
}

func (g *captureGenerator) Reply(ctx context.Context, contact *models.Contact, body string, history []models.Message) (string, responder.Source) {
	copied := make([]models.Message, len(history))
	copy(copied, history)
	g.histories = append(g.histories, copied)
	return "respuesta de prueba", responder.SourceRules
}

// echoGenerator returns a fixed reply.
type echoGenerator struct {
	reply  string
	source responder.Source
}

func (g *echoGenerator) Reply(ctx context.Context, contact *models.Contact, body string, history []models.Message) (string, responder.Source) {
	if g.reply != "" {
		return g.reply, g.source
	}
	return "respuesta de prueba", responder.SourceRules
}
