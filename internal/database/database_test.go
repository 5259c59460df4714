package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"colegiobot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	return db
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("\x00bad")
	assert.Error(t, err)
}

func TestNew_EnablesWALJournalMode(t *testing.T) {
	db := setupTestDB(t)

	var mode string
	require.NoError(t, db.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestGetOrCreateContact_FirstSight(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	contact, created, err := db.GetOrCreateContact(ctx, "+5215550001111")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.StatusNewProspect, contact.Status)
	assert.Equal(t, int64(0), contact.MessageCount)
	assert.Equal(t, "+5215550001111", contact.Phone)
	assert.False(t, contact.FirstContactAt.IsZero())
}

func TestGetOrCreateContact_NoDuplicates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first, created, err := db.GetOrCreateContact(ctx, "+5215550001111")
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := db.GetOrCreateContact(ctx, "+5215550001111")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	contacts, hasMore, err := db.ListContacts(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
	assert.False(t, hasMore)
}

func TestGetContactByPhone_Unknown(t *testing.T) {
	db := setupTestDB(t)

	contact, err := db.GetContactByPhone(context.Background(), "+5210000000000")
	require.NoError(t, err)
	assert.Nil(t, contact)
}

func TestSaveMessage_BumpsCounter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	contact, _, err := db.GetOrCreateContact(ctx, "+5215550001111")
	require.NoError(t, err)

	msg := &models.Message{
		ContactID: contact.ID,
		Direction: models.DirectionIncoming,
		Body:      "hola",
	}
	require.NoError(t, db.SaveMessage(ctx, msg))
	assert.NotZero(t, msg.ID)

	updated, err := db.GetContactByPhone(ctx, "+5215550001111")
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.MessageCount)
}

func TestSaveMessage_RoundTripCounter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	contact, _, err := db.GetOrCreateContact(ctx, "+5215550001111")
	require.NoError(t, err)

	const rounds = 3
	for i := 0; i < rounds; i++ {
		in := &models.Message{ContactID: contact.ID, Direction: models.DirectionIncoming, Body: fmt.Sprintf("pregunta %d", i)}
		require.NoError(t, db.SaveMessage(ctx, in))

		sid := fmt.Sprintf("SM%04d", i)
		out := &models.Message{ContactID: contact.ID, Direction: models.DirectionOutgoing, Body: "respuesta", GatewaySID: &sid}
		require.NoError(t, db.SaveMessage(ctx, out))
	}

	updated, err := db.GetContactByPhone(ctx, "+5215550001111")
	require.NoError(t, err)
	assert.Equal(t, int64(2*rounds), updated.MessageCount)

	count, err := db.CountMessages(ctx, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2*rounds), count)
}

func TestGetMessagesByContact_ChronologicalOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	contact, _, err := db.GetOrCreateContact(ctx, "+5215550001111")
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		msg := &models.Message{
			ContactID: contact.ID,
			Direction: models.DirectionIncoming,
			Body:      fmt.Sprintf("mensaje %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.SaveMessage(ctx, msg))
	}

	messages, err := db.GetMessagesByContact(ctx, contact.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt),
			"messages must be in non-decreasing timestamp order")
	}
	assert.Equal(t, "mensaje 0", messages[0].Body)
	assert.Equal(t, "mensaje 3", messages[3].Body)
}

func TestGetMessagesByContact_LimitKeepsNewest(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	contact, _, err := db.GetOrCreateContact(ctx, "+5215550001111")
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		msg := &models.Message{
			ContactID: contact.ID,
			Direction: models.DirectionIncoming,
			Body:      fmt.Sprintf("mensaje %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.SaveMessage(ctx, msg))
	}

	messages, err := db.GetMessagesByContact(ctx, contact.ID, 5)
	require.NoError(t, err)
	require.Len(t, messages, 5)
	assert.Equal(t, "mensaje 3", messages[0].Body)
	assert.Equal(t, "mensaje 7", messages[4].Body)
}

func TestListContacts_Pagination(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, _, err := db.GetOrCreateContact(ctx, fmt.Sprintf("+52155500011%02d", i))
		require.NoError(t, err)
	}

	page1, hasMore, err := db.ListContacts(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 10)
	assert.True(t, hasMore)

	page2, hasMore, err := db.ListContacts(ctx, "", 10, 10)
	require.NoError(t, err)
	assert.Len(t, page2, 5)
	assert.False(t, hasMore)
}

func TestListContacts_StatusFilter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a, _, err := db.GetOrCreateContact(ctx, "+5215550001111")
	require.NoError(t, err)
	_, _, err = db.GetOrCreateContact(ctx, "+5215550002222")
	require.NoError(t, err)

	require.NoError(t, db.UpdateContactStatus(ctx, a.ID, models.StatusCompetitor))

	competitors, _, err := db.ListContacts(ctx, models.StatusCompetitor, 10, 0)
	require.NoError(t, err)
	require.Len(t, competitors, 1)
	assert.Equal(t, a.ID, competitors[0].ID)
	assert.True(t, competitors[0].IsCompetitor)
}

func TestUpdateContactStatus_UnknownContact(t *testing.T) {
	db := setupTestDB(t)

	err := db.UpdateContactStatus(context.Background(), 9999, models.StatusAlumnus)
	assert.Error(t, err)
}

func TestUpdateContactNotes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	contact, _, err := db.GetOrCreateContact(ctx, "+5215550001111")
	require.NoError(t, err)

	require.NoError(t, db.UpdateContactNotes(ctx, contact.ID, "pidió beca"))

	updated, err := db.GetContactByPhone(ctx, "+5215550001111")
	require.NoError(t, err)
	assert.Equal(t, "pidió beca", updated.Notes)
}
