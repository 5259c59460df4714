package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"colegiobot/internal/models"
)

func (d *Database) scanContact(row interface {
	Scan(dest ...interface{}) error
}) (*models.Contact, error) {
	var contact models.Contact
	var encryptedPhone, encryptedNotes string

	err := row.Scan(
		&contact.ID,
		&encryptedPhone,
		&contact.Status,
		&contact.FirstContactAt,
		&contact.LastContactAt,
		&contact.MessageCount,
		&encryptedNotes,
		&contact.IsCompetitor,
	)
	if err != nil {
		return nil, err
	}

	contact.Phone, err = d.encryptor.DecryptIfEnabled(encryptedPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt phone: %w", err)
	}

	contact.Notes, err = d.encryptor.DecryptIfEnabled(encryptedNotes)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt notes: %w", err)
	}

	return &contact, nil
}

const contactColumns = `id, phone, status, first_contact_at, last_contact_at, message_count, notes, is_competitor`

// GetContactByPhone retrieves a contact by its canonicalized phone
// number. Returns (nil, nil) when no contact exists.
func (d *Database) GetContactByPhone(ctx context.Context, phone string) (*models.Contact, error) {
	encryptedPhone, err := d.encryptor.EncryptForLookupIfEnabled(phone)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt phone: %w", err)
	}

	query := `SELECT ` + contactColumns + ` FROM contacts WHERE phone = ?`

	contact, err := d.scanContact(d.db.QueryRowContext(ctx, query, encryptedPhone))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return contact, nil
}

// GetOrCreateContact looks up a contact by phone, creating it with
// status new_prospect on first sight. The insert is idempotent: a
// concurrent insert of the same phone never produces a duplicate row.
func (d *Database) GetOrCreateContact(ctx context.Context, phone string) (*models.Contact, bool, error) {
	contact, err := d.GetContactByPhone(ctx, phone)
	if err != nil {
		return nil, false, err
	}
	if contact != nil {
		return contact, false, nil
	}

	encryptedPhone, err := d.encryptor.EncryptForLookupIfEnabled(phone)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encrypt phone: %w", err)
	}

	now := time.Now().UTC()
	insert := `
		INSERT INTO contacts (phone, status, first_contact_at, last_contact_at, message_count, notes, is_competitor)
		VALUES (?, ?, ?, ?, 0, '', FALSE)
		ON CONFLICT(phone) DO NOTHING
	`

	err = retryableDBOperation(ctx, func() error {
		_, execErr := d.db.ExecContext(ctx, insert, encryptedPhone, models.StatusNewProspect, now, now)
		return execErr
	}, "create contact")
	if err != nil {
		return nil, false, err
	}

	contact, err = d.GetContactByPhone(ctx, phone)
	if err != nil {
		return nil, false, err
	}
	if contact == nil {
		return nil, false, fmt.Errorf("contact missing after insert")
	}

	return contact, true, nil
}

// ListContacts returns one page of contacts ordered by last contact
// descending, optionally filtered by status. The returned flag reports
// whether further pages exist.
func (d *Database) ListContacts(ctx context.Context, status models.ContactStatus, limit, offset int) ([]models.Contact, bool, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY last_contact_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit+1, offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		contact, err := d.scanContact(rows)
		if err != nil {
			return nil, false, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, *contact)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to iterate contacts: %w", err)
	}

	hasMore := len(contacts) > limit
	if hasMore {
		contacts = contacts[:limit]
	}

	return contacts, hasMore, nil
}

// UpdateContactStatus sets the contact's lifecycle status. The
// competitor flag is kept in sync with the status.
func (d *Database) UpdateContactStatus(ctx context.Context, contactID int64, status models.ContactStatus) error {
	query := `UPDATE contacts SET status = ?, is_competitor = ? WHERE id = ?`

	result, err := d.db.ExecContext(ctx, query, status, status == models.StatusCompetitor, contactID)
	if err != nil {
		return fmt.Errorf("failed to update contact status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no contact found with id %d", contactID)
	}

	return nil
}

// UpdateContactNotes replaces the free-text notes on a contact.
func (d *Database) UpdateContactNotes(ctx context.Context, contactID int64, notes string) error {
	encryptedNotes, err := d.encryptor.EncryptIfEnabled(notes)
	if err != nil {
		return fmt.Errorf("failed to encrypt notes: %w", err)
	}

	result, err := d.db.ExecContext(ctx, `UPDATE contacts SET notes = ? WHERE id = ?`, encryptedNotes, contactID)
	if err != nil {
		return fmt.Errorf("failed to update contact notes: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no contact found with id %d", contactID)
	}

	return nil
}
