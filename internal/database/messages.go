package database

import (
	"context"
	"fmt"
	"time"

	"colegiobot/internal/models"
)

// SaveMessage inserts a message and bumps the owning contact's counter
// and last-contact timestamp in the same transaction. The counter is
// incremented in SQL rather than read-modify-written, so concurrent
// webhook deliveries for the same contact cannot lose updates.
func (d *Database) SaveMessage(ctx context.Context, msg *models.Message) error {
	encryptedBody, err := d.encryptor.EncryptIfEnabled(msg.Body)
	if err != nil {
		return fmt.Errorf("failed to encrypt body: %w", err)
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	return retryableDBOperation(ctx, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		result, err := tx.ExecContext(ctx,
			`INSERT INTO messages (contact_id, direction, body, gateway_sid, created_at) VALUES (?, ?, ?, ?, ?)`,
			msg.ContactID, msg.Direction, encryptedBody, msg.GatewaySID, msg.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE contacts SET message_count = message_count + 1, last_contact_at = ? WHERE id = ?`,
			msg.CreatedAt, msg.ContactID,
		)
		if err != nil {
			return fmt.Errorf("failed to bump contact counter: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get message id: %w", err)
		}
		msg.ID = id

		return tx.Commit()
	}, "save message")
}

// GetMessagesByContact returns the most recent limit messages for a
// contact in ascending (created_at, id) order. A limit of 0 or less
// returns the full history.
func (d *Database) GetMessagesByContact(ctx context.Context, contactID int64, limit int) ([]models.Message, error) {
	query := `
		SELECT id, contact_id, direction, body, gateway_sid, created_at
		FROM messages
		WHERE contact_id = ?
		ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{contactID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var encryptedBody string
		if err := rows.Scan(&msg.ID, &msg.ContactID, &msg.Direction, &encryptedBody, &msg.GatewaySID, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Body, err = d.encryptor.DecryptIfEnabled(encryptedBody)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt body: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	// The query returns newest first; flip to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// CountMessages returns the number of stored messages for a contact.
func (d *Database) CountMessages(ctx context.Context, contactID int64) (int64, error) {
	var count int64
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE contact_id = ?`, contactID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
