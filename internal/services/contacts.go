package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/lumina-chat/lumina-backend/internal/database"
	"github.com/lumina-chat/lumina-backend/internal/models"
)

// Contact/request workflow: None -> Requested (notification created for
// the recipient) -> Accepted (symmetric edge, notification removed) or
// Declined (notification removed, no edge).

// AreContacts reports whether a symmetric contact edge exists.
func AreContacts(ctx context.Context, a, b string) (bool, error) {
	var exists bool
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM contacts WHERE user_id = $1 AND contact_id = $2)
	`, a, b).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check contacts: %w", err)
	}
	return exists, nil
}

// ListContacts returns the profiles the user holds an edge to.
func ListContacts(ctx context.Context, userID string) ([]models.User, error) {
	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT u.id, u.username, COALESCE(u.display_name, ''), u.online, u.last_seen_at, u.verified
		FROM contacts c
		JOIN users u ON u.id = c.contact_id
		WHERE c.user_id = $1
		ORDER BY u.username
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Online, &u.LastSeenAt, &u.Verified); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SendContactRequest creates a contact_request notification for the
// recipient. A still-pending request from the same sender collapses into
// the existing one instead of piling up.
func SendContactRequest(ctx context.Context, fromID, toID, message string) (*models.Notification, error) {
	if fromID == toID {
		return nil, models.ErrMalformed
	}

	from, err := GetUserByID(ctx, fromID)
	if err != nil {
		return nil, err
	}
	if _, err := GetUserByID(ctx, toID); err != nil {
		return nil, err
	}

	already, err := AreContacts(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, models.ErrMalformed
	}

	var existingID string
	err = database.PostgresDB.QueryRowContext(ctx, `
		SELECT id FROM notifications
		WHERE owner_id = $1 AND from_user_id = $2 AND type = $3
	`, toID, fromID, models.NotificationContactRequest).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("check pending request: %w", err)
	}

	notif := &models.Notification{
		OwnerID:      toID,
		Type:         models.NotificationContactRequest,
		FromUserID:   fromID,
		FromUsername: from.Username,
		Message:      message,
	}

	if err == nil {
		notif.ID = existingID
		_, err = database.PostgresDB.ExecContext(ctx, `
			UPDATE notifications SET message = $2, created_at = NOW(), read = FALSE WHERE id = $1
		`, existingID, message)
		if err != nil {
			return nil, fmt.Errorf("refresh request: %w", err)
		}
	} else {
		id := uuid.New()
		notif.ID = id.String()
		err = database.PostgresDB.QueryRowContext(ctx, `
			INSERT INTO notifications (id, owner_id, type, from_user_id, message)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`, id, toID, notif.Type, fromID, message).Scan(&notif.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
	}

	_ = PublishUserEvent(ctx, toID, ChatEvent{
		Type:         EventTypeNotification,
		Notification: notif,
	})
	return notif, nil
}

// AcceptContactRequest writes the edge in both directions and removes the
// notification, all in one transaction.
func AcceptContactRequest(ctx context.Context, ownerID, notificationID string) error {
	tx, err := database.PostgresDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("accept request: %w", err)
	}
	defer tx.Rollback()

	var fromID sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT from_user_id FROM notifications
		WHERE id = $1 AND owner_id = $2 AND type = $3
	`, notificationID, ownerID, models.NotificationContactRequest).Scan(&fromID)
	if err == sql.ErrNoRows {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}
	if !fromID.Valid {
		return models.ErrMalformed
	}

	for _, pair := range [][2]string{{ownerID, fromID.String}, {fromID.String, ownerID}} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO contacts (user_id, contact_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, pair[0], pair[1]); err != nil {
			return fmt.Errorf("write contact edge: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM notifications WHERE id = $1
	`, notificationID); err != nil {
		return fmt.Errorf("remove request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("accept request: %w", err)
	}

	return nil
}

// DeclineContactRequest removes the notification without creating an edge.
func DeclineContactRequest(ctx context.Context, ownerID, notificationID string) error {
	res, err := database.PostgresDB.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE id = $1 AND owner_id = $2 AND type = $3
	`, notificationID, ownerID, models.NotificationContactRequest)
	if err != nil {
		return fmt.Errorf("decline request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListNotifications merges the user's own rows with admin broadcasts
// (owner IS NULL), newest first.
func ListNotifications(ctx context.Context, ownerID string) ([]models.Notification, error) {
	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT n.id, COALESCE(n.owner_id::text, ''), n.type, COALESCE(n.from_user_id::text, ''),
		       COALESCE(u.username, ''), n.message, n.created_at, n.read
		FROM notifications n
		LEFT JOIN users u ON u.id = n.from_user_id
		WHERE n.owner_id = $1 OR n.owner_id IS NULL
		ORDER BY n.created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Type, &n.FromUserID,
			&n.FromUsername, &n.Message, &n.CreatedAt, &n.Read); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags one owned notification as read. Broadcasts
// are read-only and keep their flag per instance; only owned rows update.
func MarkNotificationRead(ctx context.Context, ownerID, notificationID string) error {
	res, err := database.PostgresDB.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE WHERE id = $1 AND owner_id = $2
	`, notificationID, ownerID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}
