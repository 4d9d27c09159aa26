package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/lumina-chat/lumina-backend/internal/database"
	"github.com/lumina-chat/lumina-backend/internal/models"
)

// The conversation ledger is the per-owner record behind the Home/Archive/
// Locked lists. Every conversation has one row per participant; a row only
// describes its owner's private view (unread count, flags, last message).

// TouchConversation upserts the last-message fields of the owner's row.
func TouchConversation(ctx context.Context, ownerID, conversationKey, snippet string, at time.Time) error {
	_, err := database.PostgresDB.ExecContext(ctx, `
		INSERT INTO conversation_states (conversation_key, owner_id, last_message, last_message_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (conversation_key, owner_id)
		DO UPDATE SET last_message = EXCLUDED.last_message, last_message_at = EXCLUDED.last_message_at
	`, conversationKey, ownerID, snippet, at)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// IncrementUnread bumps the owner's unread counter by exactly one. The
// increment happens inside the database, never via read-modify-write in
// the client, so two concurrent appends cannot lose an update.
func IncrementUnread(ctx context.Context, ownerID, conversationKey string) error {
	_, err := database.PostgresDB.ExecContext(ctx, `
		INSERT INTO conversation_states (conversation_key, owner_id, unread_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (conversation_key, owner_id)
		DO UPDATE SET unread_count = conversation_states.unread_count + 1
	`, conversationKey, ownerID)
	if err != nil {
		return fmt.Errorf("increment unread: %w", err)
	}
	return nil
}

// ClearUnread zeroes the owner's unread counter; called when the owner
// opens the conversation.
func ClearUnread(ctx context.Context, ownerID, conversationKey string) error {
	_, err := database.PostgresDB.ExecContext(ctx, `
		UPDATE conversation_states SET unread_count = 0
		WHERE conversation_key = $1 AND owner_id = $2
	`, conversationKey, ownerID)
	if err != nil {
		return fmt.Errorf("clear unread: %w", err)
	}
	return publishLedgerUpdate(ctx, ownerID, conversationKey)
}

// SetConversationFlag sets archived or locked on the owner's row only;
// the counterpart's view is untouched.
func SetConversationFlag(ctx context.Context, ownerID, conversationKey string, flag models.ConversationFlag, value bool) error {
	var query string
	switch flag {
	case models.FlagArchived:
		query = `UPDATE conversation_states SET archived = $3
			WHERE conversation_key = $1 AND owner_id = $2`
	case models.FlagLocked:
		query = `UPDATE conversation_states SET locked = $3
			WHERE conversation_key = $1 AND owner_id = $2`
	default:
		return fmt.Errorf("%w: unknown flag %q", models.ErrMalformed, flag)
	}

	res, err := database.PostgresDB.ExecContext(ctx, query, conversationKey, ownerID, value)
	if err != nil {
		return fmt.Errorf("set conversation flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return publishLedgerUpdate(ctx, ownerID, conversationKey)
}

// GetLedgerEntry reads the owner's row for one conversation.
func GetLedgerEntry(ctx context.Context, ownerID, conversationKey string) (*models.LedgerEntry, error) {
	entry := models.LedgerEntry{ConversationKey: conversationKey, OwnerID: ownerID}
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT last_message, last_message_at, unread_count, archived, locked
		FROM conversation_states
		WHERE conversation_key = $1 AND owner_id = $2
	`, conversationKey, ownerID).Scan(
		&entry.LastMessage, &entry.LastMessageAt, &entry.UnreadCount, &entry.Archived, &entry.Locked,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return &entry, nil
}

// LedgerEntryExists reports whether the owner already has a row for the
// conversation. Used by the append gate: a pre-existing conversation is
// allowed even under a require-request policy.
func LedgerEntryExists(ctx context.Context, ownerID, conversationKey string) (bool, error) {
	var exists bool
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM conversation_states WHERE conversation_key = $1 AND owner_id = $2)
	`, conversationKey, ownerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ledger exists: %w", err)
	}
	return exists, nil
}

// ListConversations returns the owner's conversation list for one view.
// Home shows everything that is neither archived nor locked; Archive and
// Locked show exactly their flag. Sorted by last activity, newest first.
func ListConversations(ctx context.Context, ownerID string, view models.ConversationView) ([]models.ConversationSummary, error) {
	var filter string
	switch view {
	case models.ViewHome:
		filter = "NOT archived AND NOT locked"
	case models.ViewArchive:
		filter = "archived"
	case models.ViewLocked:
		filter = "locked"
	default:
		return nil, fmt.Errorf("%w: unknown view %q", models.ErrMalformed, view)
	}

	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT conversation_key, last_message, last_message_at, unread_count, archived, locked
		FROM conversation_states
		WHERE owner_id = $1 AND `+filter+`
		ORDER BY last_message_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	var peerIDs []string
	for rows.Next() {
		entry := models.LedgerEntry{OwnerID: ownerID}
		if err := rows.Scan(
			&entry.ConversationKey, &entry.LastMessage, &entry.LastMessageAt,
			&entry.UnreadCount, &entry.Archived, &entry.Locked,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		peer, err := ChatPeer(entry.ConversationKey, ownerID)
		if err != nil {
			// A key this owner is not part of cannot appear under their
			// ledger; skip rather than poison the whole list.
			continue
		}
		entries = append(entries, entry)
		peerIDs = append(peerIDs, peer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	profiles, err := usersByID(ctx, peerIDs)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(entries))
	for i, entry := range entries {
		peer, ok := profiles[peerIDs[i]]
		if !ok {
			continue
		}
		summaries = append(summaries, models.ConversationSummary{
			LedgerEntry:  entry,
			PeerID:       peer.ID,
			PeerUsername: peer.Username,
			PeerOnline:   peer.Online,
			PeerVerified: peer.Verified,
		})
	}
	return summaries, nil
}

// usersByID fetches a batch of public profiles keyed by id.
func usersByID(ctx context.Context, ids []string) (map[string]models.User, error) {
	profiles := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT id, username, online, verified FROM users WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load peer profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Online, &u.Verified); err != nil {
			return nil, fmt.Errorf("scan peer profile: %w", err)
		}
		profiles[u.ID] = u
	}
	return profiles, rows.Err()
}

// publishLedgerUpdate pushes the owner's fresh row onto their user channel
// so open clients re-render the conversation lists.
func publishLedgerUpdate(ctx context.Context, ownerID, conversationKey string) error {
	entry, err := GetLedgerEntry(ctx, ownerID, conversationKey)
	if err != nil {
		return err
	}
	return PublishUserEvent(ctx, ownerID, ChatEvent{
		Type:            EventTypeLedgerUpdate,
		ConversationKey: conversationKey,
		Ledger:          entry,
	})
}
