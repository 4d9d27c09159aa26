package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lumina-chat/lumina-backend/internal/database"
)

const (
	// presenceKeyPrefix is the Redis key prefix for online markers.
	presenceKeyPrefix = "presence:"
	// presenceConnsKeyPrefix counts live gateway connections per user.
	// The gateway opens one socket per conversation, so a user with two
	// chats on screen holds two; offline happens at zero, not per socket.
	presenceConnsKeyPrefix = "presence_conns:"
	// PresenceTTL bounds how stale an "online" marker can be when a
	// connection dies without running its disconnect hook. Pings from
	// live connections refresh it well inside the window.
	PresenceTTL = 90 * time.Second
)

// Presence is a user's online flag plus last-seen timestamp.
type Presence struct {
	UserID     string     `json:"user_id"`
	Online     bool       `json:"online"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// PresenceAttach registers one gateway connection. The first connection
// writes the TTL key and the directory row together, so the disconnect
// hook is armed (deferred) in the same step that publishes "online" — a
// connected but unarmed state is never observable from inside this
// process. A crash between the writes is covered by the TTL expiry.
func PresenceAttach(ctx context.Context, userID string) error {
	conns, err := database.RedisClient.Incr(ctx, presenceConnsKeyPrefix+userID).Result()
	if err != nil {
		return fmt.Errorf("count presence conns: %w", err)
	}
	database.RedisClient.Expire(ctx, presenceConnsKeyPrefix+userID, PresenceTTL)

	// Every attach refreshes the marker; only the first flips the
	// directory and fans out.
	if err := database.RedisClient.Set(ctx, presenceKeyPrefix+userID, "1", PresenceTTL).Err(); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	if conns > 1 {
		return nil
	}
	if _, err := database.PostgresDB.ExecContext(ctx, `
		UPDATE users SET online = TRUE WHERE id = $1
	`, userID); err != nil {
		return fmt.Errorf("set online: %w", err)
	}
	publishPresence(ctx, userID, true, nil)
	return nil
}

// PresenceDetach drops one gateway connection; the user stays online
// while any other socket of theirs is still attached.
func PresenceDetach(ctx context.Context, userID string, at time.Time) error {
	conns, err := database.RedisClient.Decr(ctx, presenceConnsKeyPrefix+userID).Result()
	if err != nil {
		return fmt.Errorf("count presence conns: %w", err)
	}
	if conns > 0 {
		return nil
	}
	// Zero, or negative after a forced sign-out already reset the count.
	return SetOffline(ctx, userID, at)
}

// RefreshPresence extends the online marker; called on gateway pings.
func RefreshPresence(ctx context.Context, userID string) {
	pipe := database.RedisClient.Pipeline()
	pipe.Expire(ctx, presenceKeyPrefix+userID, PresenceTTL)
	pipe.Expire(ctx, presenceConnsKeyPrefix+userID, PresenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("presence refresh failed for %s: %v", userID, err)
	}
}

// SetOffline forces the user offline and records when they were last
// seen, regardless of attached connections: sign-out uses it directly,
// and PresenceDetach reaches it when the last socket drops.
func SetOffline(ctx context.Context, userID string, at time.Time) error {
	pipe := database.RedisClient.Pipeline()
	pipe.Del(ctx, presenceKeyPrefix+userID)
	pipe.Del(ctx, presenceConnsKeyPrefix+userID)
	pipe.Exec(ctx)
	if _, err := database.PostgresDB.ExecContext(ctx, `
		UPDATE users SET online = FALSE, last_seen_at = $2 WHERE id = $1
	`, userID, at); err != nil {
		return fmt.Errorf("set offline: %w", err)
	}
	publishPresence(ctx, userID, false, &at)
	return nil
}

// GetPresence reads a user's presence, honouring their show-last-seen
// setting: when disabled, peers get the offline flag but no timestamp.
func GetPresence(ctx context.Context, userID string) (*Presence, error) {
	u, err := GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	online := u.Online
	// Directory says online but the TTL marker is gone: the connection
	// died without its disconnect hook. Trust the marker.
	if online {
		n, err := database.RedisClient.Exists(ctx, presenceKeyPrefix+userID).Result()
		if err == nil && n == 0 {
			online = false
		}
	}

	p := &Presence{UserID: userID, Online: online}
	settings, err := GetPrivacySettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if settings.ShowLastSeen && !online {
		t := u.LastSeenAt
		p.LastSeenAt = &t
	}
	return p, nil
}

// publishPresence tells each conversation peer that the user's flag moved.
// Best effort: presence is eventually consistent and a dropped event is
// repaired by the next read.
func publishPresence(ctx context.Context, userID string, online bool, lastSeen *time.Time) {
	peers, err := conversationPeers(ctx, userID)
	if err != nil {
		log.Printf("presence fan-out skipped for %s: %v", userID, err)
		return
	}
	event := ChatEvent{
		Type:   EventTypePresence,
		UserID: userID,
		Online: &online,
	}
	if lastSeen != nil {
		event.Timestamp = *lastSeen
	}
	for _, peer := range peers {
		if err := PublishUserEvent(ctx, peer, event); err != nil {
			log.Printf("presence publish to %s failed: %v", peer, err)
		}
	}
}

// conversationPeers lists the counterpart of every conversation the user
// participates in, derived from their ledger rows.
func conversationPeers(ctx context.Context, userID string) ([]string, error) {
	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT conversation_key FROM conversation_states WHERE owner_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list peer conversations: %w", err)
	}
	defer rows.Close()

	var peers []string
	seen := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		peer, err := ChatPeer(key, userID)
		if err != nil || peer == userID {
			continue
		}
		if _, dup := seen[peer]; dup {
			continue
		}
		seen[peer] = struct{}{}
		peers = append(peers, peer)
	}
	return peers, rows.Err()
}
