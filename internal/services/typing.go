package services

import (
	"context"
	"sync"
	"time"

	"github.com/lumina-chat/lumina-backend/internal/database"
)

const (
	// TypingIdleTimeout clears the typing flag after this much keyboard
	// silence.
	TypingIdleTimeout = time.Second
	// typingKeyTTL bounds staleness when the sender disconnects before
	// the idle timer fires. Acceptable staleness, not a correctness bug.
	typingKeyTTL = 5 * time.Second

	typingKeyPrefix = "typing:"
)

// TypingTracker is the per-connection, per-conversation typing state
// machine: Keystroke (re)arms a single-shot idle timer, Stop force-clears
// on send or disconnect.
type TypingTracker struct {
	conversationKey string
	userID          string
	idle            time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	active bool
}

// NewTypingTracker builds a tracker for one (conversation, user) pair.
func NewTypingTracker(conversationKey, userID string) *TypingTracker {
	return &TypingTracker{
		conversationKey: conversationKey,
		userID:          userID,
		idle:            TypingIdleTimeout,
	}
}

// Keystroke records composing activity: the first call in a burst writes
// isTyping=true, every call restarts the idle timer.
func (t *TypingTracker) Keystroke(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		t.active = true
		t.write(ctx, true)
	}

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.idle, t.expire)
}

// Stop force-clears the flag immediately. Called on message send and when
// the connection goes away. Safe to call repeatedly.
func (t *TypingTracker) Stop(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.active {
		t.active = false
		t.write(ctx, false)
	}
}

// Active reports whether the tracker currently shows the user as typing.
func (t *TypingTracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *TypingTracker) expire() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return
	}
	t.active = false
	t.timer = nil
	t.write(context.Background(), false)
}

// write publishes the transition and mirrors it into a short-TTL key for
// late subscribers. Best effort: typing is the one signal the engine is
// allowed to drop silently.
func (t *TypingTracker) write(ctx context.Context, typing bool) {
	if database.RedisClient == nil {
		return
	}

	key := typingKeyPrefix + t.conversationKey + ":" + t.userID
	if typing {
		database.RedisClient.Set(ctx, key, "1", typingKeyTTL)
	} else {
		database.RedisClient.Del(ctx, key)
	}

	eventType := EventTypeTypingStop
	if typing {
		eventType = EventTypeTypingStart
	}
	_ = PublishConversationEvent(ctx, ChatEvent{
		Type:            eventType,
		ConversationKey: t.conversationKey,
		UserID:          t.userID,
	})
}

// IsTyping reads the mirrored flag for a (conversation, user) pair.
func IsTyping(ctx context.Context, conversationKey, userID string) bool {
	if database.RedisClient == nil {
		return false
	}
	n, err := database.RedisClient.Exists(ctx, typingKeyPrefix+conversationKey+":"+userID).Result()
	return err == nil && n > 0
}
