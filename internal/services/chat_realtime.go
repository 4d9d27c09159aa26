package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/lumina-chat/lumina-backend/internal/database"
	"github.com/lumina-chat/lumina-backend/internal/models"
)

// Event types broadcast over Redis and WebSocket.
const (
	EventTypeMessage        = "message"
	EventTypeMessageAck     = "message_ack"
	EventTypeMessageEdited  = "message_edited"
	EventTypeMessageDeleted = "message_deleted"
	EventTypeMessageSeen    = "message_seen"
	EventTypeTypingStart    = "typing_start"
	EventTypeTypingStop     = "typing_stop"
	EventTypePresence       = "presence"
	EventTypeLedgerUpdate   = "ledger_update"
	EventTypeNotification   = "notification"
	EventTypeError          = "error"
)

// Redis channel prefixes. Conversation channels carry message/typing
// traffic; user channels carry ledger updates, presence and notifications.
const (
	convChannelPrefix = "chat:conv:"
	userChannelPrefix = "chat:user:"
)

// ChatEvent is the payload broadcast over Redis and delivered to
// WebSocket subscribers.
type ChatEvent struct {
	Type            string               `json:"type"`
	ConversationKey string               `json:"conversation_key,omitempty"`
	UserID          string               `json:"user_id,omitempty"`
	Username        string               `json:"username,omitempty"`
	MessageID       string               `json:"message_id,omitempty"`
	Online          *bool                `json:"online,omitempty"`
	Message         *models.Message      `json:"message,omitempty"`
	Ledger          *models.LedgerEntry  `json:"ledger,omitempty"`
	Notification    *models.Notification `json:"notification,omitempty"`
	Error           string               `json:"error,omitempty"`
	Timestamp       time.Time            `json:"timestamp,omitempty"`
}

// chatHub fans Redis traffic out to the WebSocket connections attached to
// this instance. Keyed by channel name, each subscriber owns a buffered
// event channel that is closed on unsubscribe.
type chatHub struct {
	mu     sync.RWMutex
	topics map[string]map[chan ChatEvent]struct{}
}

var (
	hub          = &chatHub{topics: make(map[string]map[chan ChatEvent]struct{})}
	redisStarted sync.Once
)

// SubscribeConversation attaches a local subscriber to a conversation's
// event stream. The returned func must be called to release the slot.
func SubscribeConversation(conversationKey string) (<-chan ChatEvent, func()) {
	return hub.subscribe(convChannelPrefix + conversationKey)
}

// SubscribeUser attaches a local subscriber to a user's own event stream.
func SubscribeUser(userID string) (<-chan ChatEvent, func()) {
	return hub.subscribe(userChannelPrefix + userID)
}

func (h *chatHub) subscribe(topic string) (<-chan ChatEvent, func()) {
	ch := make(chan ChatEvent, 32)

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[chan ChatEvent]struct{})
		h.topics[topic] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			if subs, ok := h.topics[topic]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.topics, topic)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

// fanOut delivers an event to every local subscriber of the topic.
// Slow consumers are skipped rather than blocking the subscriber loop.
func (h *chatHub) fanOut(topic string, event ChatEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.topics[topic] {
		select {
		case ch <- event:
		default:
		}
	}
}

// StartRedisChatSubscriber ensures a single shared Redis listener per instance.
func StartRedisChatSubscriber(ctx context.Context) {
	redisStarted.Do(func() {
		go runRedisSubscriber(ctx)
	})
}

func runRedisSubscriber(ctx context.Context) {
	client := database.RedisClient
	if client == nil {
		log.Println("Redis client not initialized; chat subscriber not started")
		return
	}

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := client.PSubscribe(ctx, convChannelPrefix+"*", userChannelPrefix+"*")
			defer pubsub.Close()

			log.Println("✅ Chat Redis subscriber started (patterns: chat:conv:*, chat:user:*)")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					// Transient store failure: back off and resubscribe,
					// nothing surfaces to connected clients.
					log.Printf("Redis subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var event ChatEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("failed to unmarshal chat event: %v", err)
					continue
				}

				hub.fanOut(msg.Channel, event)
			}
		}()
	}
}

// PublishConversationEvent publishes an event on a conversation channel.
func PublishConversationEvent(ctx context.Context, event ChatEvent) error {
	if event.ConversationKey == "" {
		return nil
	}
	return publish(ctx, convChannelPrefix+event.ConversationKey, event)
}

// PublishUserEvent publishes an event on a user's own channel.
func PublishUserEvent(ctx context.Context, userID string, event ChatEvent) error {
	return publish(ctx, userChannelPrefix+userID, event)
}

func publish(ctx context.Context, channel string, event ChatEvent) error {
	if database.RedisClient == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return database.RedisClient.Publish(ctx, channel, data).Err()
}
