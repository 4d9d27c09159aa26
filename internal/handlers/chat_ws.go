package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumina-chat/lumina-backend/internal/services"
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the CORS middleware at the HTTP layer.
		return true
	},
}

// ChatClientMessage is the frame format clients send over the socket.
type ChatClientMessage struct {
	Type      string `json:"type"` // "message", "edit", "delete", "typing", "typing_stop", "read", "ping"
	Text      string `json:"text,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// wsConn serializes writes; events arrive from the hub goroutine while
// acks are written from the reader loop.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// ChatWebSocket binds one connection to one conversation, selected by the
// `peer_id` query parameter. Authentication uses the session token
// (Authorization: Bearer <token>, or ?token= for browser clients).
//
// Connections drive presence: the user goes online with their first
// socket and offline when the last one detaches, with the Redis TTL
// marker as backstop when the process dies before the deferred write
// runs.
func ChatWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}
	self := userID.String()

	peerID := strings.TrimSpace(r.URL.Query().Get("peer_id"))
	if peerID == "" {
		http.Error(w, "peer_id is required", http.StatusBadRequest)
		return
	}
	if _, err := services.GetUserByID(r.Context(), peerID); err != nil {
		writeServiceError(w, err)
		return
	}

	conversationKey := services.ChatKey(self, peerID)
	username, _ := services.GetUsernameByID(self)

	raw, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = services.PresenceAttach(ctx, self)
	defer func() {
		// cancel() has not run yet, but use a fresh context anyway so the
		// offline write cannot be skipped by an inherited cancellation.
		// Other sockets of the same user keep them online until the last
		// one detaches.
		services.PresenceDetach(context.Background(), self, time.Now().UTC())
	}()

	typing := services.NewTypingTracker(conversationKey, self)
	defer typing.Stop(context.Background())

	convCh, unsubConv := services.SubscribeConversation(conversationKey)
	defer unsubConv()
	userCh, unsubUser := services.SubscribeUser(self)
	defer unsubUser()

	go func() {
		for {
			var evt services.ChatEvent
			var open bool
			select {
			case evt, open = <-convCh:
			case evt, open = <-userCh:
			case <-ctx.Done():
				return
			}
			if !open {
				return
			}
			// Own typing echoes are noise for the sender.
			if (evt.Type == services.EventTypeTypingStart || evt.Type == services.EventTypeTypingStop) && evt.UserID == self {
				continue
			}
			if err := conn.writeJSON(evt); err != nil {
				return
			}
		}
	}()

	raw.SetReadLimit(64 * 1024)
	_ = raw.SetReadDeadline(time.Now().Add(90 * time.Second))
	raw.SetPongHandler(func(string) error {
		_ = raw.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			return
		}
		_ = raw.SetReadDeadline(time.Now().Add(90 * time.Second))

		var msg ChatClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "message":
			handleIncomingMessage(ctx, conn, conversationKey, self, username, typing, msg)
		case "edit":
			if msg.MessageID == "" {
				continue
			}
			if _, err := services.EditMessage(ctx, conversationKey, msg.MessageID, self, msg.Text); err != nil {
				sendWSError(conn, conversationKey, err)
			}
		case "delete":
			if msg.MessageID == "" {
				continue
			}
			if _, err := services.DeleteMessage(ctx, conversationKey, msg.MessageID, self); err != nil {
				sendWSError(conn, conversationKey, err)
			}
		case "typing":
			typing.Keystroke(ctx)
		case "typing_stop":
			typing.Stop(ctx)
		case "read":
			if msg.MessageID != "" {
				_ = services.MarkMessageSeen(ctx, conversationKey, msg.MessageID, self)
			}
		case "ping":
			services.RefreshPresence(ctx, self)
		default:
			// Ignore unknown types.
		}
	}
}

// handleIncomingMessage persists and fans out one sent message, clearing
// the sender's typing indicator first so peers never see "typing" after
// the message itself.
func handleIncomingMessage(
	ctx context.Context,
	conn *wsConn,
	conversationKey, senderID, username string,
	typing *services.TypingTracker,
	msg ChatClientMessage,
) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	typing.Stop(ctx)

	saved, err := services.AppendMessage(ctx, conversationKey, senderID, text)
	if err != nil {
		sendWSError(conn, conversationKey, err)
		return
	}

	_ = conn.writeJSON(services.ChatEvent{
		Type:            services.EventTypeMessageAck,
		ConversationKey: conversationKey,
		Username:        username,
		Message:         saved,
		Timestamp:       time.Now().UTC(),
	})
}

func sendWSError(conn *wsConn, conversationKey string, err error) {
	_ = conn.writeJSON(services.ChatEvent{
		Type:            services.EventTypeError,
		ConversationKey: conversationKey,
		Error:           err.Error(),
		Timestamp:       time.Now().UTC(),
	})
}
