package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lumina-chat/lumina-backend/internal/models"
	"github.com/lumina-chat/lumina-backend/internal/services"
)

// ChatHistory serves paginated messages, oldest first within the page.
// GET /api/chat/history?peer_id=<uuid>&before=<RFC3339>&before_id=<id>&limit=<n>
// Older pages pass the oldest loaded message's created_at and id so that
// same-timestamp neighbours are not skipped across a page boundary.
func ChatHistory(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	peerID := strings.TrimSpace(r.URL.Query().Get("peer_id"))
	if peerID == "" {
		http.Error(w, "peer_id is required", http.StatusBadRequest)
		return
	}
	conversationKey := services.ChatKey(userID.String(), peerID)

	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			http.Error(w, "before must be an RFC3339 timestamp", http.StatusBadRequest)
			return
		}
		before = &t
	}
	beforeID := strings.TrimSpace(r.URL.Query().Get("before_id"))

	limit := int64(50)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			limit = n
		}
	}

	msgs, hasMore, err := services.LoadMessagesWithCache(r.Context(), conversationKey, before, beforeID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"conversation_key": conversationKey,
		"messages":         msgs,
		"has_more":         hasMore,
	})
}

type sendMessageRequest struct {
	PeerID string `json:"peer_id"`
	Text   string `json:"text"`
}

// SendMessage is the REST path for appending a message; the WebSocket
// frame is the primary path and shares the same service call.
func SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.PeerID == "" || req.Text == "" {
		http.Error(w, "peer_id and text are required", http.StatusBadRequest)
		return
	}

	conversationKey := services.ChatKey(userID.String(), req.PeerID)
	saved, err := services.AppendMessage(r.Context(), conversationKey, userID.String(), req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: saved})
}

type editMessageRequest struct {
	PeerID    string `json:"peer_id"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

// EditMessage rewrites a message body in place. Only the sender may edit,
// and a deleted message stays deleted.
func EditMessage(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req editMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PeerID == "" || req.MessageID == "" || strings.TrimSpace(req.Text) == "" {
		http.Error(w, "peer_id, message_id and text are required", http.StatusBadRequest)
		return
	}

	conversationKey := services.ChatKey(userID.String(), req.PeerID)
	updated, err := services.EditMessage(r.Context(), conversationKey, req.MessageID, userID.String(), strings.TrimSpace(req.Text))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: updated})
}

type deleteMessageRequest struct {
	PeerID    string `json:"peer_id"`
	MessageID string `json:"message_id"`
}

// DeleteMessage tombstones a message: the row survives with the
// placeholder body so both ledgers keep a consistent timeline.
func DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req deleteMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PeerID == "" || req.MessageID == "" {
		http.Error(w, "peer_id and message_id are required", http.StatusBadRequest)
		return
	}

	conversationKey := services.ChatKey(userID.String(), req.PeerID)
	deleted, err := services.DeleteMessage(r.Context(), conversationKey, req.MessageID, userID.String())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: deleted})
}

type seenRequest struct {
	PeerID    string `json:"peer_id"`
	MessageID string `json:"message_id"`
}

// MarkSeen flips a received message to seen. A no-op when the reader has
// read receipts disabled.
func MarkSeen(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req seenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PeerID == "" || req.MessageID == "" {
		http.Error(w, "peer_id and message_id are required", http.StatusBadRequest)
		return
	}

	conversationKey := services.ChatKey(userID.String(), req.PeerID)
	if err := services.MarkMessageSeen(r.Context(), conversationKey, req.MessageID, userID.String()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Marked seen"})
}
