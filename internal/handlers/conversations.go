package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lumina-chat/lumina-backend/internal/models"
	"github.com/lumina-chat/lumina-backend/internal/services"
)

// ListConversations serves the Home, Archive and Locked lists.
// GET /api/conversations?view=home|archive|locked (default home).
// The locked view additionally requires the session to have passed the
// PIN challenge since sign-in.
func ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, token, ok := requireSession(w, r)
	if !ok {
		return
	}

	view := models.ConversationView(strings.ToLower(r.URL.Query().Get("view")))
	if view == "" {
		view = models.ViewHome
	}
	switch view {
	case models.ViewHome, models.ViewArchive, models.ViewLocked:
	default:
		http.Error(w, "view must be home, archive or locked", http.StatusBadRequest)
		return
	}

	if view == models.ViewLocked && !services.LockedGateOpen(r.Context(), token) {
		writeJSON(w, http.StatusForbidden, APIResponse{Success: false, Message: "PIN verification required"})
		return
	}

	summaries, err := services.ListConversations(r.Context(), userID.String(), view)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if summaries == nil {
		summaries = []models.ConversationSummary{}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: summaries})
}

type flagRequest struct {
	PeerID string `json:"peer_id"`
	Flag   string `json:"flag"`  // "archived" or "locked"
	Value  bool   `json:"value"`
}

// SetConversationFlag archives/unarchives or locks/unlocks one
// conversation for the caller only; the peer's row is untouched.
func SetConversationFlag(w http.ResponseWriter, r *http.Request) {
	userID, token, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req flagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PeerID == "" {
		http.Error(w, "peer_id is required", http.StatusBadRequest)
		return
	}

	flag := models.ConversationFlag(req.Flag)
	conversationKey := services.ChatKey(userID.String(), req.PeerID)

	// Unlocking a conversation exposes it again, so it needs the same
	// gate as the Locked view.
	if flag == models.FlagLocked && !req.Value && !services.LockedGateOpen(r.Context(), token) {
		writeJSON(w, http.StatusForbidden, APIResponse{Success: false, Message: "PIN verification required"})
		return
	}

	if err := services.SetConversationFlag(r.Context(), userID.String(), conversationKey, flag, req.Value); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Conversation updated"})
}

type readRequest struct {
	PeerID string `json:"peer_id"`
}

// MarkConversationRead zeroes the caller's unread counter when they open
// the conversation.
func MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req readRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PeerID == "" {
		http.Error(w, "peer_id is required", http.StatusBadRequest)
		return
	}

	conversationKey := services.ChatKey(userID.String(), req.PeerID)
	if err := services.ClearUnread(r.Context(), userID.String(), conversationKey); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Conversation marked read"})
}
