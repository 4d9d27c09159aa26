package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lumina-chat/lumina-backend/internal/models"
	"github.com/lumina-chat/lumina-backend/internal/services"
)

// ListContacts returns the caller's contact list.
func ListContacts(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	contacts, err := services.ListContacts(r.Context(), userID.String())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if contacts == nil {
		contacts = []models.User{}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: contacts})
}

type contactRequestBody struct {
	UserID  string `json:"user_id"`
	Message string `json:"message,omitempty"`
}

// SendContactRequest asks another user for permission to message them.
func SendContactRequest(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req contactRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	notif, err := services.SendContactRequest(r.Context(), userID.String(), req.UserID, strings.TrimSpace(req.Message))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Message: "Request sent", Data: notif})
}

type contactDecisionBody struct {
	NotificationID string `json:"notification_id"`
}

// AcceptContactRequest grants the sender messaging access in both
// directions and removes the pending notification.
func AcceptContactRequest(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req contactDecisionBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.NotificationID == "" {
		http.Error(w, "notification_id is required", http.StatusBadRequest)
		return
	}

	if err := services.AcceptContactRequest(r.Context(), userID.String(), req.NotificationID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Request accepted"})
}

// DeclineContactRequest discards a pending request without granting access.
func DeclineContactRequest(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req contactDecisionBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.NotificationID == "" {
		http.Error(w, "notification_id is required", http.StatusBadRequest)
		return
	}

	if err := services.DeclineContactRequest(r.Context(), userID.String(), req.NotificationID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Request declined"})
}

// ListNotifications returns the caller's notifications merged with
// broadcasts, newest first.
func ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	notifs, err := services.ListNotifications(r.Context(), userID.String())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if notifs == nil {
		notifs = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: notifs})
}

// MarkNotificationRead flags one owned notification as read.
func MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req contactDecisionBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.NotificationID == "" {
		http.Error(w, "notification_id is required", http.StatusBadRequest)
		return
	}

	if err := services.MarkNotificationRead(r.Context(), userID.String(), req.NotificationID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Notification read"})
}
