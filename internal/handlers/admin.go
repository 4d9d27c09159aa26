package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lumina-chat/lumina-backend/internal/database"
	"github.com/lumina-chat/lumina-backend/internal/middleware"
	"github.com/lumina-chat/lumina-backend/internal/models"
	"github.com/lumina-chat/lumina-backend/internal/services"
	"github.com/lumina-chat/lumina-backend/pkg/utils"
)

// Admin accounts are provisioned directly in the database; there is no
// signup endpoint.

type adminSigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminSignin issues an admin session token.
func AdminSignin(w http.ResponseWriter, r *http.Request) {
	var req adminSigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	var adminID uuid.UUID
	var passwordHash string
	err := database.PostgresDB.QueryRowContext(r.Context(), `
		SELECT id, password_hash FROM admins WHERE username = $1
	`, req.Username).Scan(&adminID, &passwordHash)
	if err != nil {
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	valid, err := utils.VerifyPassword(req.Password, passwordHash)
	if err != nil || !valid {
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	token, err := services.CreateAdminSession(adminID)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Login successful", Data: map[string]string{"token": token}})
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	token := extractBearerToken(r.Header.Get("Authorization"))
	_, ok, err := services.ValidateAdminSession(token)
	if err != nil || !ok {
		writeJSON(w, http.StatusUnauthorized, APIResponse{Success: false, Message: "invalid admin session"})
		return false
	}
	return true
}

type broadcastRequest struct {
	Message string `json:"message"`
}

// AdminBroadcast stores an announcement every user sees in their
// notification list (owner_id NULL).
func AdminBroadcast(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	id := uuid.New()
	_, err := database.PostgresDB.ExecContext(r.Context(), `
		INSERT INTO notifications (id, owner_id, type, message)
		VALUES ($1, NULL, $2, $3)
	`, id, models.NotificationAdminBroadcast, req.Message)
	if err != nil {
		http.Error(w, "Failed to create broadcast", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Message: "Broadcast created", Data: map[string]string{"id": id.String()}})
}

type unblockIPRequest struct {
	IP string `json:"ip"`
}

// AdminUnblockIP lifts an abuse-guard block early.
func AdminUnblockIP(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req unblockIPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.IP == "" {
		http.Error(w, "ip is required", http.StatusBadRequest)
		return
	}

	if err := middleware.UnblockIP(req.IP); err != nil {
		http.Error(w, "Failed to unblock IP", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "IP unblocked"})
}
