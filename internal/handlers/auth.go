package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/lumina-chat/lumina-backend/internal/models"
	"github.com/lumina-chat/lumina-backend/internal/services"
	"github.com/lumina-chat/lumina-backend/pkg/utils"
)

type SignupRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Password    string `json:"password"`
}

type SigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries the session token alongside the profile.
type AuthResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *models.User `json:"user,omitempty"`
	Token   string       `json:"token,omitempty"`
}

// Signup handles registration.
func Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Username = utils.NormalizeUsername(req.Username)
	if err := utils.ValidateUsername(req.Username); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	if _, err := services.GetUserByUsername(r.Context(), req.Username); err == nil {
		http.Error(w, "Username is already taken", http.StatusConflict)
		return
	} else if !errors.Is(err, models.ErrNotFound) {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	user, err := services.CreateUser(r.Context(), req.Username, req.DisplayName, hashed)
	if err != nil {
		log.Printf("⚠️ Signup failed for %s: %v", req.Username, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	token, err := services.CreateSessionByID(user.ID)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created successfully",
		User:    user,
		Token:   token,
	})
}

// Signin handles login with the failed-attempt lockout in front of the
// password check: while a cooldown is active the credentials are not
// examined at all.
func Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	username := utils.NormalizeUsername(req.Username)
	if username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	if remaining, err := services.Signin.Check(username); err != nil {
		writeJSON(w, http.StatusTooManyRequests, AuthResponse{
			Success: false,
			Message: fmt.Sprintf("Too many failed attempts. Try again in %ds.", int(remaining.Seconds())+1),
		})
		return
	}

	user, err := services.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			services.Signin.Failure(username)
			http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}

	valid, err := utils.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !valid {
		services.Signin.Failure(username)
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	if user.Blocked {
		http.Error(w, "This account is disabled", http.StatusForbidden)
		return
	}

	services.Signin.Success(username)

	token, err := services.CreateSessionByID(user.ID)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		User:    user,
		Token:   token,
	})
}

// Signout invalidates the current session and forces the user offline.
// A REST sign-out must not leave the directory saying "online" until
// some socket happens to die.
func Signout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		http.Error(w, "Missing session token", http.StatusUnauthorized)
		return
	}
	userID, valid, _ := services.ValidateSession(token)
	if err := services.InvalidateSession(token); err != nil {
		http.Error(w, "Failed to sign out", http.StatusInternalServerError)
		return
	}
	if valid {
		if err := services.SetOffline(r.Context(), userID.String(), time.Now().UTC()); err != nil {
			log.Printf("⚠️ Signout: offline write failed for %s: %v", userID, err)
		}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Signed out"})
}

// Me returns the authenticated user's profile and refreshes the session.
func Me(w http.ResponseWriter, r *http.Request) {
	userID, token, ok := requireSession(w, r)
	if !ok {
		return
	}

	user, err := services.GetUserByID(r.Context(), userID.String())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = services.RefreshSession(token)

	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "OK", User: user})
}

// CheckUsername reports availability for the signup form.
func CheckUsername(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	username := utils.NormalizeUsername(req.Username)
	if err := utils.ValidateUsername(username); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"available": false,
			"reason":    err.Error(),
		})
		return
	}

	_, err := services.GetUserByUsername(r.Context(), username)
	available := errors.Is(err, models.ErrNotFound)
	if err != nil && !available {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"available": available})
}

// GetUser serves a directory read: GET /api/users?id=<uuid>.
func GetUser(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := requireSession(w, r); !ok {
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	user, err := services.GetUserByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	user.PasswordHash = ""
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: user})
}

// SearchUsers backs the new-conversation contact search.
func SearchUsers(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: []models.User{}})
		return
	}

	users, err := services.SearchUsers(r.Context(), userID.String(), q, 25)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: users})
}
