package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lumina-chat/lumina-backend/internal/models"
	"github.com/lumina-chat/lumina-backend/internal/services"
	"github.com/lumina-chat/lumina-backend/pkg/utils"
)

// GetPrivacySettings returns the caller's privacy policy.
func GetPrivacySettings(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	settings, err := services.GetPrivacySettings(r.Context(), userID.String())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: settings})
}

// UpdatePrivacySettings overwrites the caller's privacy policy.
func UpdatePrivacySettings(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireSession(w, r)
	if !ok {
		return
	}

	var settings models.PrivacySettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	settings.UserID = userID.String()

	if err := services.UpdatePrivacySettings(r.Context(), settings); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Privacy settings updated", Data: settings})
}

type setPinRequest struct {
	Pin              string `json:"pin"`
	SecurityQuestion string `json:"security_question"`
	SecurityAnswer   string `json:"security_answer"`
}

// SetPin stores the lock PIN plus its security-question fallback. Both
// secrets are argon2id-hashed; only the question text stays readable.
func SetPin(w http.ResponseWriter, r *http.Request) {
	userID, token, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req setPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !utils.ValidatePIN(req.Pin) {
		http.Error(w, "PIN must be exactly 6 digits", http.StatusBadRequest)
		return
	}
	req.SecurityQuestion = strings.TrimSpace(req.SecurityQuestion)
	req.SecurityAnswer = strings.TrimSpace(req.SecurityAnswer)
	if req.SecurityQuestion == "" || req.SecurityAnswer == "" {
		http.Error(w, "Security question and answer are required", http.StatusBadRequest)
		return
	}

	// Replacing an existing PIN requires the gate to be open already.
	if _, err := services.GetLockPin(r.Context(), userID.String()); err == nil {
		if !services.LockedGateOpen(r.Context(), token) {
			writeJSON(w, http.StatusForbidden, APIResponse{Success: false, Message: "PIN verification required"})
			return
		}
	} else if !errors.Is(err, models.ErrNotFound) {
		writeServiceError(w, err)
		return
	}

	pinHash, err := utils.HashPassword(req.Pin)
	if err != nil {
		http.Error(w, "Failed to hash PIN", http.StatusInternalServerError)
		return
	}
	answerHash, err := utils.HashPassword(strings.ToLower(req.SecurityAnswer))
	if err != nil {
		http.Error(w, "Failed to hash answer", http.StatusInternalServerError)
		return
	}

	if err := services.SetLockPin(r.Context(), userID.String(), pinHash, req.SecurityQuestion, answerHash); err != nil {
		writeServiceError(w, err)
		return
	}

	// Setting the PIN counts as passing the challenge for this session.
	_ = services.OpenLockedGate(r.Context(), token)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "PIN set"})
}

type verifyPinRequest struct {
	Pin string `json:"pin"`
}

// VerifyPin checks the PIN and opens the locked gate for this session.
// Attempts share the sign-in lockout so the 6-digit space cannot be
// brute-forced.
func VerifyPin(w http.ResponseWriter, r *http.Request) {
	userID, token, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req verifyPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	lockoutKey := "pin:" + userID.String()
	if _, err := services.Signin.Check(lockoutKey); err != nil {
		writeServiceError(w, err)
		return
	}

	pin, err := services.GetLockPin(r.Context(), userID.String())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	valid, err := utils.VerifyPassword(req.Pin, pin.PinHash)
	if err != nil || !valid {
		services.Signin.Failure(lockoutKey)
		writeJSON(w, http.StatusForbidden, APIResponse{Success: false, Message: "Incorrect PIN"})
		return
	}

	services.Signin.Success(lockoutKey)
	if err := services.OpenLockedGate(r.Context(), token); err != nil {
		http.Error(w, "Failed to unlock", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Unlocked"})
}

type recoverPinRequest struct {
	Answer string `json:"answer"`
	NewPin string `json:"new_pin,omitempty"`
}

// RecoverPin is the forgot-PIN path. Called without an answer it returns
// the security question; with the correct answer it opens the gate and,
// when a new PIN is supplied, replaces the old one.
func RecoverPin(w http.ResponseWriter, r *http.Request) {
	userID, token, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req recoverPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	pin, err := services.GetLockPin(r.Context(), userID.String())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if strings.TrimSpace(req.Answer) == "" {
		writeJSON(w, http.StatusOK, APIResponse{
			Success: true,
			Data:    map[string]string{"security_question": pin.SecurityQuestion},
		})
		return
	}

	lockoutKey := "pin:" + userID.String()
	if _, err := services.Signin.Check(lockoutKey); err != nil {
		writeServiceError(w, err)
		return
	}

	valid, err := utils.VerifyPassword(strings.ToLower(strings.TrimSpace(req.Answer)), pin.SecurityAnswerHash)
	if err != nil || !valid {
		services.Signin.Failure(lockoutKey)
		writeJSON(w, http.StatusForbidden, APIResponse{Success: false, Message: "Incorrect answer"})
		return
	}
	services.Signin.Success(lockoutKey)

	if req.NewPin != "" {
		if !utils.ValidatePIN(req.NewPin) {
			http.Error(w, "PIN must be exactly 6 digits", http.StatusBadRequest)
			return
		}
		newHash, err := utils.HashPassword(req.NewPin)
		if err != nil {
			http.Error(w, "Failed to hash PIN", http.StatusInternalServerError)
			return
		}
		if err := services.SetLockPin(r.Context(), userID.String(), newHash, pin.SecurityQuestion, pin.SecurityAnswerHash); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	_ = services.OpenLockedGate(r.Context(), token)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Unlocked"})
}
