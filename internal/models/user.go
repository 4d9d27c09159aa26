package models

import (
	"time"
)

// User is the public profile held in PostgreSQL. The messaging engine
// reads it and only ever writes the online/last_seen_at pair.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"display_name,omitempty"`
	ProfilePicRef string    `json:"profile_pic,omitempty"`
	Online        bool      `json:"online"`
	LastSeenAt    time.Time `json:"last_seen_at"`
	Verified      bool      `json:"verified"`
	Blocked       bool      `json:"-"`
	CreatedAt     time.Time `json:"created_at"`

	// Internal only - never returned in JSON
	PasswordHash string `json:"-"`
}

// LockPin holds the optional locked-chats gate for a user. PIN and
// security answer are stored argon2id-hashed, never plaintext.
type LockPin struct {
	UserID             string `json:"-"`
	PinHash            string `json:"-"`
	SecurityQuestion   string `json:"security_question,omitempty"`
	SecurityAnswerHash string `json:"-"`
}

// PrivacySettings is the per-user privacy policy consulted by the engine.
// RequireRequest gates message append on a contact edge.
type PrivacySettings struct {
	UserID         string `json:"-"`
	ReadReceipts   bool   `json:"read_receipts"`
	ShowLastSeen   bool   `json:"last_seen"`
	RequireRequest bool   `json:"require_request"`
}

// DefaultPrivacySettings is the policy for users without a settings row.
func DefaultPrivacySettings(userID string) PrivacySettings {
	return PrivacySettings{
		UserID:         userID,
		ReadReceipts:   true,
		ShowLastSeen:   true,
		RequireRequest: false,
	}
}
