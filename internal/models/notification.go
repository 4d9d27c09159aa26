package models

import (
	"time"
)

// NotificationType discriminates notification payloads.
type NotificationType string

const (
	NotificationContactRequest NotificationType = "contact_request"
	NotificationAdminBroadcast NotificationType = "admin_broadcast"
)

// Notification is stored in PostgreSQL. Rows with a NULL owner are admin
// broadcasts visible to every user; contact requests are owner-scoped and
// are deleted when accepted or declined.
type Notification struct {
	ID           string           `json:"id"`
	OwnerID      string           `json:"-"`
	Type         NotificationType `json:"type"`
	FromUserID   string           `json:"from,omitempty"`
	FromUsername string           `json:"from_username,omitempty"`
	Message      string           `json:"message"`
	CreatedAt    time.Time        `json:"created_at"`
	Read         bool             `json:"read"`
}
