package models

import (
	"time"
)

// ConversationView selects which slice of the ledger a list request reads.
type ConversationView string

const (
	ViewHome    ConversationView = "home"
	ViewArchive ConversationView = "archive"
	ViewLocked  ConversationView = "locked"
)

// ConversationFlag names the per-owner boolean flags on a ledger row.
type ConversationFlag string

const (
	FlagArchived ConversationFlag = "archived"
	FlagLocked   ConversationFlag = "locked"
)

// LedgerEntry is one participant's private view of a conversation: the
// unread counter, the archive/lock flags and the last-message preview.
// There is exactly one row per (conversation_key, owner_id); the
// counterpart's row is independent.
type LedgerEntry struct {
	ConversationKey string    `json:"conversation_key"`
	OwnerID         string    `json:"-"`
	LastMessage     string    `json:"last_message"`
	LastMessageAt   time.Time `json:"timestamp"`
	UnreadCount     int       `json:"unread_count"`
	Archived        bool      `json:"archived"`
	Locked          bool      `json:"locked"`
}

// ConversationSummary is a ledger entry joined with the peer's profile,
// as rendered by the Home/Archive/Locked lists.
type ConversationSummary struct {
	LedgerEntry
	PeerID       string `json:"user_id"`
	PeerUsername string `json:"username"`
	PeerOnline   bool   `json:"online"`
	PeerVerified bool   `json:"verified"`
}
