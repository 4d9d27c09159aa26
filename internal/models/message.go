package models

import (
	"time"
)

// MessageStatus is the delivery status of a message from the sender's
// point of view. Valid values: "sent", "seen".
type MessageStatus string

const (
	MessageStatusSent MessageStatus = "sent"
	MessageStatusSeen MessageStatus = "seen"
)

// DeletedPlaceholder replaces the body of a tombstoned message. The entry
// keeps its position in the log so both participants see the same sequence.
const DeletedPlaceholder = "This message deleted"

// Message is stored in MongoDB, one document per message. IDs are ULIDs,
// so sorting by (created_at, _id) reproduces append order on timestamp ties.
type Message struct {
	ID              string        `bson:"_id" json:"id"`
	ConversationKey string        `bson:"conversation_key" json:"conversation_key"`
	SenderID        string        `bson:"sender_id" json:"sender_id"`
	Body            string        `bson:"body" json:"body"`
	CreatedAt       time.Time     `bson:"created_at" json:"created_at"`
	Status          MessageStatus `bson:"status" json:"status"`
	Deleted         bool          `bson:"deleted" json:"deleted,omitempty"`
	Edited          bool          `bson:"edited" json:"edited,omitempty"`
}

// ApplyEdit overwrites the body in place. Last write wins; no edit history
// is kept and created_at is refreshed to the edit time.
func (m *Message) ApplyEdit(editorID, newBody string, at time.Time) error {
	if editorID != m.SenderID {
		return ErrNotOwner
	}
	if m.Deleted {
		return ErrAlreadyDeleted
	}
	m.Body = newBody
	m.Edited = true
	m.CreatedAt = at
	return nil
}

// ApplyDelete tombstones the message. The entry is never removed from the
// ordered sequence and further edits are rejected.
func (m *Message) ApplyDelete(editorID string) error {
	if editorID != m.SenderID {
		return ErrNotOwner
	}
	if m.Deleted {
		return ErrAlreadyDeleted
	}
	m.Body = DeletedPlaceholder
	m.Deleted = true
	return nil
}

// ApplySeen flips sent -> seen. Only the non-sender may mark a message
// seen; repeat calls are no-ops.
func (m *Message) ApplySeen(readerID string) error {
	if readerID == m.SenderID {
		return ErrNotOwner
	}
	m.Status = MessageStatusSeen
	return nil
}
