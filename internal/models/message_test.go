package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sentMessage() Message {
	return Message{
		ID:              "01J8ZC4T9V0000000000000000",
		ConversationKey: "alice_bob",
		SenderID:        "alice",
		Body:            "hello",
		CreatedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Status:          MessageStatusSent,
	}
}

func TestApplyEdit(t *testing.T) {
	m := sentMessage()
	at := m.CreatedAt.Add(time.Minute)

	err := m.ApplyEdit("alice", "hello again", at)
	assert.NoError(t, err)
	assert.Equal(t, "hello again", m.Body)
	assert.True(t, m.Edited)
	assert.Equal(t, at, m.CreatedAt)
}

func TestApplyEditNotOwner(t *testing.T) {
	m := sentMessage()

	err := m.ApplyEdit("bob", "hijacked", time.Now())
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, "hello", m.Body)
	assert.False(t, m.Edited)
}

func TestApplyEditAfterDelete(t *testing.T) {
	m := sentMessage()
	assert.NoError(t, m.ApplyDelete("alice"))

	err := m.ApplyEdit("alice", "resurrected", time.Now())
	assert.ErrorIs(t, err, ErrAlreadyDeleted)
	assert.Equal(t, DeletedPlaceholder, m.Body)
}

func TestApplyDelete(t *testing.T) {
	m := sentMessage()

	err := m.ApplyDelete("alice")
	assert.NoError(t, err)
	assert.True(t, m.Deleted)
	assert.Equal(t, DeletedPlaceholder, m.Body)
}

func TestApplyDeleteNotOwner(t *testing.T) {
	m := sentMessage()

	err := m.ApplyDelete("bob")
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.False(t, m.Deleted)
	assert.Equal(t, "hello", m.Body)
}

func TestApplyDeleteTwice(t *testing.T) {
	m := sentMessage()
	assert.NoError(t, m.ApplyDelete("alice"))
	assert.ErrorIs(t, m.ApplyDelete("alice"), ErrAlreadyDeleted)
}

func TestApplySeen(t *testing.T) {
	m := sentMessage()

	err := m.ApplySeen("bob")
	assert.NoError(t, err)
	assert.Equal(t, MessageStatusSeen, m.Status)

	// Repeat calls keep the status stable.
	assert.NoError(t, m.ApplySeen("bob"))
	assert.Equal(t, MessageStatusSeen, m.Status)
}

func TestApplySeenBySender(t *testing.T) {
	m := sentMessage()

	err := m.ApplySeen("alice")
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, MessageStatusSent, m.Status)
}
