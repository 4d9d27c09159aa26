package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumina-chat/lumina-backend/internal/models"
)

func TestChatKeyCommutative(t *testing.T) {
	assert.Equal(t, ChatKey("alice", "bob"), ChatKey("bob", "alice"))
	assert.Equal(t, "alice_bob", ChatKey("bob", "alice"))
}

func TestChatKeyDistinctPairs(t *testing.T) {
	keys := map[string]bool{
		ChatKey("a", "b"): true,
		ChatKey("a", "c"): true,
		ChatKey("b", "c"): true,
	}
	assert.Len(t, keys, 3)
}

func TestChatKeySelf(t *testing.T) {
	assert.Equal(t, "a_a", ChatKey("a", "a"))
}

func TestChatParticipants(t *testing.T) {
	a, b, err := ChatParticipants("alice_bob")
	assert.NoError(t, err)
	assert.Equal(t, "alice", a)
	assert.Equal(t, "bob", b)
}

func TestChatParticipantsMalformed(t *testing.T) {
	for _, key := range []string{"", "alice", "_bob", "alice_", "a_b_c"} {
		_, _, err := ChatParticipants(key)
		assert.ErrorIs(t, err, models.ErrMalformed, "key %q", key)
	}
}

func TestChatPeer(t *testing.T) {
	peer, err := ChatPeer("alice_bob", "alice")
	assert.NoError(t, err)
	assert.Equal(t, "bob", peer)

	peer, err = ChatPeer("alice_bob", "bob")
	assert.NoError(t, err)
	assert.Equal(t, "alice", peer)
}

func TestChatPeerSelfConversation(t *testing.T) {
	peer, err := ChatPeer("alice_alice", "alice")
	assert.NoError(t, err)
	assert.Equal(t, "alice", peer)
}

func TestChatPeerNonParticipant(t *testing.T) {
	_, err := ChatPeer("alice_bob", "mallory")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
