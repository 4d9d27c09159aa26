package services

import (
	"strings"

	"github.com/lumina-chat/lumina-backend/internal/models"
)

// chatKeySeparator joins the two participant ids. User ids are UUIDs, so
// the separator never collides with id characters.
const chatKeySeparator = "_"

// ChatKey derives the conversation key for two participants. It is pure
// and commutative: both sides compute the identical key with no lookup.
func ChatKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + chatKeySeparator + b
}

// ChatParticipants decodes a conversation key back into its two participant
// ids. Fails closed on anything that could not have come from ChatKey.
func ChatParticipants(key string) (string, string, error) {
	parts := strings.Split(key, chatKeySeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] > parts[1] {
		return "", "", models.ErrMalformed
	}
	return parts[0], parts[1], nil
}

// ChatPeer returns the counterpart of selfID in the conversation, or
// ErrUnauthorized when selfID is not a participant.
func ChatPeer(key, selfID string) (string, error) {
	a, b, err := ChatParticipants(key)
	if err != nil {
		return "", err
	}
	switch selfID {
	case a:
		return b, nil
	case b:
		return a, nil
	}
	return "", models.ErrUnauthorized
}
