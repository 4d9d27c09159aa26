package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-chat/lumina-backend/internal/database"
	"github.com/lumina-chat/lumina-backend/internal/models"
)

// These tests exercise the send-authorization gate against a real
// PostgreSQL instance; they skip unless POSTGRES_TEST_URI is set, like
// the ledger tests.

func requireRequest(t *testing.T, ctx context.Context, userID string, on bool) {
	t.Helper()
	s, err := GetPrivacySettings(ctx, userID)
	require.NoError(t, err)
	s.RequireRequest = on
	require.NoError(t, UpdatePrivacySettings(ctx, s))
}

func TestAppendGateOpenByDefault(t *testing.T) {
	ctx, alice, bob, key := ledgerTestSetup(t)

	assert.NoError(t, authorizeAppend(ctx, key, alice, bob))
	assert.NoError(t, authorizeAppend(ctx, key, bob, alice))
}

func TestAppendGateRequireRequest(t *testing.T) {
	ctx, alice, bob, key := ledgerTestSetup(t)

	requireRequest(t, ctx, bob, true)

	err := authorizeAppend(ctx, key, alice, bob)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// The gate is per-recipient: bob can still write to alice.
	assert.NoError(t, authorizeAppend(ctx, key, bob, alice))

	// Accepting alice's request opens the gate.
	n, err := SendContactRequest(ctx, alice, bob, "hi")
	require.NoError(t, err)
	require.NoError(t, AcceptContactRequest(ctx, bob, n.ID))

	assert.NoError(t, authorizeAppend(ctx, key, alice, bob))
}

func TestAppendGateEstablishedConversation(t *testing.T) {
	ctx, alice, bob, key := ledgerTestSetup(t)

	// A conversation already on the recipient's ledger stays open when
	// the policy flips.
	require.NoError(t, TouchConversation(ctx, bob, key, "hello", time.Now().UTC()))
	requireRequest(t, ctx, bob, true)

	assert.NoError(t, authorizeAppend(ctx, key, alice, bob))
}

func TestAppendGateSelfChat(t *testing.T) {
	ctx, alice, _, _ := ledgerTestSetup(t)

	requireRequest(t, ctx, alice, true)
	assert.NoError(t, authorizeAppend(ctx, ChatKey(alice, alice), alice, alice))
}

func TestAppendGateBlockedParty(t *testing.T) {
	ctx, alice, bob, key := ledgerTestSetup(t)

	_, err := database.PostgresDB.ExecContext(ctx, `UPDATE users SET blocked = TRUE WHERE id = $1`, bob)
	require.NoError(t, err)

	assert.ErrorIs(t, authorizeAppend(ctx, key, alice, bob), models.ErrUnauthorized)
	assert.ErrorIs(t, authorizeAppend(ctx, key, bob, alice), models.ErrUnauthorized)
}
