package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Presence needs both stores: the directory row lives in PostgreSQL and
// the TTL marker in Redis, so these tests combine ledgerTestSetup with
// the in-process miniredis.

func TestPresenceOnlineOfflineRoundTrip(t *testing.T) {
	ctx, alice, _, _ := ledgerTestSetup(t)
	redisTestSetup(t)

	require.NoError(t, PresenceAttach(ctx, alice))
	p, err := GetPresence(ctx, alice)
	require.NoError(t, err)
	assert.True(t, p.Online)
	assert.Nil(t, p.LastSeenAt)

	at := time.Now().UTC()
	require.NoError(t, PresenceDetach(ctx, alice, at))
	p, err = GetPresence(ctx, alice)
	require.NoError(t, err)
	assert.False(t, p.Online)
	require.NotNil(t, p.LastSeenAt)
	assert.WithinDuration(t, at, *p.LastSeenAt, time.Second)
}

func TestPresenceSurvivesClosingOneOfTwoSockets(t *testing.T) {
	ctx, alice, _, _ := ledgerTestSetup(t)
	redisTestSetup(t)

	// Two conversations open means two gateway sockets.
	require.NoError(t, PresenceAttach(ctx, alice))
	require.NoError(t, PresenceAttach(ctx, alice))

	require.NoError(t, PresenceDetach(ctx, alice, time.Now().UTC()))
	p, err := GetPresence(ctx, alice)
	require.NoError(t, err)
	assert.True(t, p.Online, "one socket closing must not take the user offline")

	require.NoError(t, PresenceDetach(ctx, alice, time.Now().UTC()))
	p, err = GetPresence(ctx, alice)
	require.NoError(t, err)
	assert.False(t, p.Online)
}

func TestForcedOfflineResetsConnectionCount(t *testing.T) {
	ctx, alice, _, _ := ledgerTestSetup(t)
	redisTestSetup(t)

	require.NoError(t, PresenceAttach(ctx, alice))
	require.NoError(t, SetOffline(ctx, alice, time.Now().UTC()))

	p, err := GetPresence(ctx, alice)
	require.NoError(t, err)
	assert.False(t, p.Online)

	// The lingering socket detaching later must not error or resurrect
	// the online flag.
	require.NoError(t, PresenceDetach(context.Background(), alice, time.Now().UTC()))
	p, err = GetPresence(ctx, alice)
	require.NoError(t, err)
	assert.False(t, p.Online)
}

func TestPresenceMarkerExpiryOverridesDirectory(t *testing.T) {
	ctx, alice, _, _ := ledgerTestSetup(t)
	mr := redisTestSetup(t)

	require.NoError(t, PresenceAttach(ctx, alice))

	// Process death: no detach ever runs, the marker just ages out.
	mr.FastForward(2 * PresenceTTL)

	p, err := GetPresence(ctx, alice)
	require.NoError(t, err)
	assert.False(t, p.Online)
}
