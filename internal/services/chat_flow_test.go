package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/lumina-chat/lumina-backend/internal/database"
	"github.com/lumina-chat/lumina-backend/internal/models"
)

// Full append-path tests. They need PostgreSQL and MongoDB, plus the
// in-process miniredis for events and the recent cache. Set both
// POSTGRES_TEST_URI and MONGO_TEST_URI to run them, e.g.
//
//	POSTGRES_TEST_URI=... MONGO_TEST_URI=mongodb://localhost:27017/lumina_test go test ./internal/services/
func chatFlowTestSetup(t *testing.T) (context.Context, string, string, string) {
	t.Helper()
	mongoURI := os.Getenv("MONGO_TEST_URI")
	if mongoURI == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, alice, bob, key := ledgerTestSetup(t)
	redisTestSetup(t)

	if database.DB == nil {
		require.NoError(t, database.ConnectMongo(mongoURI))
		require.NoError(t, EnsureChatIndexes(ctx))
	}
	t.Cleanup(func() {
		database.DB.Collection(messagesCollection).
			DeleteMany(context.Background(), bson.M{"conversation_key": key})
	})
	return ctx, alice, bob, key
}

func TestAppendTouchesBothLedgers(t *testing.T) {
	ctx, alice, bob, key := chatFlowTestSetup(t)

	saved, err := AppendMessage(ctx, key, alice, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", saved.Body)
	assert.Equal(t, models.MessageStatusSent, saved.Status)

	// The recipient sees the snippet and one unread; the sender sees the
	// snippet with the counter untouched.
	theirs, err := GetLedgerEntry(ctx, bob, key)
	require.NoError(t, err)
	assert.Equal(t, "hi", theirs.LastMessage)
	assert.Equal(t, 1, theirs.UnreadCount)

	mine, err := GetLedgerEntry(ctx, alice, key)
	require.NoError(t, err)
	assert.Equal(t, "hi", mine.LastMessage)
	assert.Equal(t, 0, mine.UnreadCount)

	// Opening the conversation clears the counter.
	require.NoError(t, ClearUnread(ctx, bob, key))
	theirs, err = GetLedgerEntry(ctx, bob, key)
	require.NoError(t, err)
	assert.Equal(t, 0, theirs.UnreadCount)
}

func TestAppendUnreadCountsPerMessage(t *testing.T) {
	ctx, alice, bob, key := chatFlowTestSetup(t)

	for _, body := range []string{"one", "two", "three"} {
		_, err := AppendMessage(ctx, key, alice, body)
		require.NoError(t, err)
	}

	theirs, err := GetLedgerEntry(ctx, bob, key)
	require.NoError(t, err)
	assert.Equal(t, 3, theirs.UnreadCount)
	assert.Equal(t, "three", theirs.LastMessage)
}

func TestHistoryPaginationKeepsTimestampSiblings(t *testing.T) {
	ctx, alice, _, key := chatFlowTestSetup(t)

	var ids []string
	for _, body := range []string{"m1", "m2", "m3", "m4", "m5"} {
		saved, err := AppendMessage(ctx, key, alice, body)
		require.NoError(t, err)
		ids = append(ids, saved.ID)
	}

	all, hasMore, err := LoadMessages(ctx, key, nil, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.False(t, hasMore)

	// Walk backwards one message at a time, cursoring on the oldest
	// loaded (created_at, id) pair. Appends land fast enough to share
	// millisecond timestamps, which a timestamp-only cursor would skip.
	var collected []string
	before := &all[len(all)-1].CreatedAt
	beforeID := all[len(all)-1].ID
	collected = append(collected, all[len(all)-1].ID)
	for {
		page, _, err := LoadMessages(ctx, key, before, beforeID, 1)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		oldest := page[0]
		collected = append(collected, oldest.ID)
		before = &oldest.CreatedAt
		beforeID = oldest.ID
	}

	require.Len(t, collected, 5)
	for i, id := range ids {
		assert.Equal(t, id, collected[len(collected)-1-i])
	}
}

func TestHistoryPageBoundary(t *testing.T) {
	ctx, alice, _, key := chatFlowTestSetup(t)

	var ids []string
	for _, body := range []string{"a", "b", "c", "d"} {
		saved, err := AppendMessage(ctx, key, alice, body)
		require.NoError(t, err)
		ids = append(ids, saved.ID)
	}

	all, _, err := LoadMessages(ctx, key, nil, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 4)

	// Page before the third message: exactly the first two, in order.
	page, hasMore, err := LoadMessages(ctx, key, &all[2].CreatedAt, all[2].ID, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.False(t, hasMore)
	assert.Equal(t, ids[0], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)
}
