package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-chat/lumina-backend/internal/database"
	"github.com/lumina-chat/lumina-backend/internal/models"
)

// redisTestSetup points database.RedisClient at an in-process miniredis
// and restores the previous client when the test ends.
func redisTestSetup(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	prev := database.RedisClient
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		database.RedisClient.Close()
		database.RedisClient = prev
	})
	return mr
}

func cacheMessage(key string, n int, at time.Time) models.Message {
	return models.Message{
		ID:              newMessageID(at),
		ConversationKey: key,
		SenderID:        "alice",
		Body:            fmt.Sprintf("message %d", n),
		CreatedAt:       at,
		Status:          models.MessageStatusSent,
	}
}

func TestPushOnColdCacheStaysAMiss(t *testing.T) {
	redisTestSetup(t)
	key := "alice_bob"

	// Nothing warmed: a push must not seed a one-message list that the
	// next initial load would mistake for the full recent tail.
	PushMessageToRecentCache(cacheMessage(key, 1, time.Now().UTC()))

	_, ok := getRecentMessagesFromCache(context.Background(), key)
	assert.False(t, ok)
}

func TestPushAfterExpiryStaysAMiss(t *testing.T) {
	mr := redisTestSetup(t)
	ctx := context.Background()
	key := "alice_bob"
	now := time.Now().UTC()

	warmRecentCache(ctx, key, []models.Message{
		cacheMessage(key, 1, now.Add(-2*time.Minute)),
		cacheMessage(key, 2, now.Add(-time.Minute)),
	})
	_, ok := getRecentMessagesFromCache(ctx, key)
	require.True(t, ok)

	// Idle past the TTL, then a new message arrives.
	mr.FastForward(2 * time.Hour)
	PushMessageToRecentCache(cacheMessage(key, 3, now))

	_, ok = getRecentMessagesFromCache(ctx, key)
	assert.False(t, ok)
}

func TestPushAppendsToWarmCache(t *testing.T) {
	redisTestSetup(t)
	ctx := context.Background()
	key := "alice_bob"
	now := time.Now().UTC()

	warmRecentCache(ctx, key, []models.Message{
		cacheMessage(key, 1, now.Add(-2*time.Minute)),
		cacheMessage(key, 2, now.Add(-time.Minute)),
	})
	PushMessageToRecentCache(cacheMessage(key, 3, now))

	// database.DB is nil here, so a Mongo read would panic: reaching the
	// assertions proves the warm path served the page.
	msgs, hasMore, err := LoadMessagesWithCache(ctx, key, nil, "", 50)
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, msgs, 3)
	assert.Equal(t, "message 1", msgs[0].Body)
	assert.Equal(t, "message 2", msgs[1].Body)
	assert.Equal(t, "message 3", msgs[2].Body)
}

func TestInvalidateDropsWarmCache(t *testing.T) {
	redisTestSetup(t)
	ctx := context.Background()
	key := "alice_bob"

	warmRecentCache(ctx, key, []models.Message{
		cacheMessage(key, 1, time.Now().UTC()),
	})
	InvalidateRecentCache(ctx, key)

	_, ok := getRecentMessagesFromCache(ctx, key)
	assert.False(t, ok)
}
