package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/lumina-chat/lumina-backend/internal/database"
	"github.com/lumina-chat/lumina-backend/internal/models"
)

const (
	chatRecentKeyPrefix = "chat:conv:"
	chatRecentKeySuffix = ":recent"
	chatRecentMaxLen    = 50
	chatRecentTTL       = 1 * time.Hour
)

func chatRecentKey(conversationKey string) string {
	return chatRecentKeyPrefix + conversationKey + chatRecentKeySuffix
}

// PushMessageToRecentCache adds a message to the Redis recent cache
// (newest at head). Call after the Mongo insert. LPUSHX + LTRIM keeps the
// last 50; a cold cache is left cold, because a list holding only the
// newest message would be indistinguishable from the full tail and the
// next initial load would stop there instead of reading Mongo.
func PushMessageToRecentCache(msg models.Message) {
	if database.RedisClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := chatRecentKey(msg.ConversationKey)
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	pipe := database.RedisClient.Pipeline()
	pipe.LPushX(ctx, key, data)
	pipe.LTrim(ctx, key, 0, chatRecentMaxLen-1)
	pipe.Expire(ctx, key, chatRecentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("chat_cache: push failed for %s: %v", msg.ConversationKey, err)
	}
}

// InvalidateRecentCache drops the cached tail after an in-place mutation
// (edit, delete, seen). The next initial load repopulates from Mongo.
func InvalidateRecentCache(ctx context.Context, conversationKey string) {
	if database.RedisClient == nil {
		return
	}
	database.RedisClient.Del(ctx, chatRecentKey(conversationKey))
}

// getRecentMessagesFromCache returns the most recent messages for a
// conversation (oldest-first). Only valid for the initial page.
func getRecentMessagesFromCache(ctx context.Context, conversationKey string) ([]models.Message, bool) {
	if database.RedisClient == nil {
		return nil, false
	}

	raw, err := database.RedisClient.LRange(ctx, chatRecentKey(conversationKey), 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	var msgs []models.Message
	for i := len(raw) - 1; i >= 0; i-- {
		var m models.Message
		if json.Unmarshal([]byte(raw[i]), &m) != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, true
}

// LoadMessagesWithCache returns history for a conversation. For the
// initial load (before==nil), tries Redis first; on miss fetches from
// Mongo and warms the cache. Older pages always go to Mongo, cursored on
// the (before, beforeID) pair.
func LoadMessagesWithCache(ctx context.Context, conversationKey string, before *time.Time, beforeID string, limit int64) ([]models.Message, bool, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if before == nil && limit <= chatRecentMaxLen {
		if cached, ok := getRecentMessagesFromCache(ctx, conversationKey); ok {
			out := cached
			if int64(len(cached)) > limit {
				out = cached[int64(len(cached))-limit:]
			}
			hasMore := int64(len(cached)) >= limit
			return out, hasMore, nil
		}
	}

	msgs, hasMore, err := LoadMessages(ctx, conversationKey, before, beforeID, limit)
	if err != nil {
		return nil, false, err
	}
	if before == nil && len(msgs) > 0 {
		warmRecentCache(ctx, conversationKey, msgs)
	}
	return msgs, hasMore, nil
}

// warmRecentCache stores messages in Redis (oldest at tail).
func warmRecentCache(ctx context.Context, conversationKey string, msgs []models.Message) {
	if database.RedisClient == nil || len(msgs) == 0 {
		return
	}

	key := chatRecentKey(conversationKey)
	pipe := database.RedisClient.Pipeline()
	for i := len(msgs) - 1; i >= 0; i-- {
		data, err := json.Marshal(msgs[i])
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, 0, chatRecentMaxLen-1)
	pipe.Expire(ctx, key, chatRecentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("chat_cache: warm failed for %s: %v", conversationKey, err)
	}
}
