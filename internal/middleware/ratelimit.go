package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/lumina-chat/lumina-backend/internal/database"
	"github.com/lumina-chat/lumina-backend/pkg/clientip"
)

// Redis-backed abuse guard shared by every instance behind the load
// balancer. An IP that burns through the window gets blocked for a day.
// Redis failures fail open; the in-process limiters still apply.
const (
	abuseWindow      = 120 * time.Second
	abuseMaxRequests = 240
	abuseKeyPrefix   = "ratelimit:"
	blockedKeyPrefix = "blocked_ip:"
	blockedDuration  = 24 * time.Hour
)

// AbuseGuard blocks IPs that exceed the shared request budget.
func AbuseGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if database.RedisClient == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.Background()
		ip := clientip.RealClientIP(r)

		blocked, err := database.RedisClient.Exists(ctx, blockedKeyPrefix+ip).Result()
		if err == nil && blocked > 0 {
			tooManyRequests(w, "Your IP has been temporarily blocked due to excessive requests.")
			return
		}

		key := abuseKeyPrefix + ip
		count, err := database.RedisClient.Incr(ctx, key).Result()
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			database.RedisClient.Expire(ctx, key, abuseWindow)
		}

		if count > abuseMaxRequests {
			database.RedisClient.Set(ctx, blockedKeyPrefix+ip, "1", blockedDuration)
			tooManyRequests(w, "Rate limit exceeded. Your IP has been temporarily blocked.")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(abuseMaxRequests))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(abuseMaxRequests-count, 10))
		next.ServeHTTP(w, r)
	})
}

// UnblockIP lifts a block early.
func UnblockIP(ip string) error {
	return database.RedisClient.Del(context.Background(), blockedKeyPrefix+ip).Err()
}
