package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"github.com/lumina-chat/lumina-backend/internal/database"
)

// Admin sessions are shorter-lived than user sessions and live under
// their own Redis prefix so a leaked user token can never reach the
// admin surface.
const (
	AdminSessionDuration    = 12 * time.Hour
	adminSessionKeyPrefix   = "admin_session:"
	adminToSessionKeyPrefix = "admin_to_session:"
)

// CreateAdminSession issues a token for an admin, replacing any session
// they already hold.
func CreateAdminSession(adminID uuid.UUID) (string, error) {
	_ = InvalidateAdminSessions(adminID)

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	ctx := context.Background()
	if err := database.RedisClient.Set(ctx, adminSessionKeyPrefix+token, adminID.String(), AdminSessionDuration).Err(); err != nil {
		return "", err
	}
	if err := database.RedisClient.Set(ctx, adminToSessionKeyPrefix+adminID.String(), token, AdminSessionDuration).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// ValidateAdminSession resolves a token to the admin holding it.
func ValidateAdminSession(token string) (uuid.UUID, bool, error) {
	if token == "" {
		return uuid.Nil, false, nil
	}

	idStr, err := database.RedisClient.Get(context.Background(), adminSessionKeyPrefix+token).Result()
	if err != nil {
		return uuid.Nil, false, nil
	}
	adminID, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, false, err
	}
	return adminID, true, nil
}

// InvalidateAdminSessions revokes the admin's current session, if any.
func InvalidateAdminSessions(adminID uuid.UUID) error {
	ctx := context.Background()
	mappingKey := adminToSessionKeyPrefix + adminID.String()

	token, err := database.RedisClient.Get(ctx, mappingKey).Result()
	if err == nil && token != "" {
		database.RedisClient.Del(ctx, adminSessionKeyPrefix+token)
	}
	return database.RedisClient.Del(ctx, mappingKey).Err()
}
