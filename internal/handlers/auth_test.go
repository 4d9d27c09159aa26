package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-chat/lumina-backend/internal/database"
	"github.com/lumina-chat/lumina-backend/internal/services"
)

// Sign-out touches both stores: sessions and presence markers live in
// Redis (in-process miniredis here), the user directory in PostgreSQL.
// Skips unless POSTGRES_TEST_URI is set.
func signoutTestSetup(t *testing.T) (context.Context, string, string) {
	t.Helper()
	uri := os.Getenv("POSTGRES_TEST_URI")
	if uri == "" {
		t.Skip("POSTGRES_TEST_URI not set")
	}
	if database.PostgresDB == nil {
		require.NoError(t, database.ConnectPostgres(uri))
	}

	mr := miniredis.RunT(t)
	prev := database.RedisClient
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		database.RedisClient.Close()
		database.RedisClient = prev
	})

	ctx := context.Background()
	suffix := time.Now().UnixNano() % 1_000_000_000
	user, err := services.CreateUser(ctx, fmt.Sprintf("so%d", suffix), "Sam", "x")
	require.NoError(t, err)
	t.Cleanup(func() {
		database.PostgresDB.Exec(`DELETE FROM users WHERE id = $1`, user.ID)
	})

	token, err := services.CreateSessionByID(user.ID)
	require.NoError(t, err)
	return ctx, user.ID, token
}

func TestSignoutForcesOffline(t *testing.T) {
	ctx, userID, token := signoutTestSetup(t)

	require.NoError(t, services.PresenceAttach(ctx, userID))
	p, err := services.GetPresence(ctx, userID)
	require.NoError(t, err)
	require.True(t, p.Online)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	Signout(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	_, valid, err := services.ValidateSession(token)
	require.NoError(t, err)
	assert.False(t, valid)

	p, err = services.GetPresence(ctx, userID)
	require.NoError(t, err)
	assert.False(t, p.Online)
	assert.NotNil(t, p.LastSeenAt)
}

func TestSignoutWithoutTokenRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	rr := httptest.NewRecorder()
	Signout(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
