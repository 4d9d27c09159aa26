package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/lumina-chat/lumina-backend/internal/database"
	"github.com/lumina-chat/lumina-backend/internal/models"
)

// CreateUser inserts a user row plus their default privacy settings.
func CreateUser(ctx context.Context, username, displayName, passwordHash string) (*models.User, error) {
	id := uuid.New()
	u := models.User{ID: id.String(), Username: username, DisplayName: displayName}
	err := database.PostgresDB.QueryRowContext(ctx, `
		INSERT INTO users (id, username, display_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, last_seen_at
	`, id, username, displayName, passwordHash).Scan(&u.CreatedAt, &u.LastSeenAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	_, err = database.PostgresDB.ExecContext(ctx, `
		INSERT INTO user_settings (user_id) VALUES ($1)
	`, id)
	if err != nil {
		return nil, fmt.Errorf("create user settings: %w", err)
	}
	return &u, nil
}

// GetUserByID loads a public profile. ErrNotFound when absent.
func GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT id, username, COALESCE(display_name, ''), COALESCE(profile_pic_ref, ''),
		       online, last_seen_at, verified, blocked, password_hash, created_at
		FROM users WHERE id = $1
	`, userID).Scan(
		&u.ID, &u.Username, &u.DisplayName, &u.ProfilePicRef,
		&u.Online, &u.LastSeenAt, &u.Verified, &u.Blocked, &u.PasswordHash, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetUserByUsername resolves a (normalized) username to a profile.
func GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var id string
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT id FROM users WHERE LOWER(username) = LOWER($1)
	`, username).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return GetUserByID(ctx, id)
}

// GetUsernameByID retrieves just the username, "" when the user is absent.
func GetUsernameByID(userID string) (string, error) {
	var username string
	err := database.PostgresDB.QueryRow(`
		SELECT username FROM users WHERE id = $1
	`, userID).Scan(&username)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return username, nil
}

// SearchUsers returns profiles whose username contains the query,
// excluding the caller. Backs the contact search screen.
func SearchUsers(ctx context.Context, selfID, query string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 25
	}
	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT id, username, COALESCE(display_name, ''), online, last_seen_at, verified
		FROM users
		WHERE id != $1 AND NOT blocked AND username ILIKE '%' || $2 || '%'
		ORDER BY username
		LIMIT $3
	`, selfID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Online, &u.LastSeenAt, &u.Verified); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetPrivacySettings loads a user's policy, defaulting when no row exists.
func GetPrivacySettings(ctx context.Context, userID string) (models.PrivacySettings, error) {
	s := models.DefaultPrivacySettings(userID)
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT read_receipts, show_last_seen, require_request
		FROM user_settings WHERE user_id = $1
	`, userID).Scan(&s.ReadReceipts, &s.ShowLastSeen, &s.RequireRequest)
	if err != nil && err != sql.ErrNoRows {
		return s, fmt.Errorf("get privacy settings: %w", err)
	}
	return s, nil
}

// UpdatePrivacySettings overwrites the user's policy.
func UpdatePrivacySettings(ctx context.Context, s models.PrivacySettings) error {
	_, err := database.PostgresDB.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, read_receipts, show_last_seen, require_request)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET read_receipts = $2, show_last_seen = $3, require_request = $4
	`, s.UserID, s.ReadReceipts, s.ShowLastSeen, s.RequireRequest)
	if err != nil {
		return fmt.Errorf("update privacy settings: %w", err)
	}
	return nil
}

// SetLockPin stores the argon2id-hashed PIN and security fallback.
func SetLockPin(ctx context.Context, userID, pinHash, question, answerHash string) error {
	res, err := database.PostgresDB.ExecContext(ctx, `
		UPDATE users SET pin_hash = $2, security_question = $3, security_answer_hash = $4
		WHERE id = $1
	`, userID, pinHash, question, answerHash)
	if err != nil {
		return fmt.Errorf("set lock pin: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// GetLockPin loads the lock-PIN record. ErrNotFound when no PIN is set.
func GetLockPin(ctx context.Context, userID string) (*models.LockPin, error) {
	var pin models.LockPin
	var pinHash, question, answerHash sql.NullString
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT pin_hash, security_question, security_answer_hash FROM users WHERE id = $1
	`, userID).Scan(&pinHash, &question, &answerHash)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lock pin: %w", err)
	}
	if !pinHash.Valid || pinHash.String == "" {
		return nil, models.ErrNotFound
	}
	pin.UserID = userID
	pin.PinHash = pinHash.String
	pin.SecurityQuestion = question.String
	pin.SecurityAnswerHash = answerHash.String
	return &pin, nil
}
