package database

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to PostgreSQL, which holds users, privacy
// settings, contact edges, notifications and the conversation ledger.
func ConnectPostgres(postgresURI string) error {
	var err error

	PostgresDB, err = sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	PostgresDB.SetMaxOpenConns(25)
	PostgresDB.SetMaxIdleConns(5)
	PostgresDB.SetConnMaxLifetime(5 * time.Minute)

	if err = PostgresDB.Ping(); err != nil {
		return err
	}

	log.Println("✅ Connected to PostgreSQL")

	return InitPostgresTables()
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables() error {
	queries := []string{
		// Identity directory. The engine reads profiles and only writes
		// the online/last_seen_at pair.
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username VARCHAR(20) NOT NULL UNIQUE,
			display_name VARCHAR(100),
			profile_pic_ref TEXT,
			password_hash VARCHAR(255) NOT NULL,
			online BOOLEAN NOT NULL DEFAULT FALSE,
			last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			blocked BOOLEAN NOT NULL DEFAULT FALSE,
			pin_hash VARCHAR(255),
			security_question TEXT,
			security_answer_hash VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Per-user privacy policy. require_request gates message append.
		`CREATE TABLE IF NOT EXISTS user_settings (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			read_receipts BOOLEAN NOT NULL DEFAULT TRUE,
			show_last_seen BOOLEAN NOT NULL DEFAULT TRUE,
			require_request BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		// Conversation ledger: one row per (conversation, participant).
		// unread_count only changes through atomic SQL increments.
		`CREATE TABLE IF NOT EXISTS conversation_states (
			conversation_key VARCHAR(80) NOT NULL,
			owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			last_message TEXT NOT NULL DEFAULT '',
			last_message_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			unread_count INTEGER NOT NULL DEFAULT 0 CHECK (unread_count >= 0),
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			locked BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (conversation_key, owner_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_states_owner
			ON conversation_states (owner_id, last_message_at DESC)`,

		// Symmetric contact edges; accepting a request inserts both rows.
		`CREATE TABLE IF NOT EXISTS contacts (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			contact_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, contact_id)
		)`,

		// Notifications. owner_id NULL means admin broadcast (visible to all).
		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			owner_id UUID REFERENCES users(id) ON DELETE CASCADE,
			type VARCHAR(32) NOT NULL,
			from_user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			message TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			read BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_owner
			ON notifications (owner_id, created_at DESC)`,

		// Admin accounts are created directly in the database.
		`CREATE TABLE IF NOT EXISTS admins (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username VARCHAR(50) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, query := range queries {
		if _, err := PostgresDB.Exec(query); err != nil {
			return err
		}
	}

	log.Println("✅ PostgreSQL tables initialized")
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
