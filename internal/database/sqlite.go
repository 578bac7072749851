package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Open connects to the SQLite database described by dsn and makes sure
// every table exists.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	log.WithField("dsn", dsn).Info("Connected to SQLite database")

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// createTables creates the schema. Comments and reactions cascade with their post.
func createTables(ctx context.Context, db *sql.DB) error {
	schema := `
	PRAGMA foreign_keys = ON;

	CREATE TABLE IF NOT EXISTS user (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS post (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		author_id INTEGER NOT NULL,
		created DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		FOREIGN KEY (author_id) REFERENCES user(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS comment (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		created DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		body TEXT NOT NULL,
		FOREIGN KEY (post_id) REFERENCES post(id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES user(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS reaction (
		post_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		created DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (post_id, user_id),
		FOREIGN KEY (post_id) REFERENCES post(id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES user(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		uuid TEXT NOT NULL UNIQUE,
		expires DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES user(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_post_created ON post(created);
	CREATE INDEX IF NOT EXISTS idx_comment_post_created ON comment(post_id, created);
	CREATE INDEX IF NOT EXISTS idx_reaction_user ON reaction(user_id);
	CREATE INDEX IF NOT EXISTS idx_session_user ON session(user_id);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error creating tables: %w", err)
	}

	log.Debug("Database tables created or already exist.")
	return nil
}

// CleanupExpiredSessions deletes expired sessions every interval until ctx is done.
func CleanupExpiredSessions(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := DeleteExpiredSessions(ctx, db, time.Now().UTC())
			if err != nil {
				log.WithError(err).Error("Error cleaning up expired sessions")
				continue
			}
			if n > 0 {
				log.Infof("Cleaned up %d expired sessions.", n)
			}
		}
	}
}

// DeleteExpiredSessions removes sessions that expired before now and reports how many were removed.
func DeleteExpiredSessions(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, "DELETE FROM session WHERE expires < ?", now)
	if err != nil {
		return 0, fmt.Errorf("error deleting expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedPassword), nil
}

// CheckPasswordHash compares a bcrypt hash with a plaintext password.
func CheckPasswordHash(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
