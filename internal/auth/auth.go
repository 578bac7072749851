package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"
	"unicode/utf8"

	"blog/internal/database"
	"blog/internal/models"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

const SessionCookieName = "session_token"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrSessionNotFound    = errors.New("session not found or expired")
)

var usernameRegex = regexp.MustCompile(`^[\p{L}0-9_]{3,20}$`) // Unicode letters, numbers, underscore

const (
	minPasswordLen = 6
	maxPasswordLen = 64
)

// ValidateUserCredentials checks the registration form.
func ValidateUserCredentials(username, password string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("%w: username must be 3-20 letters, numbers or underscores", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(password); n < minPasswordLen || n > maxPasswordLen {
		return fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidInput, minPasswordLen, maxPasswordLen)
	}
	return nil
}

// Manager owns accounts and login sessions.
type Manager struct {
	db           *sql.DB
	expiration   time.Duration
	cookieSecure bool
	now          func() time.Time
}

func NewManager(db *sql.DB, expiration time.Duration, cookieSecure bool) *Manager {
	return &Manager{
		db:           db,
		expiration:   expiration,
		cookieSecure: cookieSecure,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RegisterUser creates an account with a bcrypt-hashed password.
func (m *Manager) RegisterUser(ctx context.Context, username, password string) (*models.User, error) {
	if err := ValidateUserCredentials(username, password); err != nil {
		return nil, err
	}

	var exists bool
	err := m.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM user WHERE username = ? COLLATE NOCASE)", username).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrUsernameExists
	}

	hashedPassword, err := database.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to hash password: %w", err)
	}

	res, err := m.db.ExecContext(ctx, "INSERT INTO user (username, password) VALUES (?, ?)", username, hashedPassword)
	if err != nil {
		// A concurrent registration can take the name between the check and the insert.
		if isUniqueViolation(err) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("auth: failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("auth: failed to get last insert ID: %w", err)
	}

	return &models.User{ID: id, Username: username}, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// LoginUser checks the password and replaces the user's sessions with a new one.
// Unknown users and wrong passwords both report ErrInvalidCredentials.
func (m *Manager) LoginUser(ctx context.Context, username, password string) (*models.User, *models.Session, error) {
	var user models.User
	err := m.db.QueryRowContext(ctx, "SELECT id, username, password FROM user WHERE username = ? COLLATE NOCASE", username).
		Scan(&user.ID, &user.Username, &user.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("auth: failed to query user: %w", err)
	}

	if err = database.CheckPasswordHash(user.Password, password); err != nil {
		log.WithField("user_id", user.ID).Debug("Password check failed")
		return nil, nil, ErrInvalidCredentials
	}
	user.Password = ""

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, "DELETE FROM session WHERE user_id = ?", user.ID); err != nil {
		return nil, nil, fmt.Errorf("auth: failed to delete old sessions: %w", err)
	}

	session := &models.Session{
		UserID:  user.ID,
		UUID:    uuid.New().String(),
		Expires: m.now().Add(m.expiration),
	}
	res, err := tx.ExecContext(ctx, "INSERT INTO session (user_id, uuid, expires) VALUES (?, ?, ?)", session.UserID, session.UUID, session.Expires)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: failed to create new session: %w", err)
	}
	if session.ID, err = res.LastInsertId(); err != nil {
		return nil, nil, fmt.Errorf("auth: failed to get session ID: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("auth: failed to commit session: %w", err)
	}
	return &user, session, nil
}

// LogoutUser deletes a session.
func (m *Manager) LogoutUser(ctx context.Context, sessionUUID string) error {
	result, err := m.db.ExecContext(ctx, "DELETE FROM session WHERE uuid = ?", sessionUUID)
	if err != nil {
		return fmt.Errorf("auth: failed to delete session: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("auth: failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// GetUserBySession resolves a session token to its user. Expired sessions are deleted.
func (m *Manager) GetUserBySession(ctx context.Context, sessionUUID string) (*models.User, error) {
	var session models.Session
	err := m.db.QueryRowContext(ctx, "SELECT user_id, expires FROM session WHERE uuid = ?", sessionUUID).Scan(&session.UserID, &session.Expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("auth: failed to query session: %w", err)
	}

	if m.now().After(session.Expires) {
		if _, err := m.db.ExecContext(ctx, "DELETE FROM session WHERE uuid = ?", sessionUUID); err != nil {
			log.WithError(err).Warn("Failed to delete expired session")
		}
		return nil, ErrSessionNotFound
	}

	var user models.User
	err = m.db.QueryRowContext(ctx, "SELECT id, username FROM user WHERE id = ?", session.UserID).Scan(&user.ID, &user.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth: failed to query user by session: %w", err)
	}

	return &user, nil
}

// SetSessionCookie writes the session cookie.
func (m *Manager) SetSessionCookie(w http.ResponseWriter, session *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.UUID,
		Path:     "/",
		Expires:  session.Expires,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie.
func (m *Manager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

type contextKey string

const userContextKey contextKey = "user"

// WithUser returns a copy of ctx carrying the logged-in user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext returns the logged-in user, or nil for anonymous requests.
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
