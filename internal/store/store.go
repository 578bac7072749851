// Package store is the data-access layer: parameterized SQL over the
// user, post, comment and reaction tables.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxTitleLen   = 256
	maxBodyLen    = 2500
	maxCommentLen = 500
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// withTx runs fn in a single transaction. Domain errors returned by fn are
// passed through unchanged; anything else becomes a *StorageError.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if isDomainError(err) {
			return err
		}
		return storageErr(op, err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr(op, err)
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func postExists(ctx context.Context, q queryer, postID int64) error {
	var exists bool
	err := q.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM post WHERE id = ?)", postID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	return nil
}

func validatePost(title, body string) (string, string, error) {
	title = strings.TrimSpace(title)
	body = strings.ReplaceAll(body, "\r\n", "\n")

	if title == "" {
		return "", "", &ValidationError{Field: "title", Message: "Title is required."}
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", "", &ValidationError{Field: "title", Message: fmt.Sprintf("Title must be at most %d characters.", maxTitleLen)}
	}
	if utf8.RuneCountInString(body) > maxBodyLen {
		return "", "", &ValidationError{Field: "body", Message: fmt.Sprintf("Body must be at most %d characters.", maxBodyLen)}
	}
	return title, body, nil
}

func validateComment(body string) (string, error) {
	body = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	if body == "" {
		return "", &ValidationError{Field: "comment", Message: "Comment is required."}
	}
	if utf8.RuneCountInString(body) > maxCommentLen {
		return "", &ValidationError{Field: "comment", Message: fmt.Sprintf("Comment must be at most %d characters.", maxCommentLen)}
	}
	return body, nil
}

func notFoundIfNoRows(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return err
}
