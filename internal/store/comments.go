package store

import (
	"context"
	"database/sql"
	"fmt"

	"blog/internal/models"
)

const commentSelect = `
	SELECT c.id, c.post_id, c.user_id, c.body, c.created, u.username
	FROM comment c
	JOIN user u ON c.user_id = u.id
`

func scanComment(row rowScanner) (models.Comment, error) {
	var c models.Comment
	err := row.Scan(&c.ID, &c.PostID, &c.UserID, &c.Body, &c.Created, &c.Author)
	return c, err
}

// ListComments returns the comments on a post, newest first.
func (s *Store) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, commentSelect+" WHERE c.post_id = ? ORDER BY c.created DESC, c.id DESC", postID)
	if err != nil {
		return nil, storageErr("list comments", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, storageErr("scan comment", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list comments", err)
	}
	return comments, nil
}

// GetComment returns a single comment with its author's name.
func (s *Store) GetComment(ctx context.Context, id int64) (models.Comment, error) {
	c, err := loadComment(ctx, s.db, id)
	if err != nil {
		if isDomainError(err) {
			return models.Comment{}, err
		}
		return models.Comment{}, storageErr("get comment", err)
	}
	return c, nil
}

func loadComment(ctx context.Context, q queryer, id int64) (models.Comment, error) {
	c, err := scanComment(q.QueryRowContext(ctx, commentSelect+" WHERE c.id = ?", id))
	if err != nil {
		return models.Comment{}, notFoundIfNoRows(err, "comment", id)
	}
	return c, nil
}

// CreateComment adds a comment to an existing post and returns its id.
// Whitespace-only bodies are rejected.
func (s *Store) CreateComment(ctx context.Context, postID, userID int64, body string) (int64, error) {
	body, err := validateComment(body)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.withTx(ctx, "create comment", func(tx *sql.Tx) error {
		if err := postExists(ctx, tx, postID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO comment (post_id, user_id, body, created) VALUES (?, ?, ?, ?)",
			postID, userID, body, s.now())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// DeleteComment removes a comment written by userID and returns the id of
// the post it belonged to.
func (s *Store) DeleteComment(ctx context.Context, id, userID int64) (int64, error) {
	var postID int64
	err := s.withTx(ctx, "delete comment", func(tx *sql.Tx) error {
		c, err := loadComment(ctx, tx, id)
		if err != nil {
			return err
		}
		if c.UserID != userID {
			return fmt.Errorf("comment %d: %w", id, ErrForbidden)
		}
		postID = c.PostID
		_, err = tx.ExecContext(ctx, "DELETE FROM comment WHERE id = ?", id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return postID, nil
}
