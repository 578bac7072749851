package store

import (
	"context"
	"database/sql"
	"fmt"

	"blog/internal/models"
)

const postSelect = `
	SELECT p.id, p.author_id, p.title, p.body, p.created, u.username,
	       COALESCE(r.reaction_count, 0) AS reaction_count,
	       COALESCE(c.comment_count, 0) AS comment_count
	FROM post p
	JOIN user u ON p.author_id = u.id
	LEFT JOIN (SELECT post_id, COUNT(*) AS reaction_count FROM reaction GROUP BY post_id) r ON r.post_id = p.id
	LEFT JOIN (SELECT post_id, COUNT(*) AS comment_count FROM comment GROUP BY post_id) c ON c.post_id = p.id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Body, &p.Created, &p.Author, &p.ReactionCount, &p.CommentCount)
	return p, err
}

// ListPostsWithCounts returns every post, newest first, with its author's
// username and its reaction and comment counts.
func (s *Store) ListPostsWithCounts(ctx context.Context) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, postSelect+" ORDER BY p.created DESC, p.id DESC")
	if err != nil {
		return nil, storageErr("list posts", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, storageErr("scan post", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list posts", err)
	}
	return posts, nil
}

// GetPost loads a single post. When requireAuthor is non-nil the post must
// belong to that user, otherwise ErrForbidden is returned.
func (s *Store) GetPost(ctx context.Context, id int64, requireAuthor *int64) (models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, postSelect+" WHERE p.id = ?", id))
	if err != nil {
		err = notFoundIfNoRows(err, "post", id)
		if isDomainError(err) {
			return models.Post{}, err
		}
		return models.Post{}, storageErr("get post", err)
	}

	if requireAuthor != nil && p.AuthorID != *requireAuthor {
		return models.Post{}, fmt.Errorf("post %d: %w", id, ErrForbidden)
	}
	return p, nil
}

// CountPosts returns the number of posts.
func (s *Store) CountPosts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM post").Scan(&n); err != nil {
		return 0, storageErr("count posts", err)
	}
	return n, nil
}

// CreatePost inserts a post and returns its id. The title is required; the body may be empty.
func (s *Store) CreatePost(ctx context.Context, title, body string, authorID int64) (int64, error) {
	title, body, err := validatePost(title, body)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.withTx(ctx, "create post", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO post (title, body, author_id, created) VALUES (?, ?, ?, ?)",
			title, body, authorID, s.now())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// UpdatePost replaces the title and body of a post. Callers check ownership
// with GetPost first.
func (s *Store) UpdatePost(ctx context.Context, id int64, title, body string) error {
	title, body, err := validatePost(title, body)
	if err != nil {
		return err
	}

	return s.withTx(ctx, "update post", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE post SET title = ?, body = ? WHERE id = ?", title, body, id)
		if err != nil {
			return err
		}
		return requireAffected(res, "post", id)
	})
}

// DeletePost removes a post together with its comments and reactions.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	return s.withTx(ctx, "delete post", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM reaction WHERE post_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM comment WHERE post_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM post WHERE id = ?", id)
		if err != nil {
			return err
		}
		return requireAffected(res, "post", id)
	})
}

func requireAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
