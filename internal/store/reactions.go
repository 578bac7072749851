package store

import (
	"context"
	"database/sql"

	"blog/internal/models"
)

// ListReactions returns who reacted to a post, oldest reaction first.
func (s *Store) ListReactions(ctx context.Context, postID int64) ([]models.Reaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.post_id, r.user_id, u.username, r.created
		FROM reaction r
		JOIN user u ON r.user_id = u.id
		WHERE r.post_id = ?
		ORDER BY r.created ASC, u.username ASC`, postID)
	if err != nil {
		return nil, storageErr("list reactions", err)
	}
	defer rows.Close()

	reactions := []models.Reaction{}
	for rows.Next() {
		var r models.Reaction
		if err := rows.Scan(&r.PostID, &r.UserID, &r.Username, &r.Created); err != nil {
			return nil, storageErr("scan reaction", err)
		}
		reactions = append(reactions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list reactions", err)
	}
	return reactions, nil
}

// PostReactedBy reports whether userID has reacted to postID.
func (s *Store) PostReactedBy(ctx context.Context, postID, userID int64) (bool, error) {
	var reacted bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM reaction WHERE post_id = ? AND user_id = ?)", postID, userID).Scan(&reacted)
	if err != nil {
		return false, storageErr("post reacted by", err)
	}
	return reacted, nil
}

// ToggleReaction removes the user's reaction on a post if there is one and
// adds it otherwise. It reports whether the user has reacted afterwards.
// The (post_id, user_id) primary key turns a racing second insert into a no-op.
func (s *Store) ToggleReaction(ctx context.Context, postID, userID int64) (bool, error) {
	var reacted bool
	err := s.withTx(ctx, "toggle reaction", func(tx *sql.Tx) error {
		if err := postExists(ctx, tx, postID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM reaction WHERE post_id = ? AND user_id = ?", postID, userID)
		if err != nil {
			return err
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if removed > 0 {
			reacted = false
			return nil
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO reaction (post_id, user_id, created) VALUES (?, ?, ?) ON CONFLICT (post_id, user_id) DO NOTHING",
			postID, userID, s.now())
		if err != nil {
			return err
		}
		reacted = true
		return nil
	})
	return reacted, err
}
