// Package blog applies the login and ownership rules in front of the store.
// Every call receives the acting user explicitly; nil means anonymous.
package blog

import (
	"context"

	"blog/internal/models"
	"blog/internal/monitoring"
	"blog/internal/store"

	log "github.com/sirupsen/logrus"
)

// PostDetail is everything the post page shows.
type PostDetail struct {
	Post      models.Post
	Comments  []models.Comment
	Reactions []models.Reaction
	Reacted   bool // the viewer has reacted
	CanEdit   bool // the viewer wrote the post
}

type Service struct {
	store *store.Store
}

func NewService(s *store.Store) *Service {
	return &Service{store: s}
}

func requireLogin(user *models.User) error {
	if user == nil {
		return store.ErrUnauthenticated
	}
	return nil
}

// Index lists every post with its counts. Anyone may read it.
func (s *Service) Index(ctx context.Context) ([]models.Post, error) {
	return s.store.ListPostsWithCounts(ctx)
}

// Detail loads a post with its comments and reactions. Anyone may read it.
func (s *Service) Detail(ctx context.Context, user *models.User, id int64) (PostDetail, error) {
	post, err := s.store.GetPost(ctx, id, nil)
	if err != nil {
		return PostDetail{}, err
	}
	comments, err := s.store.ListComments(ctx, id)
	if err != nil {
		return PostDetail{}, err
	}
	reactions, err := s.store.ListReactions(ctx, id)
	if err != nil {
		return PostDetail{}, err
	}

	detail := PostDetail{
		Post:      post,
		Comments:  comments,
		Reactions: reactions,
		CanEdit:   post.IsAuthor(user),
	}
	if user != nil {
		detail.Reacted, err = s.store.PostReactedBy(ctx, id, user.ID)
		if err != nil {
			return PostDetail{}, err
		}
	}
	return detail, nil
}

// EditablePost loads a post for its edit form; only the author may open it.
func (s *Service) EditablePost(ctx context.Context, user *models.User, id int64) (models.Post, error) {
	if err := requireLogin(user); err != nil {
		return models.Post{}, err
	}
	return s.store.GetPost(ctx, id, &user.ID)
}

func (s *Service) CreatePost(ctx context.Context, user *models.User, title, body string) (int64, error) {
	if err := requireLogin(user); err != nil {
		return 0, err
	}
	id, err := s.store.CreatePost(ctx, title, body, user.ID)
	if err != nil {
		return 0, err
	}
	monitoring.PostsCreated.Inc()
	log.WithFields(log.Fields{"post_id": id, "user_id": user.ID}).Info("Post created")
	return id, nil
}

func (s *Service) UpdatePost(ctx context.Context, user *models.User, id int64, title, body string) error {
	if err := requireLogin(user); err != nil {
		return err
	}
	if _, err := s.store.GetPost(ctx, id, &user.ID); err != nil {
		return err
	}
	if err := s.store.UpdatePost(ctx, id, title, body); err != nil {
		return err
	}
	log.WithFields(log.Fields{"post_id": id, "user_id": user.ID}).Info("Post updated")
	return nil
}

func (s *Service) DeletePost(ctx context.Context, user *models.User, id int64) error {
	if err := requireLogin(user); err != nil {
		return err
	}
	if _, err := s.store.GetPost(ctx, id, &user.ID); err != nil {
		return err
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return err
	}
	log.WithFields(log.Fields{"post_id": id, "user_id": user.ID}).Info("Post deleted")
	return nil
}

// CreateComment adds a comment to any post; ownership of the post is not required.
func (s *Service) CreateComment(ctx context.Context, user *models.User, postID int64, body string) (int64, error) {
	if err := requireLogin(user); err != nil {
		return 0, err
	}
	id, err := s.store.CreateComment(ctx, postID, user.ID, body)
	if err != nil {
		return 0, err
	}
	monitoring.CommentsCreated.Inc()
	return id, nil
}

// DeleteComment removes the user's own comment and returns the post it was on.
func (s *Service) DeleteComment(ctx context.Context, user *models.User, commentID int64) (int64, error) {
	if err := requireLogin(user); err != nil {
		return 0, err
	}
	return s.store.DeleteComment(ctx, commentID, user.ID)
}

// ToggleReaction likes or unlikes a post and reports whether the user now likes it.
func (s *Service) ToggleReaction(ctx context.Context, user *models.User, postID int64) (bool, error) {
	if err := requireLogin(user); err != nil {
		return false, err
	}
	reacted, err := s.store.ToggleReaction(ctx, postID, user.ID)
	if err != nil {
		return false, err
	}
	action := "unreact"
	if reacted {
		action = "react"
	}
	monitoring.ReactionsToggled.WithLabelValues(action).Inc()
	return reacted, nil
}
