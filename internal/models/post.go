package models

import "time"

type Post struct {
	ID            int64
	AuthorID      int64
	Title         string
	Body          string
	Created       time.Time
	Author        string // Username of the author
	ReactionCount int
	CommentCount  int
}

// IsAuthor reports whether u wrote the post. A nil user is never the author.
func (p Post) IsAuthor(u *User) bool {
	return u != nil && u.ID == p.AuthorID
}
