package models

import "time"

// Reaction is a like on a post; at most one exists per (PostID, UserID).
type Reaction struct {
	PostID   int64
	UserID   int64
	Username string
	Created  time.Time
}
