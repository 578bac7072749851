package models

import "time"

type Comment struct {
	ID      int64
	PostID  int64
	UserID  int64
	Body    string
	Created time.Time
	Author  string // Username of the commenter
}
