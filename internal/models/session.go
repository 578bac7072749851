package models

import "time"

type Session struct {
	ID      int64
	UserID  int64
	UUID    string
	Expires time.Time
}
