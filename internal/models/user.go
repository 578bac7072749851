package models

type User struct {
	ID       int64
	Username string
	Password string // bcrypt hash; empty unless loaded for login
}
