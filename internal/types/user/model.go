package user

import "time"

// User is the directory entry the core treats as an opaque owner of a
// balance, a cart and markets. Deleting a user keeps its operations.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Login        string    `db:"login" json:"login"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}
