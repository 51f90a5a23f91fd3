package model

import (
	"time"
)

// User is the account a goal belongs to. Accounts are provisioned by the identity service;
// this engine only reads them to address notifications.
type User struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// DisplayName falls back to the email address when no name is set.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
