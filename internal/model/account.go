package model

import "time"

// Account holds a registered player's credentials. Stored separately
// from Player so the password hash never crosses the wire.
type Account struct {
	Identity     Identity  `json:"identity"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}
