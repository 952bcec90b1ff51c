package model

import (
	"time"
)

// Account is a portal user that owns QR codes. Tokens are provisioned out of
// band; only their SHA-256 hash is stored.
type Account struct {
	ID         string     `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	TokenHash  string     `db:"token_hash" json:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	DisabledAt *time.Time `db:"disabled_at" json:"disabledAt,omitempty"`
}

type CreateAccountParams struct {
	ID        string
	Name      string
	TokenHash string
}
