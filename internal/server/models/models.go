// Package models holds the server-side persistence types.
package models

import (
	"time"

	"github.com/avolkova/keepsafe/internal/api"
)

// User is one registered account. PasswordHash and Salt hold the argon2id
// verification material; the password itself is never stored.
type User struct {
	ID           string
	Email        string
	FullName     string
	Salt         []byte
	PasswordHash []byte
	CreatedAt    time.Time
}

// Row is one stored record. Fields carries the free-form attributes as a
// JSON document; the server never interprets them beyond round-tripping.
type Row struct {
	ID        string
	UserID    string
	Table     api.Table
	Fields    []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}
