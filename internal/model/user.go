// Package model defines the data structures used throughout the application.
// In Go, structs represent data, much like classes elsewhere but without
// inheritance. Composition is favoured instead.
package model

import "time"

// User represents an account holder.
//
// Accounts come from two places: explicit registration on /register, and
// auto-provisioning when an anonymous visitor submits a quote. Provisioned
// accounts carry MustChangePassword=true because their password was either
// typed into the quote form or assigned by the server.
//
// WHY Username AND NOT Email?
// The username IS the email address, lower-cased before it is stored. The
// UNIQUE constraint on users.username is what stops two concurrent quote
// submissions from creating two accounts for the same address.
type User struct {
	ID                 string    `json:"id"                 db:"id"`
	Username           string    `json:"username"           db:"username"`
	PasswordHash       string    `json:"-"                  db:"password_hash"` // never serialised
	MustChangePassword bool      `json:"mustChangePassword" db:"must_change_password"`
	CreatedAt          time.Time `json:"createdAt"          db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt"          db:"updated_at"`
}
