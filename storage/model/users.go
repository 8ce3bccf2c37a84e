package model

import (
	"time"
)

// User represents an authentication principal. Users are provisioned by an
// operator (there is no self-service signup) and are never mutated once
// created; a password change is a delete plus re-create.
type User struct {
	// ID is the unique username used for HTTP Basic authentication
	ID string `json:"id"`
	// PasswordHash stores a PHC-formatted argon2id hash of the user's password
	PasswordHash string `json:"-"`
	// Admin users may delete any entry regardless of its owner
	Admin bool `json:"admin"`
	// Created is set once at provisioning time
	Created time.Time `json:"created"`
}

// UsersStore abstracts the user namespace of a storage backend.
type UsersStore interface {
	// Lookup returns the user for id, or nil if absent.
	Lookup(id string) (*User, error)
	// Create hashes the password and stores a new user only if id is
	// currently unused; it returns false when the username is taken.
	Create(id, password string, admin bool) (bool, error)
	// Delete unconditionally removes the user for id and returns the
	// removed record, or nil if absent. This is an operator-level action.
	Delete(id string) (*User, error)
	// List returns all users without their password hashes.
	List() ([]User, error)
	// Authenticate verifies a username/password pair and returns the
	// user. Unknown usernames and wrong passwords both fail with
	// ErrInvalidCredentials.
	Authenticate(id, password string) (*User, error)
}
