// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinPasswordLength is the minimum accepted password length in bytes.
const MinPasswordLength = 8

// usernameRegex matches usernames made of letters, digits, underscores and
// hyphens. No spaces, no other punctuation.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// User represents an account in the user collection.
type User struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser creates a validated User with a fresh id.
func NewUser(username, passwordHash string) (*User, error) {
	if !validUsername(username) {
		return nil, oops.Code("AUTH_INVALID_USERNAME").
			With("username", username).
			Errorf("username must be non-empty and contain only letters, numbers, underscores and hyphens")
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	return &User{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}, nil
}

// ValidateCredentials reports whether a submitted username/password pair is
// syntactically acceptable. Pure and total: it never fails, it touches no
// store, and it runs before any hash computation is spent on bad input.
//
// Rules: username non-empty after trimming and matching [a-zA-Z0-9_-]+;
// password non-empty after trimming and at least MinPasswordLength bytes.
func ValidateCredentials(username, password string) bool {
	return validUsername(username) &&
		strings.TrimSpace(password) != "" &&
		len(password) >= MinPasswordLength
}

func validUsername(username string) bool {
	return strings.TrimSpace(username) != "" && usernameRegex.MatchString(username)
}

// UserRepository manages user persistence. There is exactly one User per
// username; Create relies on the store's atomic uniqueness constraint.
type UserRepository interface {
	// Create stores a new user. Returns an error wrapping
	// ErrDuplicateUsername if the username is already taken.
	Create(ctx context.Context, user *User) error

	// GetByUsername retrieves a user by exact username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID retrieves a user by id.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)
}
