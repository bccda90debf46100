// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session configuration.
const (
	SessionIDBytes = 32        // 256 bits of entropy
	SessionMaxAge  = time.Hour // fixed window, set at creation
)

// Session is server-side authentication state, referenced by the client via
// an opaque id carried in a cookie. Sessions are only materialized at login,
// so a stored session always names an authenticated user; anonymous clients
// simply have no session record.
type Session struct {
	ID        string
	UserID    ulid.ULID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewSession creates a validated Session bound to a user, with a fresh
// cryptographically random id and the given expiry.
func NewSession(userID ulid.ULID, expiresAt time.Time) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	id, err := NewSessionID()
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the session would be expired at the given time.
// Useful for testing with deterministic time values.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// NewSessionID generates a cryptographically secure opaque session id.
func NewSessionID() (string, error) {
	b := make([]byte, SessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("SESSION_ID_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SessionRepository manages session persistence. Implementations must
// survive process restarts and enforce expiry themselves: Get on an expired
// entry behaves as not-found and the entry is eventually reclaimed.
//
// Last-writer-wins semantics on Put are acceptable; a single client rarely
// issues concurrent mutating requests against one session. Implementations
// must not corrupt data under concurrent access to different sessions.
type SessionRepository interface {
	// Put stores or replaces a session, retaining it until its expiry.
	Put(ctx context.Context, session *Session) error

	// Get retrieves a live session by id. Expired or unknown sessions
	// return an error wrapping ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session by id. Deleting an absent session is not
	// an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired reclaims expired entries and returns the count of
	// deleted records. Backends with native expiry may return (0, nil).
	DeleteExpired(ctx context.Context) (int64, error)
}
