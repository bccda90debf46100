// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package redis implements the auth session repository on Redis.
// Expiry is delegated to Redis TTLs, so expired entries vanish without an
// explicit purge pass.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

const keyPrefix = "session:"

// sessionRecord is the stored JSON shape of a session.
type sessionRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore implements auth.SessionRepository using Redis.
type SessionStore struct {
	client *goredis.Client
}

// NewSessionStore creates a Redis-backed session store. It pings the server
// once to fail fast on misconfiguration.
func NewSessionStore(ctx context.Context, addr, password string) (*SessionStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, oops.Code("REDIS_CONNECT_FAILED").
			With("addr", addr).
			Wrap(err)
	}

	return &SessionStore{client: client}, nil
}

// NewSessionStoreWithClient wraps an existing client. Used by tests.
func NewSessionStoreWithClient(client *goredis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Close releases the underlying client.
func (s *SessionStore) Close() error {
	if err := s.client.Close(); err != nil {
		return oops.Code("REDIS_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// Put stores or replaces a session with a TTL derived from its expiry.
func (s *SessionStore) Put(ctx context.Context, session *auth.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return oops.Code("SESSION_PUT_FAILED").
			Errorf("session expiry must be in the future")
	}

	data, err := json.Marshal(sessionRecord{
		ID:        session.ID,
		UserID:    session.UserID.String(),
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	})
	if err != nil {
		return oops.Code("SESSION_PUT_FAILED").
			With("operation", "marshal session").
			Wrap(err)
	}

	if err := s.client.Set(ctx, key(session.ID), data, ttl).Err(); err != nil {
		return oops.Code("SESSION_PUT_FAILED").
			With("operation", "redis set").
			Wrap(err)
	}
	return nil
}

// Get retrieves a live session by id. Redis expiry makes stale entries
// behave as not-found without any read-side filtering.
func (s *SessionStore) Get(ctx context.Context, id string) (*auth.Session, error) {
	val, err := s.client.Get(ctx, key(id)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "redis get").
			Wrap(err)
	}

	var rec sessionRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "unmarshal session").
			Wrap(err)
	}

	session, err := rec.toSession()
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Delete removes a session by id. Deleting an absent session is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "redis del").
			Wrap(err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis reclaims expired keys natively.
func (s *SessionStore) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func (r sessionRecord) toSession() (*auth.Session, error) {
	userID, err := ulid.Parse(r.UserID)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").
			With("user_id", r.UserID).
			Wrap(err)
	}
	return &auth.Session{
		ID:        r.ID,
		UserID:    userID,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionStore)(nil)
