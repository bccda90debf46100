// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Service provides the authentication operations: signup, login, logout and
// session resolution. All persistence goes through the injected repositories.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	hasher   PasswordHasher
	logger   *slog.Logger
	onPurge  func(purged int64)
}

// SetPurgeHook registers a callback invoked with the number of expired
// sessions reclaimed after each successful login. Used to feed metrics.
func (s *Service) SetPurgeHook(fn func(purged int64)) {
	s.onPurge = fn
}

// NewService creates a new Service with the default logger.
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, sessions, hasher, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(users UserRepository, sessions SessionRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("logger is required")
	}
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
	}, nil
}

// Signup validates the submitted credentials and creates a new user.
// The new user is NOT logged in; callers must call Login afterwards.
func (s *Service) Signup(ctx context.Context, username, password string) (*User, error) {
	// Reject malformed input before spending a hash computation or a
	// store round-trip.
	if !ValidateCredentials(username, password) {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").
			Errorf("some credentials don't respect the rules")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, hash)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "construct user").
			Wrap(err)
	}

	// The store's uniqueness constraint is the only duplicate check;
	// a pre-check would race with a concurrent signup.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return nil, oops.Code("USER_DUPLICATE").
				With("username", username).
				Wrap(err)
		}
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	return user, nil
}

// Login authenticates a user and creates a persistent session with a fixed
// one-hour expiry. Idempotency for already-authenticated clients is handled
// at the transport boundary, which holds the inbound session cookie.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The message names the submitted username, matching the
			// historical behavior of this endpoint. Known enumeration
			// leak, kept deliberately.
			return nil, oops.Code("AUTH_UNKNOWN_USER").
				With("username", username).
				Errorf("cannot find user '%s'", username)
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}

	valid, verifyErr := s.hasher.Verify(password, user.PasswordHash)
	if verifyErr != nil {
		// A malformed stored hash is an auth failure for the client,
		// not a server error; log it for the operator.
		s.logger.Warn("stored password hash failed to parse",
			"username", username,
			"error", verifyErr)
	}
	if verifyErr != nil || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").
			Errorf("credentials are not valid")
	}

	session, err := NewSession(user.ID, time.Now().Add(SessionMaxAge))
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	// Opportunistic reclaim of expired entries. Best effort.
	purged, purgeErr := s.sessions.DeleteExpired(ctx)
	if purgeErr != nil {
		s.logger.Warn("failed to purge expired sessions", "error", purgeErr)
	} else if purged > 0 && s.onPurge != nil {
		s.onPurge(purged)
	}

	return session, nil
}

// Logout destroys a session store entry. The caller has already confirmed
// the client was authenticated; destruction failures are surfaced as error
// values for the caller to log, never hidden inside a callback.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// Resolve validates a session id and returns the live session.
// Unknown and expired sessions both yield SESSION_INVALID.
func (s *Service) Resolve(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, oops.Code("SESSION_INVALID").Errorf("session id cannot be empty")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Errorf("invalid session")
		}
		return nil, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get session by id").
			Wrap(err)
	}

	// The store should have filtered expired entries already; this
	// guards backends with lazy reclamation.
	if session.IsExpired() {
		return nil, oops.Code("SESSION_INVALID").Errorf("session has expired")
	}

	return session, nil
}
