// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth implements the authentication core of Gatehouse.
//
// # Domain Types
//
// Domain types (User, Session) should be created using their constructors:
//   - NewUser - creates a User with a validated username and password hash
//   - NewSession - creates a Session with a fresh random id and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Service
//
// Service coordinates the domain operations: signup, login, logout and
// session resolution. It is created with NewService, which validates its
// dependencies; repositories and the password hasher are always injected,
// never reached through package-level state.
package auth
