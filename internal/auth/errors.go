// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned when creating a user whose username is
// already taken. The user store detects this from its atomic uniqueness
// constraint; callers must not pre-check and insert as two separate steps.
var ErrDuplicateUsername = errors.New("duplicate username")
