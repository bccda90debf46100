// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

// principalKey is the gin context key under which RequireLogin stores
// the authenticated principal.
const principalKey = "gatehouse.principal"

// Principal identifies the authenticated caller of a gated request.
type Principal struct {
	UserID    ulid.ULID
	Username  string
	SessionID string
}

// PrincipalFromContext returns the principal attached by RequireLogin.
// ok is false on ungated routes or when the middleware did not run.
func PrincipalFromContext(c *gin.Context) (*Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	p, ok := v.(*Principal)
	if !ok {
		return nil, false
	}
	return p, true
}
