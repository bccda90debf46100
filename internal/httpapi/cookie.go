// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// SessionCookieName is the cookie that carries the session identifier.
const SessionCookieName = "gh_session"

// setSessionCookie installs the session cookie on the response.
// HttpOnly and SameSite=Lax always; Secure only when configured.
func (s *Server) setSessionCookie(c *gin.Context, sessionID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, sessionID, int(auth.SessionMaxAge.Seconds()), "/", "", s.cfg.SecureCookies, true)
}

// clearSessionCookie expires the session cookie on the client.
func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", s.cfg.SecureCookies, true)
}

// sessionIDFromRequest extracts the session identifier from the request
// cookie. Returns empty string when the cookie is absent.
func sessionIDFromRequest(c *gin.Context) string {
	id, err := c.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return id
}
