// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// RequireLogin gates a route behind a valid session. Requests without a
// resolvable session are rejected before the handler runs; on success the
// principal is attached to the gin context.
func (s *Server) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		session, err := s.auth.Resolve(ctx, sessionIDFromRequest(c))
		if err != nil {
			if errCode(err) == "SESSION_INVALID" {
				s.clearSessionCookie(c)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"success": false,
					"error":   "Unauthorized",
					"message": "Authentication failed, please login.",
				})
				return
			}
			errutil.LogError(ctx, s.logger, "session resolution failed", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Internal error",
				"message": "Cannot resolve session.",
			})
			return
		}

		user, err := s.users.GetByID(ctx, session.UserID)
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				// The session outlived its account. Destroy it so the next
				// request takes the anonymous path instead of looping here.
				if logoutErr := s.auth.Logout(ctx, session.ID); logoutErr != nil {
					errutil.LogWarning(ctx, s.logger, "failed to destroy dangling session", logoutErr)
				}
				s.clearSessionCookie(c)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "Internal error",
					"message": "Cannot find user based on user session.",
				})
				return
			}
			errutil.LogError(ctx, s.logger, "failed to load user for session", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Internal error",
				"message": "Cannot load user for session.",
			})
			return
		}

		c.Set(principalKey, &Principal{
			UserID:    user.ID,
			Username:  user.Username,
			SessionID: session.ID,
		})
		c.Next()
	}
}

// requestMetrics counts finished requests by route and status code.
func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if s.metrics == nil {
			return
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.metrics.RequestsTotal.WithLabelValues(path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// requestLogger logs each request at debug level after it completes.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		s.logger.DebugContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
		)
	}
}
