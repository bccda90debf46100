// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse/gatehouse/pkg/errutil"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleSignup creates a new account. The caller must log in afterwards;
// signup never materializes a session.
func (s *Server) handleSignup(c *gin.Context) {
	ctx := c.Request.Context()

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.recordSignup("invalid")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid credentials",
			"message": "Some credentials don't respect the rules.",
		})
		return
	}

	_, err := s.auth.Signup(ctx, req.Username, req.Password)
	if err != nil {
		switch errCode(err) {
		case "AUTH_INVALID_CREDENTIALS":
			s.recordSignup("invalid")
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Invalid credentials",
				"message": "Some credentials don't respect the rules.",
			})
		case "USER_DUPLICATE":
			s.recordSignup("duplicate")
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   "Duplicate user",
				"message": fmt.Sprintf("Username '%s' is already taken.", req.Username),
			})
		default:
			s.recordSignup("error")
			errutil.LogError(ctx, s.logger, "signup failed", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Internal error",
				"message": err.Error(),
			})
		}
		return
	}

	s.recordSignup("success")
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Successfully signed up. Please login.",
	})
}

// handleLogin authenticates the caller and installs a session cookie.
// Logging in while already logged in is idempotent.
func (s *Server) handleLogin(c *gin.Context) {
	ctx := c.Request.Context()

	// An existing valid session short-circuits the credential check.
	if id := sessionIDFromRequest(c); id != "" {
		if _, err := s.auth.Resolve(ctx, id); err == nil {
			c.JSON(http.StatusCreated, gin.H{
				"success": true,
				"message": "Already logged in.",
			})
			return
		}
	}

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.recordLogin("invalid")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid credentials",
			"message": "Some credentials don't respect the rules.",
		})
		return
	}

	session, err := s.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch errCode(err) {
		case "AUTH_UNKNOWN_USER":
			s.recordLogin("unknown_user")
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid user",
				"message": fmt.Sprintf("Cannot find user '%s'", req.Username),
			})
		case "AUTH_INVALID_CREDENTIALS":
			s.recordLogin("failure")
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Login failed",
				"message": "Credentials are not valid.",
			})
		default:
			s.recordLogin("error")
			errutil.LogError(ctx, s.logger, "login failed", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Internal error",
				"message": err.Error(),
			})
		}
		return
	}

	s.recordLogin("success")
	s.setSessionCookie(c, session.ID)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": fmt.Sprintf("Successfully logged in. Welcome %s", req.Username),
	})
}

// handleLogout destroys the caller's session. Runs behind RequireLogin,
// so a principal is always present.
func (s *Server) handleLogout(c *gin.Context) {
	ctx := c.Request.Context()

	principal, ok := PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Unauthorized",
			"message": "Authentication failed, please login.",
		})
		return
	}

	// The client's intent is honored regardless of housekeeping: once the
	// gate confirmed authentication, logout reports success and clears the
	// cookie even if the store destroy failed.
	if err := s.auth.Logout(ctx, principal.SessionID); err != nil {
		errutil.LogError(ctx, s.logger, "failed to destroy session on logout", err)
	}

	if s.metrics != nil {
		s.metrics.LogoutsTotal.Inc()
	}
	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Successfully logged out.",
	})
}

// handleAuthCheck reports whether the caller holds a valid session.
// Always 200 for resolvable outcomes; never an auth failure.
func (s *Server) handleAuthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	id := sessionIDFromRequest(c)
	if id == "" {
		c.JSON(http.StatusOK, gin.H{"loggedIn": false})
		return
	}

	_, err := s.auth.Resolve(ctx, id)
	if err != nil {
		if errCode(err) == "SESSION_INVALID" {
			s.clearSessionCookie(c)
			c.JSON(http.StatusOK, gin.H{"loggedIn": false})
			return
		}
		errutil.LogError(ctx, s.logger, "auth check failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal error",
			"message": "Cannot resolve session.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"loggedIn": true})
}

// handleHomepage serves the unauthenticated landing route.
func (s *Server) handleHomepage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Homepage"})
}

// handleNotFound serves JSON for unmatched routes.
func (s *Server) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":   404,
		"message": "Not found",
	})
}

func (s *Server) recordSignup(status string) {
	if s.metrics != nil {
		s.metrics.SignupsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Server) recordLogin(status string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(status).Inc()
	}
}
