// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package httpapi exposes the authentication service over HTTP.
//
// Routes:
//
//	POST /signup   create an account
//	POST /login    authenticate and receive a session cookie
//	GET  /logout   destroy the current session (login required)
//	GET  /auth     report whether the caller is logged in
//	GET  /         homepage
//
// Sessions travel in an HttpOnly cookie. Handlers translate service
// error codes into the JSON shapes clients depend on.
package httpapi
