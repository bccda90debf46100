// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memUsers is an in-memory UserRepository for handler tests.
type memUsers struct {
	mu     sync.Mutex
	byName map[string]*auth.User
}

func newMemUsers() *memUsers {
	return &memUsers{byName: make(map[string]*auth.User)}
}

func (m *memUsers) Create(_ context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[user.Username]; exists {
		return auth.ErrDuplicateUsername
	}
	u := *user
	m.byName[user.Username] = &u
	return nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byName[username]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byName {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memUsers) delete(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byName, username)
}

// memSessions is an in-memory SessionRepository for handler tests.
type memSessions struct {
	mu        sync.Mutex
	m         map[string]*auth.Session
	deleteErr error
}

func newMemSessions() *memSessions {
	return &memSessions{m: make(map[string]*auth.Session)}
}

func (m *memSessions) Put(_ context.Context, session *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.m[session.ID] = &cp
	return nil
}

func (m *memSessions) Get(_ context.Context, id string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.m[id]
	if !ok || s.IsExpired() {
		return nil, auth.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.m, id)
	return nil
}

func (m *memSessions) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.m {
		if s.IsExpired() {
			delete(m.m, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.m[id]
	return ok
}

// fakeHasher avoids argon2 work in transport tests.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "h:" + password, nil
}

func (fakeHasher) Verify(password, hash string) (bool, error) {
	return hash == "h:"+password, nil
}

type testEnv struct {
	server   *Server
	users    *memUsers
	sessions *memSessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newMemUsers()
	sessions := newMemSessions()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := auth.NewServiceWithLogger(users, sessions, fakeHasher{}, logger)
	require.NoError(t, err)

	server, err := NewServer(Config{Addr: "127.0.0.1:0"}, svc, users, logger, nil)
	require.NoError(t, err)

	return &testEnv{server: server, users: users, sessions: sessions}
}

// do performs an HTTP request against the server handler and decodes the
// JSON response body.
func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), "body: %s", w.Body.String())
	}
	return w, decoded
}

// signupAndLogin creates an account and logs in, returning the session cookie.
func (e *testEnv) signupAndLogin(t *testing.T, username, password string) *http.Cookie {
	t.Helper()

	w, _ := e.do(t, http.MethodPost, "/signup", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = e.do(t, http.MethodPost, "/login", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusCreated, w.Code)

	ck := sessionCookie(w)
	require.NotNil(t, ck, "login did not set a session cookie")
	return ck
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == SessionCookieName {
			return ck
		}
	}
	return nil
}

// expiredSessionFor plants an already-expired session record.
func (e *testEnv) expiredSessionFor(t *testing.T, userID ulid.ULID) *auth.Session {
	t.Helper()

	session, err := auth.NewSession(userID, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	e.sessions.mu.Lock()
	e.sessions.m[session.ID] = session
	e.sessions.mu.Unlock()
	return session
}
