//go:build integration

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gatehouse/gatehouse/internal/auth"
	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/store"
)

// startPostgres runs a disposable PostgreSQL container with the schema applied.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("gatehouse_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrator, err := store.NewMigrator(connStr)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Close())

	return connStr
}

func TestMigrator_FullCycle(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("gatehouse_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrator, err := store.NewMigrator(connStr)
	require.NoError(t, err)
	defer func() { _ = migrator.Close() }()

	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, migrator.Up())

	version, dirty, err = migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version, "expected users and sessions migrations")
	assert.False(t, dirty)

	// Up is idempotent.
	require.NoError(t, migrator.Up())

	require.NoError(t, migrator.Down())

	version, _, err = migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

func TestRepositories_EndToEnd(t *testing.T) {
	ctx := context.Background()
	connStr := startPostgres(t)

	pool, err := store.Connect(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	users := authpg.NewUserRepository(pool)
	sessions := authpg.NewSessionRepository(pool)

	user := &auth.User{
		ID:           ulid.Make(),
		Username:     "e2e_user",
		PasswordHash: "$argon2id$stored",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	t.Run("user create and fetch", func(t *testing.T) {
		require.NoError(t, users.Create(ctx, user))

		byName, err := users.GetByUsername(ctx, "e2e_user")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)

		byID, err := users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "e2e_user", byID.Username)
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		dup := &auth.User{
			ID:           ulid.Make(),
			Username:     "e2e_user",
			PasswordHash: "other",
			CreatedAt:    time.Now().UTC(),
		}
		err := users.Create(ctx, dup)
		assert.ErrorIs(t, err, auth.ErrDuplicateUsername)
	})

	t.Run("session lifecycle survives a fresh pool", func(t *testing.T) {
		session, err := auth.NewSession(user.ID, time.Now().Add(auth.SessionMaxAge).UTC().Truncate(time.Microsecond))
		require.NoError(t, err)
		require.NoError(t, sessions.Put(ctx, session))

		// A second pool simulates a process restart.
		pool2, err := store.Connect(ctx, connStr)
		require.NoError(t, err)
		t.Cleanup(pool2.Close)

		got, err := authpg.NewSessionRepository(pool2).Get(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.UserID)

		require.NoError(t, sessions.Delete(ctx, session.ID))
		_, err = sessions.Get(ctx, session.ID)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("expired sessions are invisible and reclaimable", func(t *testing.T) {
		expired, err := auth.NewSession(user.ID, time.Now().Add(time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, sessions.Put(ctx, expired))

		time.Sleep(50 * time.Millisecond)

		_, err = sessions.Get(ctx, expired.ID)
		assert.ErrorIs(t, err, auth.ErrNotFound)

		n, err := sessions.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))
	})
}
