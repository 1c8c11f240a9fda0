package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *storage.Service {
	t.Helper()
	db, err := storage.Open(storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, storage.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return storage.NewStorageService(db)
}

func TestSeed_IsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 2, 14, 8, 0, 0, 0, time.UTC)

	var out bytes.Buffer
	require.NoError(t, seed(ctx, store, &out, now))
	assert.Contains(t, out.String(), "sample messages inserted")

	out.Reset()
	require.NoError(t, seed(ctx, store, &out, now))
	assert.Contains(t, out.String(), "messages already present, skipping")

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Baby", users[0].Name)
	assert.Equal(t, "Mommy", users[1].Name)

	convo, err := store.FindConversation(ctx, "b", "a")
	require.NoError(t, err)
	require.NotNil(t, convo)

	msgs, err := store.ListMessages(ctx, convo.ID, nil, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.StatusDelivered, msgs[0].Status)
	assert.Equal(t, models.StatusRead, msgs[1].Status)
}

func TestListUsers_Output(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, listUsers(ctx, store, &out))
	assert.Equal(t, "no users\n", out.String())

	require.NoError(t, store.SetUserOnline(ctx, "A", true))
	out.Reset()
	require.NoError(t, listUsers(ctx, store, &out))
	assert.Contains(t, out.String(), "A")
	assert.Contains(t, out.String(), "online")
}

func TestRootCmd_MigrateAndSeedSQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "admin.db")

	for _, args := range [][]string{
		{"--driver", "sqlite", "--dsn", dsn, "migrate"},
		{"--driver", "sqlite", "--dsn", dsn, "seed"},
		{"--driver", "sqlite", "--dsn", dsn, "users"},
	} {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute(), "args %v", args)

		if args[len(args)-1] == "users" {
			assert.Contains(t, out.String(), "Baby")
			assert.Contains(t, out.String(), "Mommy")
		}
	}
}

func TestRootCmd_UnsupportedDriver(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--driver", "oracle", "--dsn", "x", "migrate"})
	assert.Error(t, cmd.Execute())
}
