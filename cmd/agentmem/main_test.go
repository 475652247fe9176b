package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentmem/agentmem/internal/profile"
	"github.com/agentmem/agentmem/store"
	"github.com/agentmem/agentmem/store/db"
)

func seedSession(ctx context.Context, t *testing.T, dsn, userID string) string {
	t.Helper()
	testProfile := &profile.Profile{Mode: "dev", Driver: "sqlite", DSN: dsn}
	driver, err := db.NewDBDriver(testProfile)
	require.NoError(t, err)
	ts := store.New(driver, testProfile)
	require.NoError(t, ts.Migrate(ctx))

	now := time.Now()
	session, err := ts.CreateMemorySession(ctx, &store.MemorySession{
		UserID:    userID,
		SessionID: store.NewSessionID(),
		Timestamp: now,
		CreatedAt: now,
		Context: store.TaskContext{
			TaskStatus:   store.TaskStatusActive,
			TaskPriority: 1,
		},
	})
	require.NoError(t, err)
	require.NoError(t, ts.Close())
	return session.SessionID
}

func loadSessions(ctx context.Context, t *testing.T, dsn, sessionID string) []*store.MemorySession {
	t.Helper()
	testProfile := &profile.Profile{Mode: "dev", Driver: "sqlite", DSN: dsn}
	driver, err := db.NewDBDriver(testProfile)
	require.NoError(t, err)
	ts := store.New(driver, testProfile)
	defer ts.Close()

	list, err := ts.ListMemorySessions(ctx, &store.FindMemorySession{SessionID: &sessionID})
	require.NoError(t, err)
	return list
}

// The append and delete commands both carry a --session flag; this drives
// them through the real command tree to make sure each one reads its own
// flag value.
func TestAppendCommandReadsSessionFlag(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "agentmem_test.db")
	sessionID := seedSession(ctx, t, dsn, "u1")

	rootCmd.SetArgs([]string{
		"append",
		"--driver", "sqlite",
		"--dsn", dsn,
		"--user", "u1",
		"--session", sessionID,
		"--thought", "noted from the command line",
	})
	require.NoError(t, rootCmd.Execute())

	list := loadSessions(ctx, t, dsn, sessionID)
	require.Len(t, list, 1)
	require.Len(t, list[0].EpisodicMemory.Interactions, 1)
	require.Equal(t, "noted from the command line", list[0].EpisodicMemory.Interactions[0].ThoughtContent)
}

func TestDeleteCommandReadsSessionFlag(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "agentmem_test.db")
	sessionID := seedSession(ctx, t, dsn, "u1")

	rootCmd.SetArgs([]string{
		"delete",
		"--driver", "sqlite",
		"--dsn", dsn,
		"--user", "u1",
		"--session", sessionID,
	})
	require.NoError(t, rootCmd.Execute())

	require.Empty(t, loadSessions(ctx, t, dsn, sessionID))
}
