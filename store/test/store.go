package test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentmem/agentmem/internal/profile"
	"github.com/agentmem/agentmem/internal/version"
	"github.com/agentmem/agentmem/store"
	"github.com/agentmem/agentmem/store/db"
)

// NewTestingStore creates a migrated store backed by a fresh sqlite database
// in a per-test temp directory.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	testProfile := &profile.Profile{
		Mode:    "dev",
		Driver:  "sqlite",
		DSN:     filepath.Join(t.TempDir(), "agentmem_test.db"),
		Version: version.GetCurrentVersion("dev"),
	}

	driver, err := db.NewDBDriver(testProfile)
	require.NoError(t, err)

	ts := store.New(driver, testProfile)
	require.NoError(t, ts.Migrate(ctx))
	t.Cleanup(func() {
		_ = ts.Close()
	})
	return ts
}

// createTestingSession creates a fresh session for userID with defaults.
func createTestingSession(ctx context.Context, t *testing.T, ts *store.Store, userID string) *store.MemorySession {
	t.Helper()
	session, err := ts.CreateMemorySession(ctx, newSession(userID))
	require.NoError(t, err)
	return session
}

func newSession(userID string) *store.MemorySession {
	now := time.Now().UTC()
	return &store.MemorySession{
		UserID:    userID,
		SessionID: store.NewSessionID(),
		Timestamp: now,
		CreatedAt: now,
		Context: store.TaskContext{
			TaskStatus:   store.TaskStatusActive,
			TaskPriority: 1,
		},
		WorkingMemory: store.WorkingMemory{
			ActiveGoals:     []string{},
			AttentionPoints: []string{},
		},
		EpisodicMemory: store.EpisodicMemory{
			Interactions: []store.Interaction{},
		},
	}
}
