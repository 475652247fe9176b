package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmem/agentmem/store"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	session := createTestingSession(ctx, t, ts, "u1")

	// A second migrate run, as on process restart, must be a no-op.
	require.NoError(t, ts.Migrate(ctx))

	list, err := ts.ListMemorySessions(ctx, &store.FindMemorySession{SessionID: &session.SessionID})
	require.NoError(t, err)
	require.Len(t, list, 1)
}
