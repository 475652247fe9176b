package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/agentmem/agentmem/store"
)

func TestCreateAndListMemorySession(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	session := createTestingSession(ctx, t, ts, "u1")
	require.NotEmpty(t, session.SessionID)

	userID := "u1"
	list, err := ts.ListMemorySessions(ctx, &store.FindMemorySession{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	require.Equal(t, session.SessionID, got.SessionID)
	require.Equal(t, "u1", got.UserID)
	require.Equal(t, store.TaskStatusActive, got.Context.TaskStatus)
	require.Equal(t, 1, got.Context.TaskPriority)
	require.Empty(t, got.Context.CurrentTask)
	require.NotNil(t, got.WorkingMemory.ActiveGoals)
	require.Empty(t, got.WorkingMemory.ActiveGoals)
	require.NotNil(t, got.EpisodicMemory.Interactions)
	require.Empty(t, got.EpisodicMemory.Interactions)
	// Timestamps survive the millisecond round trip.
	require.Equal(t, session.Timestamp.UnixMilli(), got.Timestamp.UnixMilli())
}

func TestListMemorySessionsOrderedByRecency(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	userID := "u1"
	first := createTestingSession(ctx, t, ts, userID)
	second := createTestingSession(ctx, t, ts, userID)

	// Touch the first session so it becomes the most recent.
	require.NoError(t, ts.AppendInteraction(ctx, &store.AppendInteractionRequest{
		UserID:    userID,
		SessionID: first.SessionID,
		Interaction: store.Interaction{
			ThoughtContent: "resuming",
			Timestamp:      time.Now().Add(time.Second),
		},
	}))

	list, err := ts.ListMemorySessions(ctx, &store.FindMemorySession{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, first.SessionID, list[0].SessionID)
	require.Equal(t, second.SessionID, list[1].SessionID)
}

func TestAppendInteractionOrdering(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	session := createTestingSession(ctx, t, ts, "u1")
	for i := 0; i < 3; i++ {
		require.NoError(t, ts.AppendInteraction(ctx, &store.AppendInteractionRequest{
			UserID:    "u1",
			SessionID: session.SessionID,
			Interaction: store.Interaction{
				ThoughtContent: fmt.Sprintf("thought %d", i),
				ActionType:     "tool_call",
				Observation:    fmt.Sprintf("observation %d", i),
			},
		}))
	}

	list, err := ts.ListMemorySessions(ctx, &store.FindMemorySession{SessionID: &session.SessionID})
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	require.Len(t, got.EpisodicMemory.Interactions, 3)
	for i, interaction := range got.EpisodicMemory.Interactions {
		require.Equal(t, fmt.Sprintf("thought %d", i), interaction.ThoughtContent)
		require.Equal(t, fmt.Sprintf("observation %d", i), interaction.Observation)
	}
	// Every append advances the session timestamp at least as far as the
	// interaction it recorded.
	last := got.EpisodicMemory.Interactions[2]
	require.GreaterOrEqual(t, got.Timestamp.UnixMilli(), last.Timestamp.UnixMilli())
}

func TestAppendInteractionUnknownSession(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	err := ts.AppendInteraction(ctx, &store.AppendInteractionRequest{
		UserID:      "u1",
		SessionID:   store.NewSessionID(),
		Interaction: store.Interaction{ThoughtContent: "into the void"},
	})
	require.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestAppendInteractionWrongUser(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	session := createTestingSession(ctx, t, ts, "u1")
	err := ts.AppendInteraction(ctx, &store.AppendInteractionRequest{
		UserID:      "u2",
		SessionID:   session.SessionID,
		Interaction: store.Interaction{ThoughtContent: "not mine"},
	})
	require.ErrorIs(t, err, store.ErrSessionNotFound)

	// The owner's session is untouched.
	list, err := ts.ListMemorySessions(ctx, &store.FindMemorySession{SessionID: &session.SessionID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Empty(t, list[0].EpisodicMemory.Interactions)
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	session := createTestingSession(ctx, t, ts, "u1")

	const workers = 8
	const appendsPerWorker = 5
	var group errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		group.Go(func() error {
			for i := 0; i < appendsPerWorker; i++ {
				if err := ts.AppendInteraction(ctx, &store.AppendInteractionRequest{
					UserID:    "u1",
					SessionID: session.SessionID,
					Interaction: store.Interaction{
						ThoughtContent: fmt.Sprintf("worker %d step %d", w, i),
					},
				}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())

	list, err := ts.ListMemorySessions(ctx, &store.FindMemorySession{SessionID: &session.SessionID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].EpisodicMemory.Interactions, workers*appendsPerWorker)
}

func TestSearchMemorySessions(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	userID := "u1"
	invoiceSession := createTestingSession(ctx, t, ts, userID)
	task := "process the invoice for ACME"
	_, err := ts.UpdateMemorySession(ctx, &store.UpdateMemorySession{
		UserID:      userID,
		SessionID:   invoiceSession.SessionID,
		UpdatedTs:   time.Now().UnixMilli(),
		CurrentTask: &task,
	})
	require.NoError(t, err)
	require.NoError(t, ts.AppendInteraction(ctx, &store.AppendInteractionRequest{
		UserID:    userID,
		SessionID: invoiceSession.SessionID,
		Interaction: store.Interaction{
			ThoughtContent: "need to find the invoice total",
			Observation:    "invoice total is 4200 EUR",
		},
	}))

	unrelatedSession := createTestingSession(ctx, t, ts, userID)
	require.NoError(t, ts.AppendInteraction(ctx, &store.AppendInteractionRequest{
		UserID:    userID,
		SessionID: unrelatedSession.SessionID,
		Interaction: store.Interaction{
			ThoughtContent: "checking the weather forecast",
			Observation:    "sunny tomorrow",
		},
	}))

	otherUserSession := createTestingSession(ctx, t, ts, "u2")
	require.NoError(t, ts.AppendInteraction(ctx, &store.AppendInteractionRequest{
		UserID:    "u2",
		SessionID: otherUserSession.SessionID,
		Interaction: store.Interaction{
			ThoughtContent: "another user's invoice work",
		},
	}))

	query := "invoice"
	results, err := ts.SearchMemorySessions(ctx, &store.FindMemorySession{
		UserID: &userID,
		Query:  &query,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, invoiceSession.SessionID, results[0].Session.SessionID)
	require.Greater(t, results[0].Score, 0.0)
	// Hits are hydrated with their full interaction history.
	require.Len(t, results[0].Session.EpisodicMemory.Interactions, 1)
}

func TestSearchMatchesInteractionContentOnly(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	session := createTestingSession(ctx, t, ts, "u1")
	require.NoError(t, ts.AppendInteraction(ctx, &store.AppendInteractionRequest{
		UserID:    "u1",
		SessionID: session.SessionID,
		Interaction: store.Interaction{
			ThoughtContent: "inspecting the deployment",
			Observation:    "pod stuck in CrashLoopBackOff",
		},
	}))

	userID := "u1"
	query := "crashloopbackoff"
	results, err := ts.SearchMemorySessions(ctx, &store.FindMemorySession{
		UserID: &userID,
		Query:  &query,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, session.SessionID, results[0].Session.SessionID)
}

func TestSearchScoresAreOrdered(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	userID := "u1"
	for i := 0; i < 3; i++ {
		session := createTestingSession(ctx, t, ts, userID)
		for j := 0; j <= i; j++ {
			require.NoError(t, ts.AppendInteraction(ctx, &store.AppendInteractionRequest{
				UserID:    userID,
				SessionID: session.SessionID,
				Interaction: store.Interaction{
					ThoughtContent: "database migration planning",
				},
			}))
		}
	}

	query := "migration"
	results, err := ts.SearchMemorySessions(ctx, &store.FindMemorySession{
		UserID: &userID,
		Query:  &query,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		require.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestUpdateMemorySession(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	session := createTestingSession(ctx, t, ts, "u1")

	focus := "writing the summary"
	status := store.TaskStatusCompleted
	goals := []string{"summarize findings", "file report"}
	updated, err := ts.UpdateMemorySession(ctx, &store.UpdateMemorySession{
		UserID:       "u1",
		SessionID:    session.SessionID,
		UpdatedTs:    time.Now().Add(time.Second).UnixMilli(),
		CurrentFocus: &focus,
		TaskStatus:   &status,
		ActiveGoals:  &goals,
	})
	require.NoError(t, err)
	require.Equal(t, focus, updated.WorkingMemory.CurrentFocus)
	require.Equal(t, store.TaskStatusCompleted, updated.Context.TaskStatus)
	require.Equal(t, goals, updated.WorkingMemory.ActiveGoals)
	require.Greater(t, updated.Timestamp.UnixMilli(), session.Timestamp.UnixMilli())
	// Untouched fields keep their values.
	require.Equal(t, 1, updated.Context.TaskPriority)
}

func TestUpdateMemorySessionWrongUser(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	session := createTestingSession(ctx, t, ts, "u1")
	focus := "hijack"
	_, err := ts.UpdateMemorySession(ctx, &store.UpdateMemorySession{
		UserID:       "u2",
		SessionID:    session.SessionID,
		UpdatedTs:    time.Now().UnixMilli(),
		CurrentFocus: &focus,
	})
	require.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestDeleteMemorySessionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	userID := "u1"
	session := createTestingSession(ctx, t, ts, userID)
	require.NoError(t, ts.AppendInteraction(ctx, &store.AppendInteractionRequest{
		UserID:      userID,
		SessionID:   session.SessionID,
		Interaction: store.Interaction{ThoughtContent: "soon gone"},
	}))

	del := &store.DeleteMemorySession{UserID: &userID, SessionID: &session.SessionID}
	require.NoError(t, ts.DeleteMemorySession(ctx, del))
	require.NoError(t, ts.DeleteMemorySession(ctx, del))

	list, err := ts.ListMemorySessions(ctx, &store.FindMemorySession{UserID: &userID})
	require.NoError(t, err)
	require.Empty(t, list)

	// The interactions are gone too: appending to the deleted session fails.
	err = ts.AppendInteraction(ctx, &store.AppendInteractionRequest{
		UserID:      userID,
		SessionID:   session.SessionID,
		Interaction: store.Interaction{ThoughtContent: "too late"},
	})
	require.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestDeleteMemorySessionScopedToUser(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	session := createTestingSession(ctx, t, ts, "u1")

	otherUser := "u2"
	require.NoError(t, ts.DeleteMemorySession(ctx, &store.DeleteMemorySession{
		UserID:    &otherUser,
		SessionID: &session.SessionID,
	}))

	list, err := ts.ListMemorySessions(ctx, &store.FindMemorySession{SessionID: &session.SessionID})
	require.NoError(t, err)
	require.Len(t, list, 1)
}
