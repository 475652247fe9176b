// Package memory provides the per-session agent memory store consumed by
// session orchestrators: create a session, record interaction steps, and
// retrieve relevant past memories.
package memory

import (
	"context"

	"github.com/agentmem/agentmem/store"
)

// MemoryService is the operation surface exposed to the session orchestrator.
type MemoryService interface {
	// CreateSession creates an empty session for userID and returns its id.
	// The id is usable immediately for appends and search.
	CreateSession(ctx context.Context, userID string) (string, error)

	// AppendInteraction atomically appends one interaction to a session and
	// advances the session timestamp. A failure means the interaction was
	// not recorded; there is no partial append.
	AppendInteraction(ctx context.Context, userID, sessionID string, interaction Interaction) error

	// SearchRelevantMemories returns the user's sessions ranked by free-text
	// relevance, most relevant first (ties broken by recency). An empty
	// query returns the most recent sessions instead. limit <= 0 applies
	// the default page size.
	SearchRelevantMemories(ctx context.Context, userID, query string, limit int) ([]*store.SessionWithScore, error)

	// GetUserSessions returns all sessions for userID, most recent first.
	GetUserSessions(ctx context.Context, userID string) ([]*store.MemorySession, error)

	// UpdateSession applies a partial update to a session's task context and
	// working memory and returns the updated session.
	UpdateSession(ctx context.Context, userID, sessionID string, update SessionUpdate) (*store.MemorySession, error)

	// DeleteSession removes the session and its interactions. Deleting a
	// nonexistent session is not an error.
	DeleteSession(ctx context.Context, userID, sessionID string) error
}

// Interaction is one thought/action/observation step reported by the
// orchestrator. The store assigns the timestamp at append time.
type Interaction struct {
	Thought     string `json:"thought"`
	Action      string `json:"action"`
	Observation string `json:"observation"`
}

// SessionUpdate selects the session fields to change. Nil fields are left
// untouched; at least one must be set.
type SessionUpdate struct {
	CurrentTask     *string
	TaskStatus      *store.TaskStatus
	TaskPriority    *int
	CurrentFocus    *string
	ActiveGoals     *[]string
	AttentionPoints *[]string
}
