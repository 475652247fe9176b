package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// ErrSessionNotFound is returned by drivers when a mutation targets a session
// that does not exist (or is owned by a different user).
var ErrSessionNotFound = errors.New("session not found")

// Driver is the document-store adapter interface. It contains all methods a
// backing database driver must implement. Any backend that can offer an
// atomic append-and-stamp mutation and relevance-ranked text search can
// satisfy this contract.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// IsInitialized reports whether the backing schema exists.
	IsInitialized(ctx context.Context) (bool, error)

	// MemorySession model related methods.
	CreateMemorySession(ctx context.Context, create *MemorySession) (*MemorySession, error)
	ListMemorySessions(ctx context.Context, find *FindMemorySession) ([]*MemorySession, error)
	UpdateMemorySession(ctx context.Context, update *UpdateMemorySession) (*MemorySession, error)
	DeleteMemorySession(ctx context.Context, delete *DeleteMemorySession) error

	// AppendInteraction atomically appends one interaction to a session and
	// stamps the session timestamp in the same transaction. It must never be
	// implemented as a read-modify-write round trip; concurrent appends to
	// the same session are serialized on the session row.
	AppendInteraction(ctx context.Context, request *AppendInteractionRequest) error

	// SearchMemorySessions performs relevance-ranked full-text search over
	// the session's task/focus/goals fields and every interaction's thought
	// and observation, each interaction scored as an independent unit.
	// Results are ordered by descending score, then descending timestamp.
	SearchMemorySessions(ctx context.Context, find *FindMemorySession) ([]*SessionWithScore, error)
}
