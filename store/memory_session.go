package store

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a session's current task.
// Transition legality (active -> completed | failed) is owned by the
// orchestrator; the store persists whatever status it is given.
type TaskStatus string

const (
	TaskStatusActive    TaskStatus = "active"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusActive, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// NewSessionID generates a new collision-resistant session identifier.
func NewSessionID() string {
	return uuid.New().String()
}

// TaskContext describes the task a session is currently working on.
type TaskContext struct {
	CurrentTask  string     `json:"currentTask"`
	TaskStatus   TaskStatus `json:"taskStatus"`
	TaskPriority int        `json:"taskPriority"`
}

// WorkingMemory holds the mutable short-horizon state of a session.
type WorkingMemory struct {
	CurrentFocus    string   `json:"currentFocus"`
	ActiveGoals     []string `json:"activeGoals"`
	AttentionPoints []string `json:"attentionPoints"`
}

// Interaction is one immutable thought/action/observation step. Interactions
// are append-only; they are never mutated or removed individually.
type Interaction struct {
	ThoughtContent string    `json:"thoughtContent"`
	ActionType     string    `json:"actionType"`
	Observation    string    `json:"observation"`
	Timestamp      time.Time `json:"timestamp"`
}

// EpisodicMemory is the ordered interaction history of a session.
type EpisodicMemory struct {
	Interactions []Interaction `json:"interactions"`
}

// MemorySession is one agent run's persisted memory record. The JSON field
// names are the wire contract; external tooling depends on them.
type MemorySession struct {
	UserID         string         `json:"userId"`
	SessionID      string         `json:"sessionId"`
	Timestamp      time.Time      `json:"timestamp"`
	Context        TaskContext    `json:"context"`
	WorkingMemory  WorkingMemory  `json:"workingMemory"`
	EpisodicMemory EpisodicMemory `json:"episodicMemory"`

	CreatedAt time.Time `json:"-"`
}

// SessionWithScore pairs a session with its relevance score.
type SessionWithScore struct {
	Session *MemorySession `json:"session"`
	Score   float64        `json:"score"`
}

// FindMemorySession specifies the conditions for finding memory sessions.
// A non-nil Query requests relevance-ranked search; otherwise results are
// ordered by descending session timestamp.
type FindMemorySession struct {
	UserID    *string
	SessionID *string
	Query     *string
	Limit     int
	Offset    int
}

// AppendInteractionRequest specifies an atomic append of one interaction.
// The mutation is keyed by both SessionID and UserID so that a caller can
// never append into another user's session.
type AppendInteractionRequest struct {
	UserID      string
	SessionID   string
	Interaction Interaction
}

// UpdateMemorySession specifies a partial update of a session's task context
// and working memory. Nil fields are left untouched. UpdatedTs stamps the
// session timestamp in unix milliseconds.
type UpdateMemorySession struct {
	UserID    string
	SessionID string
	UpdatedTs int64

	CurrentTask     *string
	TaskStatus      *TaskStatus
	TaskPriority    *int
	CurrentFocus    *string
	ActiveGoals     *[]string
	AttentionPoints *[]string
}

// DeleteMemorySession specifies the conditions for deleting memory sessions.
type DeleteMemorySession struct {
	UserID    *string
	SessionID *string
}
