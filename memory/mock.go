package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	apperr "github.com/agentmem/agentmem/internal/errors"
	"github.com/agentmem/agentmem/store"
)

// MockService is an in-memory MemoryService for tests and wiring without a
// database. Search uses case-insensitive substring matching instead of full
// text ranking, which is good enough for exercising callers.
type MockService struct {
	mu       sync.RWMutex
	sessions map[string]*store.MemorySession
}

// NewMockService creates an empty in-memory memory service.
func NewMockService() *MockService {
	return &MockService{
		sessions: map[string]*store.MemorySession{},
	}
}

func (m *MockService) CreateSession(_ context.Context, userID string) (string, error) {
	if err := validateUserID(userID); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	session := &store.MemorySession{
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
	m.sessions[session.SessionID] = session
	return session.SessionID, nil
}

func (m *MockService) AppendInteraction(_ context.Context, userID, sessionID string, interaction Interaction) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok || session.UserID != userID {
		return apperr.SessionNotFound(sessionID)
	}

	now := time.Now()
	session.EpisodicMemory.Interactions = append(session.EpisodicMemory.Interactions, store.Interaction{
		ThoughtContent: interaction.Thought,
		ActionType:     interaction.Action,
		Observation:    interaction.Observation,
		Timestamp:      now,
	})
	if now.After(session.Timestamp) {
		session.Timestamp = now
	}
	return nil
}

func (m *MockService) SearchRelevantMemories(_ context.Context, userID, query string, limit int) ([]*store.SessionWithScore, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	limit = clampLimit(limit, DefaultSearchLimit)
	query = strings.ToLower(strings.TrimSpace(query))

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := []*store.SessionWithScore{}
	for _, session := range m.sessions {
		if session.UserID != userID {
			continue
		}
		if query == "" {
			results = append(results, &store.SessionWithScore{Session: session})
			continue
		}
		if score := matchScore(session, query); score > 0 {
			results = append(results, &store.SessionWithScore{Session: session, Score: score})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Session.Timestamp.After(results[j].Session.Timestamp)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MockService) GetUserSessions(_ context.Context, userID string) ([]*store.MemorySession, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := []*store.MemorySession{}
	for _, session := range m.sessions {
		if session.UserID == userID {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Timestamp.After(sessions[j].Timestamp)
	})
	return sessions, nil
}

func (m *MockService) UpdateSession(_ context.Context, userID, sessionID string, update SessionUpdate) (*store.MemorySession, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}
	if update == (SessionUpdate{}) {
		return nil, apperr.InvalidArgument("update must set at least one field")
	}
	if update.TaskStatus != nil && !update.TaskStatus.Valid() {
		return nil, apperr.InvalidArgument("invalid task status: " + string(*update.TaskStatus))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok || session.UserID != userID {
		return nil, apperr.SessionNotFound(sessionID)
	}

	if update.CurrentTask != nil {
		session.Context.CurrentTask = *update.CurrentTask
	}
	if update.TaskStatus != nil {
		session.Context.TaskStatus = *update.TaskStatus
	}
	if update.TaskPriority != nil {
		session.Context.TaskPriority = *update.TaskPriority
	}
	if update.CurrentFocus != nil {
		session.WorkingMemory.CurrentFocus = *update.CurrentFocus
	}
	if update.ActiveGoals != nil {
		session.WorkingMemory.ActiveGoals = *update.ActiveGoals
	}
	if update.AttentionPoints != nil {
		session.WorkingMemory.AttentionPoints = *update.AttentionPoints
	}
	now := time.Now()
	if now.After(session.Timestamp) {
		session.Timestamp = now
	}
	return session, nil
}

func (m *MockService) DeleteSession(_ context.Context, userID, sessionID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if ok && session.UserID == userID {
		delete(m.sessions, sessionID)
	}
	return nil
}

func matchScore(session *store.MemorySession, query string) float64 {
	score := 0.0
	for _, field := range []string{
		session.Context.CurrentTask,
		session.WorkingMemory.CurrentFocus,
		strings.Join(session.WorkingMemory.ActiveGoals, " "),
	} {
		if strings.Contains(strings.ToLower(field), query) {
			score++
		}
	}
	for _, interaction := range session.EpisodicMemory.Interactions {
		if strings.Contains(strings.ToLower(interaction.ThoughtContent), query) ||
			strings.Contains(strings.ToLower(interaction.Observation), query) {
			score++
		}
	}
	return score
}

var _ MemoryService = (*MockService)(nil)
