package memory

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	apperr "github.com/agentmem/agentmem/internal/errors"
	"github.com/agentmem/agentmem/store"
)

const (
	// DefaultSearchLimit bounds relevance search results when the caller
	// does not specify a page size.
	DefaultSearchLimit = 20
	// DefaultListLimit bounds session listings.
	DefaultListLimit = 100
	// MaxPageSize is the hard cap on any page size.
	MaxPageSize = 1000
)

// Service implements MemoryService on top of a document store. It holds no
// state between calls; all durable state lives in the backend, and each
// operation is a single backend round trip.
type Service struct {
	store  *store.Store
	logger *slog.Logger
}

// NewService creates a new memory service. The store must be migrated
// before the service handles requests.
func NewService(s *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		logger: logger,
	}
}

func (s *Service) CreateSession(ctx context.Context, userID string) (string, error) {
	if err := validateUserID(userID); err != nil {
		return "", err
	}

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

	if _, err := s.store.CreateMemorySession(ctx, session); err != nil {
		return "", s.storeFailure(err, "create session")
	}

	s.logger.Info("session created",
		slog.String("user_id", userID),
		slog.String("session_id", session.SessionID))
	return session.SessionID, nil
}

func (s *Service) AppendInteraction(ctx context.Context, userID, sessionID string, interaction Interaction) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	request := &store.AppendInteractionRequest{
		UserID:    userID,
		SessionID: sessionID,
		Interaction: store.Interaction{
			ThoughtContent: interaction.Thought,
			ActionType:     interaction.Action,
			Observation:    interaction.Observation,
			Timestamp:      time.Now(),
		},
	}

	if err := s.store.AppendInteraction(ctx, request); err != nil {
		if stderrors.Is(err, store.ErrSessionNotFound) {
			return apperr.SessionNotFound(sessionID)
		}
		return s.storeFailure(err, "append interaction")
	}
	return nil
}

func (s *Service) SearchRelevantMemories(ctx context.Context, userID, query string, limit int) ([]*store.SessionWithScore, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	limit = clampLimit(limit, DefaultSearchLimit)

	// An empty query has nothing to rank against; fall back to recency.
	query = strings.TrimSpace(query)
	if query == "" {
		sessions, err := s.store.ListMemorySessions(ctx, &store.FindMemorySession{
			UserID: &userID,
			Limit:  limit,
		})
		if err != nil {
			return nil, s.storeFailure(err, "list sessions")
		}
		results := make([]*store.SessionWithScore, 0, len(sessions))
		for _, session := range sessions {
			results = append(results, &store.SessionWithScore{Session: session})
		}
		return results, nil
	}

	results, err := s.store.SearchMemorySessions(ctx, &store.FindMemorySession{
		UserID: &userID,
		Query:  &query,
		Limit:  limit,
	})
	if err != nil {
		return nil, s.storeFailure(err, "search sessions")
	}
	return results, nil
}

func (s *Service) GetUserSessions(ctx context.Context, userID string) ([]*store.MemorySession, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	sessions, err := s.store.ListMemorySessions(ctx, &store.FindMemorySession{
		UserID: &userID,
		Limit:  DefaultListLimit,
	})
	if err != nil {
		return nil, s.storeFailure(err, "list sessions")
	}
	return sessions, nil
}

func (s *Service) UpdateSession(ctx context.Context, userID, sessionID string, update SessionUpdate) (*store.MemorySession, error) {
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

	session, err := s.store.UpdateMemorySession(ctx, &store.UpdateMemorySession{
		UserID:          userID,
		SessionID:       sessionID,
		UpdatedTs:       time.Now().UnixMilli(),
		CurrentTask:     update.CurrentTask,
		TaskStatus:      update.TaskStatus,
		TaskPriority:    update.TaskPriority,
		CurrentFocus:    update.CurrentFocus,
		ActiveGoals:     update.ActiveGoals,
		AttentionPoints: update.AttentionPoints,
	})
	if err != nil {
		if stderrors.Is(err, store.ErrSessionNotFound) {
			return nil, apperr.SessionNotFound(sessionID)
		}
		return nil, s.storeFailure(err, "update session")
	}
	return session, nil
}

func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	if err := s.store.DeleteMemorySession(ctx, &store.DeleteMemorySession{
		UserID:    &userID,
		SessionID: &sessionID,
	}); err != nil {
		return s.storeFailure(err, "delete session")
	}

	s.logger.Info("session deleted",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID))
	return nil
}

// storeFailure maps a backend error onto the failure taxonomy. Deadline
// expiry is surfaced as a timeout; everything else is store unavailability.
// The service never retries on its own.
func (s *Service) storeFailure(err error, op string) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return apperr.Timeout("deadline exceeded during "+op, err)
	}
	return apperr.StoreUnavailable("failed to "+op, err)
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.InvalidArgument("userId must not be empty")
	}
	return nil
}

func validateSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return apperr.InvalidArgument("sessionId must not be empty")
	}
	return nil
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// Ensure Service implements MemoryService interface.
var _ MemoryService = (*Service)(nil)
