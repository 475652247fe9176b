package store

import (
	"context"

	"github.com/agentmem/agentmem/internal/profile"
)

// Store provides database access to all raw memory objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateMemorySession(ctx context.Context, create *MemorySession) (*MemorySession, error) {
	return s.driver.CreateMemorySession(ctx, create)
}

func (s *Store) ListMemorySessions(ctx context.Context, find *FindMemorySession) ([]*MemorySession, error) {
	return s.driver.ListMemorySessions(ctx, find)
}

func (s *Store) SearchMemorySessions(ctx context.Context, find *FindMemorySession) ([]*SessionWithScore, error) {
	return s.driver.SearchMemorySessions(ctx, find)
}

func (s *Store) AppendInteraction(ctx context.Context, request *AppendInteractionRequest) error {
	return s.driver.AppendInteraction(ctx, request)
}

func (s *Store) UpdateMemorySession(ctx context.Context, update *UpdateMemorySession) (*MemorySession, error) {
	return s.driver.UpdateMemorySession(ctx, update)
}

func (s *Store) DeleteMemorySession(ctx context.Context, delete *DeleteMemorySession) error {
	return s.driver.DeleteMemorySession(ctx, delete)
}
