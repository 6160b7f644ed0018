package testutil

import (
	"context"
	"sync"

	"github.com/recorrente/recorrente/internal/domain/recurrence"
	ierr "github.com/recorrente/recorrente/internal/errors"
)

// InMemoryRecurrenceStore is an in-memory recurrence repository for tests
type InMemoryRecurrenceStore struct {
	mu    sync.RWMutex
	rules map[string]*recurrence.Recurrence
}

func NewInMemoryRecurrenceStore() *InMemoryRecurrenceStore {
	return &InMemoryRecurrenceStore{
		rules: make(map[string]*recurrence.Recurrence),
	}
}

func (s *InMemoryRecurrenceStore) Create(ctx context.Context, rule *recurrence.Recurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[rule.ID]; ok {
		return ierr.NewError("recurrence already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	copied := *rule
	s.rules[rule.ID] = &copied
	return nil
}

func (s *InMemoryRecurrenceStore) Get(ctx context.Context, id string) (*recurrence.Recurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, ierr.NewError("recurrence not found").
			Mark(ierr.ErrNotFound)
	}
	copied := *rule
	return &copied, nil
}

func (s *InMemoryRecurrenceStore) Update(ctx context.Context, rule *recurrence.Recurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[rule.ID]; !ok {
		return ierr.NewError("recurrence not found").
			Mark(ierr.ErrNotFound)
	}
	copied := *rule
	s.rules[rule.ID] = &copied
	return nil
}

func (s *InMemoryRecurrenceStore) GetBySaleID(ctx context.Context, saleID string) (*recurrence.Recurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rule := range s.rules {
		if rule.SaleID != nil && *rule.SaleID == saleID {
			copied := *rule
			return &copied, nil
		}
	}
	return nil, ierr.NewError("recurrence not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryRecurrenceStore) IncrementBilledPeriods(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return ierr.NewError("recurrence not found").
			Mark(ierr.ErrNotFound)
	}
	rule.BilledPeriods++
	return nil
}

// Count returns the number of stored rules
func (s *InMemoryRecurrenceStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}
