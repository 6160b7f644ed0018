package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/recorrente/recorrente/internal/domain/billable"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/types"
)

// InMemoryBillableStore is an in-memory billable item repository for
// tests. The list queries mirror the SQL predicates of the postgres
// implementation.
type InMemoryBillableStore struct {
	mu    sync.RWMutex
	items map[string]*billable.Item

	// ActiveRecurrences tells ListRecurringSalesDue which rules are
	// active, standing in for the SQL join
	ActiveRecurrences map[string]bool
}

func NewInMemoryBillableStore() *InMemoryBillableStore {
	return &InMemoryBillableStore{
		items:             make(map[string]*billable.Item),
		ActiveRecurrences: make(map[string]bool),
	}
}

func (s *InMemoryBillableStore) Create(ctx context.Context, item *billable.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; ok {
		return ierr.NewError("billable item already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *InMemoryBillableStore) Get(ctx context.Context, id string) (*billable.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, ierr.NewError("billable item not found").
			Mark(ierr.ErrNotFound)
	}
	copied := *item
	return &copied, nil
}

func (s *InMemoryBillableStore) Update(ctx context.Context, item *billable.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; !ok {
		return ierr.NewError("billable item not found").
			Mark(ierr.ErrNotFound)
	}
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *InMemoryBillableStore) UpdateDueDate(ctx context.Context, id string, dueDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ierr.NewError("billable item not found").
			Mark(ierr.ErrNotFound)
	}
	due := dueDate
	item.DueDate = &due
	return nil
}

func (s *InMemoryBillableStore) ListRecurringSalesDue(ctx context.Context, until time.Time) ([]*billable.Item, error) {
	return s.filter(func(item *billable.Item) bool {
		if item.Origin != types.BillingOriginSale || item.RecurrenceID == nil {
			return false
		}
		if !s.ActiveRecurrences[*item.RecurrenceID] {
			return false
		}
		return item.DueDate == nil || !item.DueDate.After(until)
	}), nil
}

func (s *InMemoryBillableStore) ListStandaloneSalesDue(ctx context.Context, until time.Time) ([]*billable.Item, error) {
	return s.filter(func(item *billable.Item) bool {
		if item.Origin != types.BillingOriginSale || item.RecurrenceID != nil || !item.ReadyToBill {
			return false
		}
		return item.DueDate == nil || !item.DueDate.After(until)
	}), nil
}

func (s *InMemoryBillableStore) ListLegacyContractsDue(ctx context.Context, until time.Time) ([]*billable.Item, error) {
	return s.filter(func(item *billable.Item) bool {
		if item.Origin != types.BillingOriginContract || item.DueDate == nil {
			return false
		}
		return !item.DueDate.After(until)
	}), nil
}

func (s *InMemoryBillableStore) ListByContractAndYear(ctx context.Context, contractID string, year int) ([]*billable.Item, error) {
	items := s.filter(func(item *billable.Item) bool {
		if item.Origin != types.BillingOriginSale || item.ContractID == nil || *item.ContractID != contractID {
			return false
		}
		return item.DueDate != nil && item.DueDate.Year() == year
	})
	sort.Slice(items, func(a, b int) bool {
		return items[a].DueDate.Before(*items[b].DueDate)
	})
	return items, nil
}

func (s *InMemoryBillableStore) filter(keep func(*billable.Item) bool) []*billable.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*billable.Item, 0)
	for _, item := range s.items {
		if keep(item) {
			copied := *item
			items = append(items, &copied)
		}
	}
	return items
}
