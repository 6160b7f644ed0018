package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/recorrente/recorrente/internal/domain/charge"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/types"
)

// InMemoryChargeStore is an in-memory charge repository for tests. It
// enforces the same uniqueness the postgres schema does: one charge per
// sale, one charge per contract and period due date.
type InMemoryChargeStore struct {
	mu      sync.RWMutex
	charges map[string]*charge.Charge
	history []*charge.StatusHistory
}

func NewInMemoryChargeStore() *InMemoryChargeStore {
	return &InMemoryChargeStore{
		charges: make(map[string]*charge.Charge),
		history: make([]*charge.StatusHistory, 0),
	}
}

func (s *InMemoryChargeStore) Create(ctx context.Context, chg *charge.Charge) error {
	if err := chg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.charges[chg.ID]; ok {
		return ierr.NewError("charge already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	for _, existing := range s.charges {
		if chg.SaleID != nil && existing.SaleID != nil && *existing.SaleID == *chg.SaleID {
			return ierr.NewError("charge already exists for sale").
				Mark(ierr.ErrAlreadyExists)
		}
		if chg.ContractID != nil && existing.ContractID != nil &&
			*existing.ContractID == *chg.ContractID && existing.DueDate.Equal(chg.DueDate) {
			return ierr.NewError("charge already exists for contract period").
				Mark(ierr.ErrAlreadyExists)
		}
	}

	copied := *chg
	s.charges[chg.ID] = &copied
	return nil
}

func (s *InMemoryChargeStore) Get(ctx context.Context, id string) (*charge.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chg, ok := s.charges[id]
	if !ok {
		return nil, ierr.NewError("charge not found").
			Mark(ierr.ErrNotFound)
	}
	copied := *chg
	return &copied, nil
}

func (s *InMemoryChargeStore) Update(ctx context.Context, chg *charge.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.charges[chg.ID]; !ok {
		return ierr.NewError("charge not found").
			Mark(ierr.ErrNotFound)
	}
	copied := *chg
	s.charges[chg.ID] = &copied
	return nil
}

func (s *InMemoryChargeStore) GetBySaleID(ctx context.Context, saleID string) (*charge.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, chg := range s.charges {
		if chg.SaleID != nil && *chg.SaleID == saleID {
			copied := *chg
			return &copied, nil
		}
	}
	return nil, ierr.NewError("charge not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryChargeStore) ListNonTerminal(ctx context.Context) ([]*charge.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	charges := make([]*charge.Charge, 0)
	for _, chg := range s.charges {
		if !chg.ChargeStatus.IsTerminal() {
			copied := *chg
			charges = append(charges, &copied)
		}
	}
	return charges, nil
}

func (s *InMemoryChargeStore) ExistsForSale(ctx context.Context, saleID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, chg := range s.charges {
		if chg.SaleID != nil && *chg.SaleID == saleID {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryChargeStore) ExistsForContractPeriod(ctx context.Context, contractID string, dueDate time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, chg := range s.charges {
		if chg.ContractID != nil && *chg.ContractID == contractID && chg.DueDate.Equal(dueDate) {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryChargeStore) CreateStatusHistory(ctx context.Context, entry *charge.StatusHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	s.history = append(s.history, &copied)
	return nil
}

func (s *InMemoryChargeStore) ListStatusHistory(ctx context.Context, chargeID string) ([]*charge.StatusHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*charge.StatusHistory, 0)
	for _, entry := range s.history {
		if entry.ChargeID == chargeID {
			copied := *entry
			entries = append(entries, &copied)
		}
	}
	return entries, nil
}

// Count returns the number of stored charges
func (s *InMemoryChargeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.charges)
}

// CountByStatus returns the number of charges in the given consolidated
// status
func (s *InMemoryChargeStore) CountByStatus(status types.ChargeStatus) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, chg := range s.charges {
		if chg.ChargeStatus == status {
			n++
		}
	}
	return n
}
