package testutil

import (
	"context"
	"sync"

	"github.com/recorrente/recorrente/internal/domain/ledger"
	ierr "github.com/recorrente/recorrente/internal/errors"
)

// InMemoryLedgerStore is an in-memory ledger repository for tests. It
// enforces the unique charge_id constraint both ledger tables carry.
type InMemoryLedgerStore struct {
	mu           sync.RWMutex
	transactions map[string]*ledger.Transaction
	saleRecords  map[string]*ledger.SaleRecord
}

func NewInMemoryLedgerStore() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{
		transactions: make(map[string]*ledger.Transaction),
		saleRecords:  make(map[string]*ledger.SaleRecord),
	}
}

func (s *InMemoryLedgerStore) CreateTransaction(ctx context.Context, txn *ledger.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[txn.ChargeID]; ok {
		return ierr.NewError("ledger transaction already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	copied := *txn
	s.transactions[txn.ChargeID] = &copied
	return nil
}

func (s *InMemoryLedgerStore) GetTransactionByChargeID(ctx context.Context, chargeID string) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.transactions[chargeID]
	if !ok {
		return nil, ierr.NewError("ledger transaction not found").
			Mark(ierr.ErrNotFound)
	}
	copied := *txn
	return &copied, nil
}

func (s *InMemoryLedgerStore) CreateSaleRecord(ctx context.Context, record *ledger.SaleRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.saleRecords[record.ChargeID]; ok {
		return ierr.NewError("sale record already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	copied := *record
	s.saleRecords[record.ChargeID] = &copied
	return nil
}

func (s *InMemoryLedgerStore) GetSaleRecordByChargeID(ctx context.Context, chargeID string) (*ledger.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.saleRecords[chargeID]
	if !ok {
		return nil, ierr.NewError("sale record not found").
			Mark(ierr.ErrNotFound)
	}
	copied := *record
	return &copied, nil
}

// TransactionCount returns the number of stored ledger transactions
func (s *InMemoryLedgerStore) TransactionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transactions)
}

// SaleRecordCount returns the number of stored sale records
func (s *InMemoryLedgerStore) SaleRecordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.saleRecords)
}
