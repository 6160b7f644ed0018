package ledger

import (
	"context"
)

// Repository defines the interface for ledger persistence.
//
// Create calls must return ierr.ErrAlreadyExists when a row for the same
// charge already exists (unique constraint on charge_id), so a lost
// check-then-act race degrades to an idempotent no-op.
type Repository interface {
	CreateTransaction(ctx context.Context, txn *Transaction) error
	GetTransactionByChargeID(ctx context.Context, chargeID string) (*Transaction, error)

	CreateSaleRecord(ctx context.Context, record *SaleRecord) error
	GetSaleRecordByChargeID(ctx context.Context, chargeID string) (*SaleRecord, error)
}
