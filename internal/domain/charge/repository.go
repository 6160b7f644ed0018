package charge

import (
	"context"
	"time"
)

// Repository defines the interface for charge persistence
type Repository interface {
	Create(ctx context.Context, charge *Charge) error
	Get(ctx context.Context, id string) (*Charge, error)
	Update(ctx context.Context, charge *Charge) error

	// GetBySaleID returns the charge issued for the given sale
	GetBySaleID(ctx context.Context, saleID string) (*Charge, error)

	// ListNonTerminal returns charges whose consolidated status is still
	// OPEN, the reconciliation worklist
	ListNonTerminal(ctx context.Context) ([]*Charge, error)

	// ExistsForSale reports whether any charge exists for the given sale
	ExistsForSale(ctx context.Context, saleID string) (bool, error)

	// ExistsForContractPeriod reports whether a charge exists for the
	// given contract and period due date
	ExistsForContractPeriod(ctx context.Context, contractID string, dueDate time.Time) (bool, error)

	// Status history operations
	CreateStatusHistory(ctx context.Context, entry *StatusHistory) error
	ListStatusHistory(ctx context.Context, chargeID string) ([]*StatusHistory, error)
}
