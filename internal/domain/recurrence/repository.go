package recurrence

import (
	"context"
)

// Repository defines the interface for recurrence rule persistence
type Repository interface {
	Create(ctx context.Context, rule *Recurrence) error
	Get(ctx context.Context, id string) (*Recurrence, error)
	Update(ctx context.Context, rule *Recurrence) error
	GetBySaleID(ctx context.Context, saleID string) (*Recurrence, error)
	IncrementBilledPeriods(ctx context.Context, id string) error
}
