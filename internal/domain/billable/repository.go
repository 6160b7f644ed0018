package billable

import (
	"context"
	"time"
)

// Repository defines the interface for billable item persistence
type Repository interface {
	Create(ctx context.Context, item *Item) error
	Get(ctx context.Context, id string) (*Item, error)
	Update(ctx context.Context, item *Item) error

	// UpdateDueDate advances the rolling next due date of a legacy
	// contract item
	UpdateDueDate(ctx context.Context, id string, dueDate time.Time) error

	// ListRecurringSalesDue returns sale items governed by an active
	// recurrence whose due date is null or on/before the given bound
	ListRecurringSalesDue(ctx context.Context, until time.Time) ([]*Item, error)

	// ListStandaloneSalesDue returns ready-to-bill sales without a
	// recurrence whose due date is null or on/before the given bound
	ListStandaloneSalesDue(ctx context.Context, until time.Time) ([]*Item, error)

	// ListLegacyContractsDue returns contract items on the older
	// direct-contract billing path due on/before the given bound
	ListLegacyContractsDue(ctx context.Context, until time.Time) ([]*Item, error)

	// ListByContractAndYear returns the sale items materialized for the
	// given contract with due dates in the given calendar year, ordered
	// by due date
	ListByContractAndYear(ctx context.Context, contractID string, year int) ([]*Item, error)
}
