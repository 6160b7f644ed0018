package service

import (
	"context"
	"sort"
	"time"

	"github.com/recorrente/recorrente/internal/domain/billable"
	ierr "github.com/recorrente/recorrente/internal/errors"
)

// DueItemService builds the worklist of billable items whose next period
// falls inside the lookahead window
type DueItemService interface {
	// ScanDueItems returns the items due within the next lookaheadDays,
	// merging recurrence-governed sales, standalone ready-to-bill sales
	// and legacy direct-contract items, excluding anything that already
	// has a charge for the period, ordered by due date
	ScanDueItems(ctx context.Context, lookaheadDays int) ([]*billable.Item, error)
}

type dueItemService struct {
	ServiceParams
}

// NewDueItemService creates a new due item service
func NewDueItemService(params ServiceParams) DueItemService {
	return &dueItemService{ServiceParams: params}
}

func (s *dueItemService) ScanDueItems(ctx context.Context, lookaheadDays int) ([]*billable.Item, error) {
	if lookaheadDays <= 0 {
		return nil, ierr.NewError("invalid lookahead").
			WithHint("Lookahead days must be a positive integer").
			Mark(ierr.ErrValidation)
	}

	now := s.now()
	until := now.AddDate(0, 0, lookaheadDays)

	recurring, err := s.BillableRepo.ListRecurringSalesDue(ctx, until)
	if err != nil {
		return nil, err
	}
	standalone, err := s.BillableRepo.ListStandaloneSalesDue(ctx, until)
	if err != nil {
		return nil, err
	}
	contracts, err := s.BillableRepo.ListLegacyContractsDue(ctx, until)
	if err != nil {
		return nil, err
	}

	candidates := make([]*billable.Item, 0, len(recurring)+len(standalone)+len(contracts))
	candidates = append(candidates, recurring...)
	candidates = append(candidates, standalone...)
	candidates = append(candidates, contracts...)

	items := make([]*billable.Item, 0, len(candidates))
	for _, item := range candidates {
		active, err := s.recurrenceActive(ctx, item)
		if err != nil {
			return nil, err
		}
		if !active {
			continue
		}

		billed, err := s.alreadyBilled(ctx, item, now)
		if err != nil {
			return nil, err
		}
		if billed {
			continue
		}

		items = append(items, item)
	}

	sort.Slice(items, func(a, b int) bool {
		return items[a].EffectiveDueDate(now).Before(items[b].EffectiveDueDate(now))
	})

	s.Logger.Debugw("scanned due items",
		"lookahead_days", lookaheadDays,
		"candidates", len(candidates),
		"due", len(items))

	return items, nil
}

// recurrenceActive verifies the governing rule when the item has one.
// Standalone sales and legacy contracts without a rule pass through.
func (s *dueItemService) recurrenceActive(ctx context.Context, item *billable.Item) (bool, error) {
	if item.RecurrenceID == nil || *item.RecurrenceID == "" {
		return true, nil
	}

	rule, err := s.RecurrenceRepo.Get(ctx, *item.RecurrenceID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("item references a missing recurrence rule, skipping",
				"item_id", item.ID,
				"recurrence_id", *item.RecurrenceID)
			return false, nil
		}
		return false, err
	}

	return rule.IsActive(), nil
}

// alreadyBilled checks whether a charge for the item's period exists.
// Sale items are one per period so any charge disqualifies them; contract
// items are keyed by contract and period due date.
func (s *dueItemService) alreadyBilled(ctx context.Context, item *billable.Item, now time.Time) (bool, error) {
	if item.SaleID != nil && *item.SaleID != "" {
		return s.ChargeRepo.ExistsForSale(ctx, *item.SaleID)
	}
	if item.ContractID != nil && *item.ContractID != "" {
		return s.ChargeRepo.ExistsForContractPeriod(ctx, *item.ContractID, item.EffectiveDueDate(now))
	}
	return false, nil
}
