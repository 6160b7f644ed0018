package service

import (
	"context"
	"time"

	"github.com/recorrente/recorrente/internal/domain/billable"
	"github.com/recorrente/recorrente/internal/domain/recurrence"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/types"
)

const renewalPeriods = 12

// ContractRenewalService materializes the next calendar year of a
// contract's billing schedule once the current year is fully settled
type ContractRenewalService interface {
	// RenewContractForNextYear creates the twelve sale and recurrence
	// pairs for the year after the current one. Runs only in December,
	// only when every current-year period is paid, and is a no-op when
	// the next year already exists.
	RenewContractForNextYear(ctx context.Context, contractID string) error
}

type contractRenewalService struct {
	ServiceParams
}

// NewContractRenewalService creates a new contract renewal service
func NewContractRenewalService(params ServiceParams) ContractRenewalService {
	return &contractRenewalService{ServiceParams: params}
}

func (s *contractRenewalService) RenewContractForNextYear(ctx context.Context, contractID string) error {
	now := s.now()

	// renewal only fires at the end of the cycle; a payment caught up in
	// March must not materialize next year nine months early
	if now.Month() != time.December {
		s.Logger.Debugw("skipping renewal outside december",
			"contract_id", contractID,
			"month", now.Month())
		return nil
	}

	currentYear := now.Year()
	nextYear := currentYear + 1

	existing, err := s.BillableRepo.ListByContractAndYear(ctx, contractID, nextYear)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.Logger.Debugw("next year already materialized",
			"contract_id", contractID,
			"year", nextYear,
			"periods", len(existing))
		return nil
	}

	currentItems, err := s.BillableRepo.ListByContractAndYear(ctx, contractID, currentYear)
	if err != nil {
		return err
	}
	if len(currentItems) == 0 {
		s.Logger.Debugw("contract has no materialized periods this year, nothing to renew",
			"contract_id", contractID,
			"year", currentYear)
		return nil
	}

	settled, err := s.allPeriodsPaid(ctx, currentItems)
	if err != nil {
		return err
	}
	if !settled {
		s.Logger.Debugw("current year not fully paid yet",
			"contract_id", contractID,
			"year", currentYear)
		return nil
	}

	template := currentItems[len(currentItems)-1]
	anchor := s.nextYearAnchor(template, nextYear)

	schedule, err := types.GenerateSchedule(anchor, renewalPeriods, types.BillingIntervalMonth, 1)
	if err != nil {
		return err
	}

	// the twelve pairs land atomically; a crash mid-renewal must not
	// leave a partial year behind
	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		for _, dueDate := range schedule {
			if err := s.createRenewalPeriod(txCtx, contractID, template, dueDate); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.Infow("renewed contract for next year",
		"contract_id", contractID,
		"year", nextYear,
		"periods", renewalPeriods,
		"first_due_date", schedule[0].Format("2006-01-02"))

	return nil
}

// allPeriodsPaid reports whether every materialized period of the year
// has a charge in consolidated PAID state
func (s *contractRenewalService) allPeriodsPaid(ctx context.Context, items []*billable.Item) (bool, error) {
	for _, item := range items {
		if item.SaleID == nil || *item.SaleID == "" {
			return false, nil
		}
		chg, err := s.ChargeRepo.GetBySaleID(ctx, *item.SaleID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		if chg.ChargeStatus != types.ChargeStatusPaid {
			return false, nil
		}
	}
	return true, nil
}

// nextYearAnchor places the first period of the next year in January,
// keeping the contract's anchor day
func (s *contractRenewalService) nextYearAnchor(template *billable.Item, nextYear int) time.Time {
	day := template.EffectiveAnchorDay()
	return types.AddClampedMonths(
		time.Date(nextYear, time.January, 1, 0, 0, 0, 0, time.UTC), 0, day)
}

func (s *contractRenewalService) createRenewalPeriod(ctx context.Context, contractID string, template *billable.Item, dueDate time.Time) error {
	saleID := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SALE)
	totalPeriods := 1

	rule := &recurrence.Recurrence{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECURRENCE),
		IntervalUnit:     types.BillingIntervalMonth,
		IntervalCount:    1,
		Mode:             types.RecurrenceModeFixed,
		TotalPeriods:     &totalPeriods,
		RecurrenceStatus: types.RecurrenceStatusActive,
		Origin:           types.BillingOriginSale,
		SaleID:           &saleID,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	if err := s.RecurrenceRepo.Create(ctx, rule); err != nil {
		return err
	}

	due := dueDate
	item := &billable.Item{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLABLE_ITEM),
		Origin:        types.BillingOriginSale,
		ContractID:    &contractID,
		SaleID:        &saleID,
		RecurrenceID:  &rule.ID,
		Amount:        template.Amount,
		DueDate:       &due,
		AnchorDay:     template.EffectiveAnchorDay(),
		Payer:         template.Payer,
		BankAccountID: template.BankAccountID,
		CategoryID:    template.CategoryID,
		CostCenterID:  template.CostCenterID,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	if err := item.Validate(); err != nil {
		return err
	}
	return s.BillableRepo.Create(ctx, item)
}
