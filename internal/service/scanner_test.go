package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/recorrente/recorrente/internal/domain/billable"
	"github.com/recorrente/recorrente/internal/domain/recurrence"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/testutil"
	"github.com/recorrente/recorrente/internal/types"
)

type DueItemServiceSuite struct {
	testutil.BaseServiceSuite
	service DueItemService
}

func TestDueItemService(t *testing.T) {
	suite.Run(t, new(DueItemServiceSuite))
}

func (s *DueItemServiceSuite) SetupTest() {
	s.SetupSuiteComponents()
	s.service = NewDueItemService(s.params())
}

func (s *DueItemServiceSuite) params() ServiceParams {
	return ServiceParams{
		Logger:          s.Logger,
		Config:          s.Cfg,
		DB:              s.DB,
		Bank:            s.Bank,
		Notifier:        s.Notifier,
		Now:             s.Now,
		RecurrenceRepo:  s.RecurrenceStore,
		BillableRepo:    s.BillableStore,
		ChargeRepo:      s.ChargeStore,
		LedgerRepo:      s.LedgerStore,
		BankAccountRepo: s.BankAccountStore,
	}
}

func (s *DueItemServiceSuite) seedRule(id string, active bool, saleID string) {
	status := types.RecurrenceStatusActive
	if !active {
		status = types.RecurrenceStatusInactive
	}
	rule := &recurrence.Recurrence{
		ID:               id,
		IntervalUnit:     types.BillingIntervalMonth,
		IntervalCount:    1,
		Mode:             types.RecurrenceModeIndeterminate,
		RecurrenceStatus: status,
		Origin:           types.BillingOriginSale,
		SaleID:           &saleID,
		BaseModel:        types.GetDefaultBaseModel(s.Ctx),
	}
	s.Require().NoError(s.RecurrenceStore.Create(s.Ctx, rule))
	s.BillableStore.ActiveRecurrences[id] = active
}

func (s *DueItemServiceSuite) seedSaleItem(id, saleID string, recurrenceID *string, due *time.Time, readyToBill bool) {
	item := &billable.Item{
		ID:           id,
		Origin:       types.BillingOriginSale,
		SaleID:       &saleID,
		RecurrenceID: recurrenceID,
		Amount:       decimal.NewFromInt(100),
		DueDate:      due,
		ReadyToBill:  readyToBill,
		Payer: billable.Payer{
			Name:  "Cliente Teste",
			TaxID: "12345678901",
		},
		BaseModel: types.GetDefaultBaseModel(s.Ctx),
	}
	s.Require().NoError(s.BillableStore.Create(s.Ctx, item))
}

func (s *DueItemServiceSuite) seedContractItem(id, contractID string, due time.Time) {
	item := &billable.Item{
		ID:         id,
		Origin:     types.BillingOriginContract,
		ContractID: &contractID,
		Amount:     decimal.NewFromInt(250),
		DueDate:    &due,
		Payer: billable.Payer{
			Name:  "Empresa Teste",
			TaxID: "12345678000199",
		},
		BaseModel: types.GetDefaultBaseModel(s.Ctx),
	}
	s.Require().NoError(s.BillableStore.Create(s.Ctx, item))
}

func (s *DueItemServiceSuite) TestMergesAllThreePopulations() {
	due := s.Clock.AddDate(0, 0, 3)
	ruleID := "rec_1"
	s.seedRule(ruleID, true, "sale_1")
	s.seedSaleItem("bill_recurring", "sale_1", &ruleID, &due, false)
	s.seedSaleItem("bill_standalone", "sale_2", nil, nil, true)
	s.seedContractItem("bill_contract", "contract_1", due)

	items, err := s.service.ScanDueItems(s.Ctx, 7)
	s.Require().NoError(err)
	s.Len(items, 3)
}

func (s *DueItemServiceSuite) TestExcludesInactiveRecurrence() {
	due := s.Clock.AddDate(0, 0, 1)
	ruleID := "rec_inactive"
	s.seedRule(ruleID, false, "sale_1")
	s.seedSaleItem("bill_1", "sale_1", &ruleID, &due, false)

	items, err := s.service.ScanDueItems(s.Ctx, 7)
	s.Require().NoError(err)
	s.Empty(items)
}

func (s *DueItemServiceSuite) TestSkipsItemWithMissingRule() {
	due := s.Clock.AddDate(0, 0, 1)
	missing := "rec_gone"
	s.BillableStore.ActiveRecurrences[missing] = true
	s.seedSaleItem("bill_orphan", "sale_1", &missing, &due, false)

	items, err := s.service.ScanDueItems(s.Ctx, 7)
	s.Require().NoError(err)
	s.Empty(items)
}

func (s *DueItemServiceSuite) TestExcludesItemsBeyondWindow() {
	far := s.Clock.AddDate(0, 0, 30)
	s.seedContractItem("bill_far", "contract_1", far)

	items, err := s.service.ScanDueItems(s.Ctx, 7)
	s.Require().NoError(err)
	s.Empty(items)
}

func (s *DueItemServiceSuite) TestExcludesAlreadyBilledSale() {
	due := s.Clock.AddDate(0, 0, 2)
	s.seedSaleItem("bill_1", "sale_billed", nil, &due, true)
	s.seedCharge("sale_billed", nil, due)

	items, err := s.service.ScanDueItems(s.Ctx, 7)
	s.Require().NoError(err)
	s.Empty(items)
}

func (s *DueItemServiceSuite) TestExcludesBilledContractPeriodOnly() {
	due := s.Clock.AddDate(0, 0, 2)
	s.seedContractItem("bill_1", "contract_1", due)
	otherPeriod := due.AddDate(0, -1, 0)
	s.seedCharge("", strPtr("contract_1"), otherPeriod)

	items, err := s.service.ScanDueItems(s.Ctx, 7)
	s.Require().NoError(err)
	s.Len(items, 1, "a charge for a previous period must not suppress the current one")

	s.seedCharge("", strPtr("contract_1"), due)
	items, err = s.service.ScanDueItems(s.Ctx, 7)
	s.Require().NoError(err)
	s.Empty(items)
}

func (s *DueItemServiceSuite) TestOrdersByDueDate() {
	later := s.Clock.AddDate(0, 0, 5)
	sooner := s.Clock.AddDate(0, 0, 1)
	s.seedContractItem("bill_later", "contract_a", later)
	s.seedContractItem("bill_sooner", "contract_b", sooner)

	items, err := s.service.ScanDueItems(s.Ctx, 7)
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal("bill_sooner", items[0].ID)
	s.Equal("bill_later", items[1].ID)
}

func (s *DueItemServiceSuite) TestRejectsInvalidLookahead() {
	_, err := s.service.ScanDueItems(s.Ctx, 0)
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *DueItemServiceSuite) seedCharge(saleID string, contractID *string, due time.Time) {
	chg := testutil.NewOpenCharge(s.Ctx, due)
	if saleID != "" {
		chg.SaleID = &saleID
	}
	chg.ContractID = contractID
	s.Require().NoError(s.ChargeStore.Create(s.Ctx, chg))
}

func strPtr(v string) *string {
	return &v
}
