package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/recorrente/recorrente/internal/domain/billable"
	"github.com/recorrente/recorrente/internal/testutil"
	"github.com/recorrente/recorrente/internal/types"
)

type ContractRenewalSuite struct {
	testutil.BaseServiceSuite
	service ContractRenewalService
}

func TestContractRenewal(t *testing.T) {
	suite.Run(t, new(ContractRenewalSuite))
}

func (s *ContractRenewalSuite) SetupTest() {
	s.SetupSuiteComponents()
	s.Clock = time.Date(2025, time.December, 20, 10, 0, 0, 0, time.UTC)

	s.service = NewContractRenewalService(ServiceParams{
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
	})
}

// seedYear materializes monthly periods for the contract in the given
// year, marking each one's charge PAID when paid is true
func (s *ContractRenewalSuite) seedYear(contractID string, year, anchorDay int, months int, paid bool) {
	category := "cat_1"
	costCenter := "cc_1"
	for m := 1; m <= months; m++ {
		due := types.AddClampedMonths(
			time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), m-1, anchorDay)
		saleID := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SALE)
		item := &billable.Item{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLABLE_ITEM),
			Origin:       types.BillingOriginSale,
			ContractID:   &contractID,
			SaleID:       &saleID,
			Amount:       decimal.NewFromInt(300),
			DueDate:      &due,
			AnchorDay:    anchorDay,
			CategoryID:   &category,
			CostCenterID: &costCenter,
			Payer: billable.Payer{
				Name:  "Acme Ltda",
				TaxID: "12345678000199",
			},
			BaseModel: types.GetDefaultBaseModel(s.Ctx),
		}
		s.Require().NoError(s.BillableStore.Create(s.Ctx, item))

		chg := testutil.NewOpenCharge(s.Ctx, due)
		chg.SaleID = &saleID
		chg.BillableItemID = item.ID
		if paid {
			chg.ChargeStatus = types.ChargeStatusPaid
			chg.RawStatus = "LIQUIDADO"
		}
		s.Require().NoError(s.ChargeStore.Create(s.Ctx, chg))
	}
}

func (s *ContractRenewalSuite) TestRenewsFullYearWhenAllPaidInDecember() {
	s.seedYear("contract_1", 2025, 15, 12, true)

	s.Require().NoError(s.service.RenewContractForNextYear(s.Ctx, "contract_1"))

	next, err := s.BillableStore.ListByContractAndYear(s.Ctx, "contract_1", 2026)
	s.Require().NoError(err)
	s.Require().Len(next, 12)

	for i, item := range next {
		s.Require().NotNil(item.DueDate)
		s.Equal(time.Month(i+1), item.DueDate.Month())
		s.Equal(15, item.DueDate.Day())
		s.Equal(2026, item.DueDate.Year())

		// each period carries its own single-period rule keyed by its sale
		s.Require().NotNil(item.SaleID)
		rule, err := s.RecurrenceStore.GetBySaleID(s.Ctx, *item.SaleID)
		s.Require().NoError(err)
		s.Require().NotNil(item.RecurrenceID)
		s.Equal(*item.RecurrenceID, rule.ID)
		s.Equal(types.RecurrenceModeFixed, rule.Mode)
		s.Require().NotNil(rule.TotalPeriods)
		s.Equal(1, *rule.TotalPeriods)

		// attribution is inherited from the closing year
		s.Require().NotNil(item.CategoryID)
		s.Equal("cat_1", *item.CategoryID)
		s.Require().NotNil(item.CostCenterID)
		s.Equal("cc_1", *item.CostCenterID)
	}

	s.Equal(12, s.RecurrenceStore.Count())
}

func (s *ContractRenewalSuite) TestAnchorDayClampsInShortMonths() {
	s.seedYear("contract_1", 2025, 31, 12, true)

	s.Require().NoError(s.service.RenewContractForNextYear(s.Ctx, "contract_1"))

	next, err := s.BillableStore.ListByContractAndYear(s.Ctx, "contract_1", 2026)
	s.Require().NoError(err)
	s.Require().Len(next, 12)

	s.Equal(31, next[0].DueDate.Day())  // january
	s.Equal(28, next[1].DueDate.Day())  // february 2026 is a common year
	s.Equal(31, next[2].DueDate.Day())  // march restores the anchor
	s.Equal(30, next[3].DueDate.Day())  // april clamps
}

func (s *ContractRenewalSuite) TestNoRenewalOutsideDecember() {
	s.Clock = time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	s.seedYear("contract_1", 2025, 15, 3, true)

	s.Require().NoError(s.service.RenewContractForNextYear(s.Ctx, "contract_1"))

	next, err := s.BillableStore.ListByContractAndYear(s.Ctx, "contract_1", 2026)
	s.Require().NoError(err)
	s.Empty(next)
}

func (s *ContractRenewalSuite) TestNoRenewalWhileAnyPeriodUnpaid() {
	s.seedYear("contract_1", 2025, 15, 11, true)

	// december period still open
	due := time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC)
	saleID := "sale_open_dec"
	item := &billable.Item{
		ID:      "bill_open_dec",
		Origin:  types.BillingOriginSale,
		SaleID:  &saleID,
		Amount:  decimal.NewFromInt(300),
		DueDate: &due,
		Payer: billable.Payer{
			Name:  "Acme Ltda",
			TaxID: "12345678000199",
		},
		ContractID: strPtr("contract_1"),
		BaseModel:  types.GetDefaultBaseModel(s.Ctx),
	}
	s.Require().NoError(s.BillableStore.Create(s.Ctx, item))
	chg := testutil.NewOpenCharge(s.Ctx, due)
	chg.SaleID = &saleID
	chg.BillableItemID = item.ID
	s.Require().NoError(s.ChargeStore.Create(s.Ctx, chg))

	s.Require().NoError(s.service.RenewContractForNextYear(s.Ctx, "contract_1"))

	next, err := s.BillableStore.ListByContractAndYear(s.Ctx, "contract_1", 2026)
	s.Require().NoError(err)
	s.Empty(next)
}

func (s *ContractRenewalSuite) TestRenewalIsIdempotent() {
	s.seedYear("contract_1", 2025, 15, 12, true)

	s.Require().NoError(s.service.RenewContractForNextYear(s.Ctx, "contract_1"))
	s.Require().NoError(s.service.RenewContractForNextYear(s.Ctx, "contract_1"))

	next, err := s.BillableStore.ListByContractAndYear(s.Ctx, "contract_1", 2026)
	s.Require().NoError(err)
	s.Len(next, 12)
	s.Equal(12, s.RecurrenceStore.Count())
}

func (s *ContractRenewalSuite) TestNoRenewalWithoutMaterializedPeriods() {
	s.Require().NoError(s.service.RenewContractForNextYear(s.Ctx, "contract_ghost"))

	next, err := s.BillableStore.ListByContractAndYear(s.Ctx, "contract_ghost", 2026)
	s.Require().NoError(err)
	s.Empty(next)
}
