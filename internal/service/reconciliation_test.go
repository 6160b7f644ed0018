package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/recorrente/recorrente/internal/banking"
	"github.com/recorrente/recorrente/internal/domain/billable"
	"github.com/recorrente/recorrente/internal/domain/charge"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/testutil"
	"github.com/recorrente/recorrente/internal/types"
)

type ReconciliationSuite struct {
	testutil.BaseServiceSuite
	service ReconciliationService
}

func TestReconciliation(t *testing.T) {
	suite.Run(t, new(ReconciliationSuite))
}

func (s *ReconciliationSuite) SetupTest() {
	s.SetupSuiteComponents()
	s.BankAccountStore.Add(testutil.NewTestCredential(s.Ctx, "bank_test"))

	params := ServiceParams{
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
	s.service = NewReconciliationService(params, NewContractRenewalService(params))
}

// seedOpenCharge stores an item and its OPEN charge and scripts the
// provider with the given raw status
func (s *ReconciliationSuite) seedOpenCharge(saleID, rawStatus string) *charge.Charge {
	due := s.Clock.AddDate(0, 0, -1)
	item := &billable.Item{
		ID:          "bill_" + saleID,
		Origin:      types.BillingOriginSale,
		SaleID:      &saleID,
		Amount:      decimal.NewFromInt(100),
		DueDate:     &due,
		ReadyToBill: true,
		Payer: billable.Payer{
			Name:  "Maria da Silva",
			TaxID: "12345678901",
		},
		BaseModel: types.GetDefaultBaseModel(s.Ctx),
	}
	s.Require().NoError(s.BillableStore.Create(s.Ctx, item))

	chg := testutil.NewOpenCharge(s.Ctx, due)
	chg.SaleID = &saleID
	chg.BillableItemID = item.ID
	s.Require().NoError(s.ChargeStore.Create(s.Ctx, chg))

	s.Bank.SetStatus(chg.ExternalID, rawStatus)
	return chg
}

func (s *ReconciliationSuite) TestPaidChargeSettlesLedgerExactlyOnce() {
	chg := s.seedOpenCharge("sale_1", "EMITIDO")
	paidAt := s.Clock.Add(-2 * time.Hour)
	received := decimal.NewFromFloat(99.50)
	s.Bank.SetDetail(chg.ExternalID, &banking.ChargeDetail{
		ExternalID:     chg.ExternalID,
		Status:         "LIQUIDADO",
		ReceivedAmount: &received,
		PaidAt:         &paidAt,
	})

	updated, err := s.service.ReconcileCharge(s.Ctx, chg.ID)
	s.Require().NoError(err)

	s.Equal(types.ChargeStatusPaid, updated.ChargeStatus)
	s.Equal("LIQUIDADO", updated.RawStatus)
	s.Equal(1, s.LedgerStore.TransactionCount())
	s.Equal(1, s.LedgerStore.SaleRecordCount())

	txn, err := s.LedgerStore.GetTransactionByChargeID(s.Ctx, chg.ID)
	s.Require().NoError(err)
	s.True(txn.Amount.Equal(received))
	s.Equal("Maria da Silva", txn.ClientName)

	record, err := s.LedgerStore.GetSaleRecordByChargeID(s.Ctx, chg.ID)
	s.Require().NoError(err)
	s.Require().NotNil(record.SaleID)
	s.Equal("sale_1", *record.SaleID)
	s.True(record.Amount.Equal(received))

	// reconciling again must not write a second ledger row
	_, err = s.service.ReconcileCharge(s.Ctx, chg.ID)
	s.Require().NoError(err)
	s.Equal(1, s.LedgerStore.TransactionCount())
	s.Equal(1, s.LedgerStore.SaleRecordCount())
}

func (s *ReconciliationSuite) TestResyncSettlesPaidChargeWithMissingLedgerRows() {
	chg := s.seedOpenCharge("sale_1", "LIQUIDADO")

	// a run that died between the row update and settlement leaves the
	// charge PAID with no ledger rows and off the non-terminal worklist
	stored, err := s.ChargeStore.Get(s.Ctx, chg.ID)
	s.Require().NoError(err)
	stored.ChargeStatus = types.ChargeStatusPaid
	stored.RawStatus = "LIQUIDADO"
	s.Require().NoError(s.ChargeStore.Update(s.Ctx, stored))
	s.Zero(s.LedgerStore.TransactionCount())
	s.Zero(s.LedgerStore.SaleRecordCount())

	_, err = s.service.ReconcileCharge(s.Ctx, chg.ID)
	s.Require().NoError(err)

	s.Equal(1, s.LedgerStore.TransactionCount())
	s.Equal(1, s.LedgerStore.SaleRecordCount())
}

func (s *ReconciliationSuite) TestAppendsHistoryOnlyOnRawTransition() {
	chg := s.seedOpenCharge("sale_1", "EMITIDO")

	// same raw status: converge silently, no history
	_, err := s.service.ReconcileCharge(s.Ctx, chg.ID)
	s.Require().NoError(err)
	entries, err := s.ChargeStore.ListStatusHistory(s.Ctx, chg.ID)
	s.Require().NoError(err)
	s.Empty(entries)

	s.Bank.SetStatus(chg.ExternalID, "REGISTRADO")
	_, err = s.service.ReconcileCharge(s.Ctx, chg.ID)
	s.Require().NoError(err)

	entries, err = s.ChargeStore.ListStatusHistory(s.Ctx, chg.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("EMITIDO", entries[0].PreviousRawStatus)
	s.Equal("REGISTRADO", entries[0].NewRawStatus)
	s.NotEmpty(entries[0].Payload)
}

func (s *ReconciliationSuite) TestUnknownRawStatusFailsTheCharge() {
	chg := s.seedOpenCharge("sale_1", "ESTADO_MISTERIOSO")

	_, err := s.service.ReconcileCharge(s.Ctx, chg.ID)
	s.Require().Error(err)
	s.True(ierr.IsProvider(err))

	// the charge stays untouched
	stored, err := s.ChargeStore.Get(s.Ctx, chg.ID)
	s.Require().NoError(err)
	s.Equal("EMITIDO", stored.RawStatus)
	s.Equal(types.ChargeStatusOpen, stored.ChargeStatus)
}

func (s *ReconciliationSuite) TestTerminalStatusNeverRegressesToOpen() {
	chg := s.seedOpenCharge("sale_1", "LIQUIDADO")

	updated, err := s.service.ReconcileCharge(s.Ctx, chg.ID)
	s.Require().NoError(err)
	s.Equal(types.ChargeStatusPaid, updated.ChargeStatus)

	// a stale provider read reporting the charge open again is ignored
	s.Bank.SetStatus(chg.ExternalID, "EM_ABERTO")
	updated, err = s.service.ReconcileCharge(s.Ctx, chg.ID)
	s.Require().NoError(err)
	s.Equal(types.ChargeStatusPaid, updated.ChargeStatus)
	s.Equal("LIQUIDADO", updated.RawStatus)
}

func (s *ReconciliationSuite) TestCanceledChargeCarriesCancelData() {
	chg := s.seedOpenCharge("sale_1", "EMITIDO")
	canceledAt := s.Clock.Add(-1 * time.Hour)
	reason := "baixado por decurso de prazo"
	s.Bank.SetDetail(chg.ExternalID, &banking.ChargeDetail{
		ExternalID:   chg.ExternalID,
		Status:       "BAIXADO",
		CanceledAt:   &canceledAt,
		CancelReason: &reason,
	})

	updated, err := s.service.ReconcileCharge(s.Ctx, chg.ID)
	s.Require().NoError(err)
	s.Equal(types.ChargeStatusCanceled, updated.ChargeStatus)
	s.Require().NotNil(updated.CanceledAt)
	s.Require().NotNil(updated.CancelReason)
	s.Equal(reason, *updated.CancelReason)

	// cancellation settles nothing
	s.Zero(s.LedgerStore.TransactionCount())
	s.Zero(s.LedgerStore.SaleRecordCount())
}

func (s *ReconciliationSuite) TestPassProcessesAllOpenChargesAndRecordsFailures() {
	good := s.seedOpenCharge("sale_ok", "LIQUIDADO")
	bad := s.seedOpenCharge("sale_bad", "ESTADO_MISTERIOSO")

	response, err := s.service.RunReconciliationPass(s.Ctx)
	s.Require().NoError(err)
	s.Equal(2, response.Total)
	s.Equal(1, response.Succeeded)
	s.Equal(1, response.Failed)

	settled, err := s.ChargeStore.Get(s.Ctx, good.ID)
	s.Require().NoError(err)
	s.Equal(types.ChargeStatusPaid, settled.ChargeStatus)

	stuck, err := s.ChargeStore.Get(s.Ctx, bad.ID)
	s.Require().NoError(err)
	s.Equal(types.ChargeStatusOpen, stuck.ChargeStatus)
}

func (s *ReconciliationSuite) TestPassSkipsTerminalCharges() {
	chg := s.seedOpenCharge("sale_1", "LIQUIDADO")

	_, err := s.service.RunReconciliationPass(s.Ctx)
	s.Require().NoError(err)

	// once paid the charge leaves the worklist
	response, err := s.service.RunReconciliationPass(s.Ctx)
	s.Require().NoError(err)
	s.Zero(response.Total)

	stored, err := s.ChargeStore.Get(s.Ctx, chg.ID)
	s.Require().NoError(err)
	s.Equal(types.ChargeStatusPaid, stored.ChargeStatus)
}

func (s *ReconciliationSuite) TestPaidDecemberChargeTriggersRenewal() {
	s.Clock = time.Date(2025, time.December, 20, 10, 0, 0, 0, time.UTC)

	// eleven settled periods plus the december one still open
	contractID := "contract_1"
	var lastCharge *charge.Charge
	for m := 1; m <= 12; m++ {
		due := time.Date(2025, time.Month(m), 10, 0, 0, 0, 0, time.UTC)
		saleID := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SALE)
		item := &billable.Item{
			ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLABLE_ITEM),
			Origin:     types.BillingOriginSale,
			ContractID: &contractID,
			SaleID:     &saleID,
			Amount:     decimal.NewFromInt(300),
			DueDate:    &due,
			AnchorDay:  10,
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
		if m < 12 {
			chg.ChargeStatus = types.ChargeStatusPaid
			chg.RawStatus = "LIQUIDADO"
		} else {
			lastCharge = chg
			s.Bank.SetStatus(chg.ExternalID, "LIQUIDADO")
		}
		s.Require().NoError(s.ChargeStore.Create(s.Ctx, chg))
	}

	_, err := s.service.ReconcileCharge(s.Ctx, lastCharge.ID)
	s.Require().NoError(err)

	next, err := s.BillableStore.ListByContractAndYear(s.Ctx, contractID, 2026)
	s.Require().NoError(err)
	s.Len(next, 12)
}

func (s *ReconciliationSuite) TestFallsBackToChargeAmountWhenProviderOmitsReceived() {
	chg := s.seedOpenCharge("sale_1", "LIQUIDADO")

	_, err := s.service.ReconcileCharge(s.Ctx, chg.ID)
	s.Require().NoError(err)

	txn, err := s.LedgerStore.GetTransactionByChargeID(s.Ctx, chg.ID)
	s.Require().NoError(err)
	s.True(txn.Amount.Equal(chg.Amount))
}
