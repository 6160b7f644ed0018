package service

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/recorrente/recorrente/internal/api/dto"
	"github.com/recorrente/recorrente/internal/domain/charge"
	"github.com/recorrente/recorrente/internal/domain/ledger"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/types"
)

// ReconciliationService polls the provider for every open charge and
// folds the reported status back into the local state
type ReconciliationService interface {
	// RunReconciliationPass reconciles every non-terminal charge in
	// provider-friendly batches; a single charge's failure is recorded
	// and the pass continues
	RunReconciliationPass(ctx context.Context) (*dto.PassResponse, error)

	// ReconcileCharge re-syncs one charge against the provider
	ReconcileCharge(ctx context.Context, chargeID string) (*charge.Charge, error)
}

type reconciliationService struct {
	ServiceParams
	renewal ContractRenewalService
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(params ServiceParams, renewal ContractRenewalService) ReconciliationService {
	return &reconciliationService{
		ServiceParams: params,
		renewal:       renewal,
	}
}

func (s *reconciliationService) RunReconciliationPass(ctx context.Context) (*dto.PassResponse, error) {
	charges, err := s.ChargeRepo.ListNonTerminal(ctx)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("starting reconciliation pass",
		"open_charges", len(charges),
		"batch_size", s.Config.Billing.BatchSize)

	response := dto.NewPassResponse()
	batches := lo.Chunk(charges, s.batchSize())
	for i, batch := range batches {
		if i > 0 && s.Config.Billing.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return response, ierr.WithError(ctx.Err()).
					WithHint("Reconciliation pass was interrupted").
					Mark(ierr.ErrSystem)
			case <-time.After(s.Config.Billing.BatchPause):
			}
		}

		for _, chg := range batch {
			if _, err := s.ReconcileCharge(ctx, chg.ID); err != nil {
				s.Logger.Errorw("failed to reconcile charge",
					"charge_id", chg.ID,
					"external_id", chg.ExternalID,
					"error", err)
				response.RecordFailure(chg.ID, err)
				continue
			}
			response.RecordSuccess(chg.ID)
		}
	}

	s.Logger.Infow("completed reconciliation pass",
		"total", response.Total,
		"succeeded", response.Succeeded,
		"failed", response.Failed)

	return response, nil
}

func (s *reconciliationService) ReconcileCharge(ctx context.Context, chargeID string) (*charge.Charge, error) {
	chg, err := s.ChargeRepo.Get(ctx, chargeID)
	if err != nil {
		return nil, err
	}

	cred, err := s.BankAccountRepo.Get(ctx, chg.BankAccountID)
	if err != nil {
		return nil, err
	}

	detail, raw, err := s.Bank.GetCharge(ctx, cred, chg.ExternalID)
	if err != nil {
		return nil, err
	}

	// an unmapped provider status fails the item loudly instead of being
	// silently folded into OPEN
	status, err := types.NormalizeRawChargeStatus(detail.Status)
	if err != nil {
		return nil, err
	}

	// terminal states never regress to OPEN; late or out-of-order
	// provider reads keep the settled view
	if chg.ChargeStatus.IsTerminal() && status == types.ChargeStatusOpen {
		s.Logger.Warnw("provider reported a terminal charge as open, keeping local state",
			"charge_id", chg.ID,
			"charge_status", chg.ChargeStatus,
			"raw_status", detail.Status)
		return chg, nil
	}

	previousRaw := chg.RawStatus

	chg.RawStatus = detail.Status
	chg.ChargeStatus = status
	if detail.ReceivedAmount != nil {
		chg.ReceivedAmount = detail.ReceivedAmount
	}
	if detail.PaidAt != nil {
		chg.PaidAt = detail.PaidAt
	}
	if detail.CanceledAt != nil {
		chg.CanceledAt = detail.CanceledAt
	}
	if detail.CancelReason != nil {
		chg.CancelReason = detail.CancelReason
	}

	// the local row always converges to the provider view, even when the
	// raw status string is unchanged
	if err := s.ChargeRepo.Update(ctx, chg); err != nil {
		return nil, err
	}

	if previousRaw != detail.Status {
		s.appendStatusHistory(ctx, chg, previousRaw, detail.Status, raw)
	}

	// settlement keys on the provider-reported status, not on a local
	// transition: a run that updated the row to PAID and then died before
	// settling leaves no OPEN charge for the next pass to find, so the
	// heal path is re-running settlement on every reconcile of a paid
	// charge and letting the existence checks no-op the settled case
	if status == types.ChargeStatusPaid {
		if err := s.settlePaidCharge(ctx, chg); err != nil {
			return nil, err
		}
		s.maybeRenewContract(ctx, chg)
	}

	return chg, nil
}

// appendStatusHistory records a raw transition with the provider
// response snapshot. History is observability, not state: failure is
// logged and does not fail the reconciliation.
func (s *reconciliationService) appendStatusHistory(ctx context.Context, chg *charge.Charge, previous, next string, raw []byte) {
	entry := &charge.StatusHistory{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_STATUS_HISTORY),
		ChargeID:          chg.ID,
		PreviousRawStatus: previous,
		NewRawStatus:      next,
		Payload:           string(raw),
		EventTime:         s.now(),
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
	if err := s.ChargeRepo.CreateStatusHistory(ctx, entry); err != nil {
		s.Logger.Errorw("failed to append charge status history",
			"charge_id", chg.ID,
			"previous_raw_status", previous,
			"new_raw_status", next,
			"error", err)
	}
}

// settlePaidCharge writes the ledger transaction and the sale record for
// a PAID charge, exactly once per charge. A concurrent or repeated run
// gets ErrAlreadyExists from the unique constraint on charge_id and
// treats it as done.
func (s *reconciliationService) settlePaidCharge(ctx context.Context, chg *charge.Charge) error {
	item, err := s.BillableRepo.Get(ctx, chg.BillableItemID)
	if err != nil {
		return err
	}

	amount := chg.Amount
	if chg.ReceivedAmount != nil && !chg.ReceivedAmount.IsZero() {
		amount = *chg.ReceivedAmount
	}
	paidAt := s.now()
	if chg.PaidAt != nil {
		paidAt = *chg.PaidAt
	}

	txn := &ledger.Transaction{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEDGER_TXN),
		ChargeID:        chg.ID,
		ClientName:      item.Payer.Name,
		ClientTaxID:     item.Payer.TaxID,
		Amount:          amount,
		TransactionDate: paidAt,
		Description:     fmt.Sprintf("Boleto %s", chg.ReferenceCode),
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
	if err := s.LedgerRepo.CreateTransaction(ctx, txn); err != nil {
		if ierr.IsAlreadyExists(err) {
			s.Logger.Infow("ledger transaction already settled for charge",
				"charge_id", chg.ID)
		} else {
			return err
		}
	}

	record := &ledger.SaleRecord{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SALE_RECORD),
		ChargeID:     chg.ID,
		SaleID:       chg.SaleID,
		ContractID:   chg.ContractID,
		Amount:       amount,
		SaleDate:     paidAt,
		CategoryID:   item.CategoryID,
		CostCenterID: item.CostCenterID,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
	if chg.SaleID != nil && item.ContractID != nil {
		// sale materialized from a contract schedule keeps the contract
		// attribution on its sale record
		record.ContractID = item.ContractID
	}
	if err := s.LedgerRepo.CreateSaleRecord(ctx, record); err != nil {
		if ierr.IsAlreadyExists(err) {
			s.Logger.Infow("sale record already settled for charge",
				"charge_id", chg.ID)
			return nil
		}
		return err
	}

	s.Logger.Infow("settled paid charge",
		"charge_id", chg.ID,
		"amount", amount,
		"paid_at", paidAt.Format("2006-01-02"))

	return nil
}

// maybeRenewContract kicks the annual renewal check when the paid charge
// belongs to a sale materialized from a contract schedule. Renewal
// failure is logged and retried on the next reconcile of any of the
// contract's paid charges, never failing the reconciliation that
// triggered it.
func (s *reconciliationService) maybeRenewContract(ctx context.Context, chg *charge.Charge) {
	if chg.SaleID == nil || *chg.SaleID == "" {
		return
	}

	item, err := s.BillableRepo.Get(ctx, chg.BillableItemID)
	if err != nil {
		s.Logger.Errorw("failed to load item for renewal check",
			"charge_id", chg.ID,
			"error", err)
		return
	}
	if item.ContractID == nil || *item.ContractID == "" {
		return
	}

	if err := s.renewal.RenewContractForNextYear(ctx, *item.ContractID); err != nil {
		s.Logger.Errorw("contract renewal check failed",
			"contract_id", *item.ContractID,
			"charge_id", chg.ID,
			"error", err)
	}
}

func (s *reconciliationService) batchSize() int {
	if s.Config.Billing.BatchSize > 0 {
		return s.Config.Billing.BatchSize
	}
	return 5
}
