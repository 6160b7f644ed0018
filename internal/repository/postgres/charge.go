package postgres

import (
	"context"
	"time"

	"github.com/recorrente/recorrente/internal/domain/charge"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/logger"
	"github.com/recorrente/recorrente/internal/postgres"
	"github.com/recorrente/recorrente/internal/types"
)

type chargeRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewChargeRepository creates a new postgres-backed charge repository.
//
// The charges table carries two partial unique indexes backing the
// duplicate-prevention invariant: one on sale_id and one on
// (contract_id, due_date), both filtered to rows whose lifecycle status
// is published. Insert races surface as ErrAlreadyExists.
func NewChargeRepository(db postgres.IClient, logger *logger.Logger) charge.Repository {
	return &chargeRepository{db: db, logger: logger}
}

func (r *chargeRepository) Create(ctx context.Context, chg *charge.Charge) error {
	if err := chg.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO charges (
			id, external_id, reference_code, contract_id, sale_id,
			billable_item_id, amount, due_date, raw_status, charge_status,
			received_amount, paid_at, canceled_at, cancel_reason,
			payment_link, barcode, bank_account_id,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :external_id, :reference_code, :contract_id, :sale_id,
			:billable_item_id, :amount, :due_date, :raw_status, :charge_status,
			:received_amount, :paid_at, :canceled_at, :cancel_reason,
			:payment_link, :barcode, :bank_account_id,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, chg); err != nil {
		return translateError(err, "charge")
	}
	return nil
}

func (r *chargeRepository) Get(ctx context.Context, id string) (*charge.Charge, error) {
	query := `
		SELECT * FROM charges
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	charges, err := r.list(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	})
	if err != nil {
		return nil, err
	}
	if len(charges) == 0 {
		return nil, notFound("charge", id)
	}
	return charges[0], nil
}

func (r *chargeRepository) Update(ctx context.Context, chg *charge.Charge) error {
	query := `
		UPDATE charges SET
			raw_status = :raw_status,
			charge_status = :charge_status,
			received_amount = :received_amount,
			paid_at = :paid_at,
			canceled_at = :canceled_at,
			cancel_reason = :cancel_reason,
			payment_link = :payment_link,
			barcode = :barcode,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	chg.UpdatedBy = types.GetUserID(ctx)
	result, err := r.db.NamedExecContext(ctx, query, chg)
	if err != nil {
		return translateError(err, "charge")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("charge", chg.ID)
	}
	return nil
}

func (r *chargeRepository) GetBySaleID(ctx context.Context, saleID string) (*charge.Charge, error) {
	query := `
		SELECT * FROM charges
		WHERE sale_id = :sale_id AND tenant_id = :tenant_id AND status = :status
		ORDER BY created_at DESC
		LIMIT 1`

	charges, err := r.list(ctx, query, map[string]interface{}{
		"sale_id":   saleID,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	})
	if err != nil {
		return nil, err
	}
	if len(charges) == 0 {
		return nil, notFound("charge", saleID)
	}
	return charges[0], nil
}

func (r *chargeRepository) ListNonTerminal(ctx context.Context) ([]*charge.Charge, error) {
	query := `
		SELECT * FROM charges
		WHERE charge_status = :charge_status
		  AND tenant_id = :tenant_id AND status = :status
		ORDER BY due_date`

	return r.list(ctx, query, map[string]interface{}{
		"charge_status": types.ChargeStatusOpen,
		"tenant_id":     types.GetTenantID(ctx),
		"status":        types.StatusPublished,
	})
}

func (r *chargeRepository) ExistsForSale(ctx context.Context, saleID string) (bool, error) {
	query := `
		SELECT 1 FROM charges
		WHERE sale_id = :sale_id AND tenant_id = :tenant_id AND status = :status
		LIMIT 1`

	return r.exists(ctx, query, map[string]interface{}{
		"sale_id":   saleID,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	})
}

func (r *chargeRepository) ExistsForContractPeriod(ctx context.Context, contractID string, dueDate time.Time) (bool, error) {
	query := `
		SELECT 1 FROM charges
		WHERE contract_id = :contract_id
		  AND due_date = :due_date
		  AND tenant_id = :tenant_id AND status = :status
		LIMIT 1`

	return r.exists(ctx, query, map[string]interface{}{
		"contract_id": contractID,
		"due_date":    dueDate,
		"tenant_id":   types.GetTenantID(ctx),
		"status":      types.StatusPublished,
	})
}

func (r *chargeRepository) CreateStatusHistory(ctx context.Context, entry *charge.StatusHistory) error {
	query := `
		INSERT INTO charge_status_histories (
			id, charge_id, previous_raw_status, new_raw_status, payload,
			event_time,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :charge_id, :previous_raw_status, :new_raw_status, :payload,
			:event_time,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return translateError(err, "charge status history")
	}
	return nil
}

func (r *chargeRepository) ListStatusHistory(ctx context.Context, chargeID string) ([]*charge.StatusHistory, error) {
	query := `
		SELECT * FROM charge_status_histories
		WHERE charge_id = :charge_id AND tenant_id = :tenant_id
		ORDER BY event_time`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"charge_id": chargeID,
		"tenant_id": types.GetTenantID(ctx),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to query charge status history").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	entries := make([]*charge.StatusHistory, 0)
	for rows.Next() {
		var entry charge.StatusHistory
		if err := rows.StructScan(&entry); err != nil {
			return nil, ierr.WithError(err).
				WithMessage("failed to scan charge status history").
				Mark(ierr.ErrDatabase)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to iterate charge status history").
			Mark(ierr.ErrDatabase)
	}
	return entries, nil
}

func (r *chargeRepository) list(ctx context.Context, query string, args map[string]interface{}) ([]*charge.Charge, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to query charges").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	charges := make([]*charge.Charge, 0)
	for rows.Next() {
		var chg charge.Charge
		if err := rows.StructScan(&chg); err != nil {
			return nil, ierr.WithError(err).
				WithMessage("failed to scan charge").
				Mark(ierr.ErrDatabase)
		}
		charges = append(charges, &chg)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to iterate charges").
			Mark(ierr.ErrDatabase)
	}
	return charges, nil
}

func (r *chargeRepository) exists(ctx context.Context, query string, args map[string]interface{}) (bool, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return false, ierr.WithError(err).
			WithMessage("failed to query charges").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	return rows.Next(), rows.Err()
}
