package postgres

import (
	"context"

	"github.com/recorrente/recorrente/internal/domain/ledger"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/logger"
	"github.com/recorrente/recorrente/internal/postgres"
	"github.com/recorrente/recorrente/internal/types"
)

type ledgerRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewLedgerRepository creates a new postgres-backed ledger repository.
//
// Both tables carry a unique constraint on charge_id; Create calls
// losing a race return ErrAlreadyExists so settlement stays exactly-once
// per charge.
func NewLedgerRepository(db postgres.IClient, logger *logger.Logger) ledger.Repository {
	return &ledgerRepository{db: db, logger: logger}
}

func (r *ledgerRepository) CreateTransaction(ctx context.Context, txn *ledger.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO ledger_transactions (
			id, charge_id, client_name, client_tax_id, amount,
			transaction_date, description,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :charge_id, :client_name, :client_tax_id, :amount,
			:transaction_date, :description,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, txn); err != nil {
		return translateError(err, "ledger transaction")
	}
	return nil
}

func (r *ledgerRepository) GetTransactionByChargeID(ctx context.Context, chargeID string) (*ledger.Transaction, error) {
	query := `
		SELECT * FROM ledger_transactions
		WHERE charge_id = :charge_id AND tenant_id = :tenant_id AND status = :status`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"charge_id": chargeID,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to query ledger transaction").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, notFound("ledger transaction", chargeID)
	}

	var txn ledger.Transaction
	if err := rows.StructScan(&txn); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to scan ledger transaction").
			Mark(ierr.ErrDatabase)
	}
	return &txn, nil
}

func (r *ledgerRepository) CreateSaleRecord(ctx context.Context, record *ledger.SaleRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO sale_records (
			id, charge_id, sale_id, contract_id, amount, sale_date,
			category_id, cost_center_id,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :charge_id, :sale_id, :contract_id, :amount, :sale_date,
			:category_id, :cost_center_id,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return translateError(err, "sale record")
	}
	return nil
}

func (r *ledgerRepository) GetSaleRecordByChargeID(ctx context.Context, chargeID string) (*ledger.SaleRecord, error) {
	query := `
		SELECT * FROM sale_records
		WHERE charge_id = :charge_id AND tenant_id = :tenant_id AND status = :status`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"charge_id": chargeID,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to query sale record").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, notFound("sale record", chargeID)
	}

	var record ledger.SaleRecord
	if err := rows.StructScan(&record); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to scan sale record").
			Mark(ierr.ErrDatabase)
	}
	return &record, nil
}
