package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/recorrente/recorrente/internal/domain/billable"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/logger"
	"github.com/recorrente/recorrente/internal/postgres"
	"github.com/recorrente/recorrente/internal/types"
)

type billableRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewBillableRepository creates a new postgres-backed billable item
// repository
func NewBillableRepository(db postgres.IClient, logger *logger.Logger) billable.Repository {
	return &billableRepository{db: db, logger: logger}
}

func (r *billableRepository) Create(ctx context.Context, item *billable.Item) error {
	query := `
		INSERT INTO billable_items (
			id, origin, contract_id, sale_id, recurrence_id, amount,
			due_date, anchor_day, payer_name, payer_tax_id, payer_email,
			payer_street, payer_number, payer_district, payer_city,
			payer_state, payer_zip_code, bank_account_id, category_id,
			cost_center_id, ready_to_bill,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :origin, :contract_id, :sale_id, :recurrence_id, :amount,
			:due_date, :anchor_day, :payer_name, :payer_tax_id, :payer_email,
			:payer_street, :payer_number, :payer_district, :payer_city,
			:payer_state, :payer_zip_code, :bank_account_id, :category_id,
			:cost_center_id, :ready_to_bill,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return translateError(err, "billable item")
	}
	return nil
}

func (r *billableRepository) Get(ctx context.Context, id string) (*billable.Item, error) {
	query := `
		SELECT * FROM billable_items
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	items, err := r.list(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, notFound("billable item", id)
	}
	return items[0], nil
}

func (r *billableRepository) Update(ctx context.Context, item *billable.Item) error {
	query := `
		UPDATE billable_items SET
			amount = :amount,
			due_date = :due_date,
			anchor_day = :anchor_day,
			payer_name = :payer_name,
			payer_tax_id = :payer_tax_id,
			payer_email = :payer_email,
			payer_street = :payer_street,
			payer_number = :payer_number,
			payer_district = :payer_district,
			payer_city = :payer_city,
			payer_state = :payer_state,
			payer_zip_code = :payer_zip_code,
			bank_account_id = :bank_account_id,
			category_id = :category_id,
			cost_center_id = :cost_center_id,
			ready_to_bill = :ready_to_bill,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	item.UpdatedBy = types.GetUserID(ctx)
	result, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return translateError(err, "billable item")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("billable item", item.ID)
	}
	return nil
}

func (r *billableRepository) UpdateDueDate(ctx context.Context, id string, dueDate time.Time) error {
	query := `
		UPDATE billable_items SET
			due_date = :due_date,
			updated_at = NOW()
		WHERE id = :id AND tenant_id = :tenant_id`

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":        id,
		"due_date":  dueDate,
		"tenant_id": types.GetTenantID(ctx),
	})
	if err != nil {
		return translateError(err, "billable item")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("billable item", id)
	}
	return nil
}

func (r *billableRepository) ListRecurringSalesDue(ctx context.Context, until time.Time) ([]*billable.Item, error) {
	query := `
		SELECT bi.* FROM billable_items bi
		JOIN recurrences rec ON rec.id = bi.recurrence_id
		WHERE bi.origin = :origin
		  AND bi.recurrence_id IS NOT NULL
		  AND (bi.due_date IS NULL OR bi.due_date <= :until)
		  AND rec.recurrence_status = :recurrence_status
		  AND bi.tenant_id = :tenant_id AND bi.status = :status
		ORDER BY bi.due_date NULLS FIRST`

	return r.list(ctx, query, map[string]interface{}{
		"origin":            types.BillingOriginSale,
		"until":             until,
		"recurrence_status": types.RecurrenceStatusActive,
		"tenant_id":         types.GetTenantID(ctx),
		"status":            types.StatusPublished,
	})
}

func (r *billableRepository) ListStandaloneSalesDue(ctx context.Context, until time.Time) ([]*billable.Item, error) {
	query := `
		SELECT * FROM billable_items
		WHERE origin = :origin
		  AND recurrence_id IS NULL
		  AND ready_to_bill = TRUE
		  AND (due_date IS NULL OR due_date <= :until)
		  AND tenant_id = :tenant_id AND status = :status
		ORDER BY due_date NULLS FIRST`

	return r.list(ctx, query, map[string]interface{}{
		"origin":    types.BillingOriginSale,
		"until":     until,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	})
}

func (r *billableRepository) ListLegacyContractsDue(ctx context.Context, until time.Time) ([]*billable.Item, error) {
	query := `
		SELECT * FROM billable_items
		WHERE origin = :origin
		  AND due_date IS NOT NULL AND due_date <= :until
		  AND tenant_id = :tenant_id AND status = :status
		ORDER BY due_date`

	return r.list(ctx, query, map[string]interface{}{
		"origin":    types.BillingOriginContract,
		"until":     until,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	})
}

func (r *billableRepository) ListByContractAndYear(ctx context.Context, contractID string, year int) ([]*billable.Item, error) {
	query := `
		SELECT * FROM billable_items
		WHERE origin = :origin
		  AND contract_id = :contract_id
		  AND due_date >= :year_start AND due_date < :year_end
		  AND tenant_id = :tenant_id AND status = :status
		ORDER BY due_date`

	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return r.list(ctx, query, map[string]interface{}{
		"origin":      types.BillingOriginSale,
		"contract_id": contractID,
		"year_start":  yearStart,
		"year_end":    yearStart.AddDate(1, 0, 0),
		"tenant_id":   types.GetTenantID(ctx),
		"status":      types.StatusPublished,
	})
}

func (r *billableRepository) list(ctx context.Context, query string, args map[string]interface{}) ([]*billable.Item, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to query billable items").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	return scanItems(rows)
}

func scanItems(rows *sqlx.Rows) ([]*billable.Item, error) {
	items := make([]*billable.Item, 0)
	for rows.Next() {
		var item billable.Item
		if err := rows.StructScan(&item); err != nil {
			return nil, ierr.WithError(err).
				WithMessage("failed to scan billable item").
				Mark(ierr.ErrDatabase)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to iterate billable items").
			Mark(ierr.ErrDatabase)
	}
	return items, nil
}
