package postgres

import (
	"context"

	"github.com/recorrente/recorrente/internal/domain/recurrence"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/logger"
	"github.com/recorrente/recorrente/internal/postgres"
	"github.com/recorrente/recorrente/internal/types"
)

type recurrenceRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewRecurrenceRepository creates a new postgres-backed recurrence
// repository
func NewRecurrenceRepository(db postgres.IClient, logger *logger.Logger) recurrence.Repository {
	return &recurrenceRepository{db: db, logger: logger}
}

func (r *recurrenceRepository) Create(ctx context.Context, rule *recurrence.Recurrence) error {
	query := `
		INSERT INTO recurrences (
			id, interval_unit, interval_count, mode, total_periods,
			billed_periods, recurrence_status, origin, contract_id, sale_id,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :interval_unit, :interval_count, :mode, :total_periods,
			:billed_periods, :recurrence_status, :origin, :contract_id, :sale_id,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return translateError(err, "recurrence")
	}
	return nil
}

func (r *recurrenceRepository) Get(ctx context.Context, id string) (*recurrence.Recurrence, error) {
	query := `
		SELECT * FROM recurrences
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	return r.getOne(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}, id)
}

func (r *recurrenceRepository) Update(ctx context.Context, rule *recurrence.Recurrence) error {
	query := `
		UPDATE recurrences SET
			interval_unit = :interval_unit,
			interval_count = :interval_count,
			mode = :mode,
			total_periods = :total_periods,
			billed_periods = :billed_periods,
			recurrence_status = :recurrence_status,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	rule.UpdatedBy = types.GetUserID(ctx)
	result, err := r.db.NamedExecContext(ctx, query, rule)
	if err != nil {
		return translateError(err, "recurrence")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("recurrence", rule.ID)
	}
	return nil
}

func (r *recurrenceRepository) GetBySaleID(ctx context.Context, saleID string) (*recurrence.Recurrence, error) {
	query := `
		SELECT * FROM recurrences
		WHERE sale_id = :sale_id AND tenant_id = :tenant_id AND status = :status
		ORDER BY created_at DESC
		LIMIT 1`

	return r.getOne(ctx, query, map[string]interface{}{
		"sale_id":   saleID,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}, saleID)
}

func (r *recurrenceRepository) IncrementBilledPeriods(ctx context.Context, id string) error {
	query := `
		UPDATE recurrences SET
			billed_periods = billed_periods + 1,
			updated_at = NOW()
		WHERE id = :id AND tenant_id = :tenant_id`

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
	if err != nil {
		return translateError(err, "recurrence")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("recurrence", id)
	}
	return nil
}

func (r *recurrenceRepository) getOne(ctx context.Context, query string, args map[string]interface{}, id string) (*recurrence.Recurrence, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to query recurrence").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, notFound("recurrence", id)
	}

	var rule recurrence.Recurrence
	if err := rows.StructScan(&rule); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to scan recurrence").
			Mark(ierr.ErrDatabase)
	}
	return &rule, nil
}
