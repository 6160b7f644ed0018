package postgres

import (
	"fmt"

	"github.com/lib/pq"

	ierr "github.com/recorrente/recorrente/internal/errors"
)

// translateError maps driver errors onto the sentinel hierarchy. Unique
// violations become ErrAlreadyExists so callers can treat a lost
// check-then-act race as an idempotent no-op.
func translateError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
		return ierr.WithError(err).
			WithMessagef("%s already exists", entity).
			Mark(ierr.ErrAlreadyExists)
	}
	return ierr.WithError(err).
		WithMessagef("failed to persist %s", entity).
		Mark(ierr.ErrDatabase)
}

func notFound(entity, id string) error {
	return ierr.NewError(fmt.Sprintf("%s not found", entity)).
		WithReportableDetails(map[string]any{
			"id": id,
		}).
		Mark(ierr.ErrNotFound)
}
