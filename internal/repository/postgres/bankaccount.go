package postgres

import (
	"context"
	"time"

	"github.com/recorrente/recorrente/internal/domain/bankaccount"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/logger"
	"github.com/recorrente/recorrente/internal/postgres"
	"github.com/recorrente/recorrente/internal/types"
)

type bankAccountRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewBankAccountRepository creates a new postgres-backed bank account
// credential repository
func NewBankAccountRepository(db postgres.IClient, logger *logger.Logger) bankaccount.Repository {
	return &bankAccountRepository{db: db, logger: logger}
}

func (r *bankAccountRepository) Get(ctx context.Context, id string) (*bankaccount.Credential, error) {
	query := `
		SELECT * FROM bank_account_credentials
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	creds, err := r.list(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	})
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		return nil, notFound("bank account", id)
	}
	return creds[0], nil
}

func (r *bankAccountRepository) List(ctx context.Context) ([]*bankaccount.Credential, error) {
	query := `
		SELECT * FROM bank_account_credentials
		WHERE tenant_id = :tenant_id AND status = :status
		ORDER BY created_at`

	return r.list(ctx, query, map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	})
}

func (r *bankAccountRepository) GetDefault(ctx context.Context) (*bankaccount.Credential, error) {
	creds, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, cred := range creds {
		if cred.IsDefault {
			return cred, nil
		}
	}
	if len(creds) == 1 {
		return creds[0], nil
	}

	return nil, ierr.NewError("no default bank account configured").
		WithHint("Mark one bank account credential as default or configure exactly one").
		Mark(ierr.ErrConfiguration)
}

func (r *bankAccountRepository) UpdateToken(ctx context.Context, id string, token string, issuedAt time.Time, expiresIn int) error {
	query := `
		UPDATE bank_account_credentials SET
			token = :token,
			token_issued_at = :token_issued_at,
			token_expires_in = :token_expires_in,
			updated_at = NOW()
		WHERE id = :id AND tenant_id = :tenant_id`

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":               id,
		"token":            token,
		"token_issued_at":  issuedAt,
		"token_expires_in": expiresIn,
		"tenant_id":        types.GetTenantID(ctx),
	})
	if err != nil {
		return translateError(err, "bank account")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("bank account", id)
	}
	return nil
}

func (r *bankAccountRepository) list(ctx context.Context, query string, args map[string]interface{}) ([]*bankaccount.Credential, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to query bank accounts").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	creds := make([]*bankaccount.Credential, 0)
	for rows.Next() {
		var cred bankaccount.Credential
		if err := rows.StructScan(&cred); err != nil {
			return nil, ierr.WithError(err).
				WithMessage("failed to scan bank account").
				Mark(ierr.ErrDatabase)
		}
		creds = append(creds, &cred)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to iterate bank accounts").
			Mark(ierr.ErrDatabase)
	}
	return creds, nil
}
