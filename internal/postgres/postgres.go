package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/recorrente/recorrente/internal/config"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/logger"
	"github.com/recorrente/recorrente/internal/types"
)

// IClient defines the interface for postgres client operations
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(context.Context) error) error

	// NamedQueryContext runs a named-parameter query against the current
	// transaction when one is bound to the context, the pool otherwise
	NamedQueryContext(ctx context.Context, query string, arg interface{}) (*sqlx.Rows, error)

	// NamedExecContext runs a named-parameter statement against the
	// current transaction or the pool
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// DB wraps sqlx.DB to provide context-bound transaction management
type DB struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewDB opens the connection pool and waits for the database to accept
// connections, backing off exponentially with a bounded number of tries
func NewDB(cfg *config.Configuration, log *logger.Logger) (*DB, error) {
	db, err := sqlx.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to open the postgres connection").
			Mark(ierr.ErrDatabase)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)

	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}
	if err := backoff.Retry(ping, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Database did not become reachable").
			Mark(ierr.ErrDatabase)
	}

	log.Infow("connected to postgres", "host", cfg.Postgres.Host, "db", cfg.Postgres.DBName)

	return &DB{db: db, logger: log}, nil
}

// WithTx wraps the given function in a transaction. If the context is
// already bound to a transaction the function reuses it; commit and
// rollback stay with the outermost caller.
func (d *DB) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if tx := txFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to begin transaction").
			Mark(ierr.ErrDatabase)
	}

	txCtx := context.WithValue(ctx, types.CtxDBTransaction, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Errorw("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit transaction").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

// NamedQueryContext runs a named query through the bound transaction when
// present
func (d *DB) NamedQueryContext(ctx context.Context, query string, arg interface{}) (*sqlx.Rows, error) {
	return sqlx.NamedQueryContext(ctx, d.ext(ctx), query, arg)
}

// NamedExecContext runs a named statement through the bound transaction
// when present
func (d *DB) NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return nil, err
	}
	ext := d.ext(ctx)
	q = ext.Rebind(q)
	return ext.ExecContext(ctx, q, args...)
}

func (d *DB) ext(ctx context.Context) sqlx.ExtContext {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return d.db
}

func txFromContext(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(types.CtxDBTransaction).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}
