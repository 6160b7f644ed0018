package testutil

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// InMemoryDB satisfies postgres.IClient for service tests backed by
// in-memory stores. WithTx runs the function directly; the stores are
// not transactional, which is fine for tests that only assert outcomes.
type InMemoryDB struct{}

func NewInMemoryDB() *InMemoryDB {
	return &InMemoryDB{}
}

func (d *InMemoryDB) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (d *InMemoryDB) NamedQueryContext(ctx context.Context, query string, arg interface{}) (*sqlx.Rows, error) {
	panic("raw queries are not supported by the in-memory db")
}

func (d *InMemoryDB) NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	panic("raw statements are not supported by the in-memory db")
}
