package tx

import (
	"context"
	"database/sql"
)

// Executor is the query surface shared by *sql.DB and *sql.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// WithTx attaches an open transaction to ctx. A nil tx leaves ctx unchanged.
func WithTx(ctx context.Context, sqlTx *sql.Tx) context.Context {
	if sqlTx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, sqlTx)
}

// From returns the transaction carried by ctx, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	sqlTx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return sqlTx, ok
}

// Conn picks the executor a store should use: the transaction in ctx when a
// Runner opened one, the pool otherwise.
func Conn(ctx context.Context, db *sql.DB) Executor {
	if sqlTx, ok := From(ctx); ok {
		return sqlTx
	}
	return db
}
