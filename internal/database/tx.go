package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

type txKey struct{}

// WithTx runs fn inside a transaction carried by ctx. Repositories pick it up
// through Querier. Nested calls join the outer transaction. Any error from fn
// rolls everything back.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) (txErr error) {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if txErr != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				slog.Error("transaction rollback failed", "error", rbErr)
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			txErr = fmt.Errorf("commit transaction: %w", commitErr)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, tx))
}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok && tx != nil
}
