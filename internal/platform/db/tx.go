package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"

	// maxTxAttempts bounds how often a transaction that lost a
	// serialization race is replayed.
	maxTxAttempts = 3
)

// Beginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithTx runs fn in a repeatable-read transaction. Shipment transitions and
// branch ownership changes rely on it to read and write a consistent row set.
// A transaction aborted by a serialization failure or deadlock is replayed,
// so fn must not have side effects outside tx.
func WithTx(ctx context.Context, b Beginner, fn func(pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = runTx(ctx, b, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, fn)
		if !IsSerializationFailure(err) || ctx.Err() != nil {
			return err
		}
	}
	return fmt.Errorf("platform/db: gave up after %d attempts: %w", maxTxAttempts, err)
}

func runTx(ctx context.Context, b Beginner, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := b.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}
	return nil
}

// IsSerializationFailure reports whether err aborted a transaction that may
// succeed if replayed.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected
}
