package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrStorage marks failures of the persistence layer itself (connectivity,
// serialization conflicts, driver errors). Callers may retry these with
// backoff; business-rule errors are never wrapped with it.
var ErrStorage = errors.New("storage error")

// StorageErr wraps err with ErrStorage and the failing operation.
func StorageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

// TxFunc is a unit of work executed inside a single database transaction.
type TxFunc func(ctx context.Context, tx *sqlx.Tx) error

// WithTx runs fn in a READ COMMITTED transaction. The transaction is rolled
// back when fn returns an error or panics and committed otherwise. Errors
// returned by fn are passed through untouched.
func WithTx(ctx context.Context, db *sqlx.DB, fn TxFunc) (err error) {
	if db == nil {
		return StorageErr("begin tx", errors.New("postgres pool is nil"))
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return StorageErr("begin tx", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return StorageErr("commit tx", err)
	}
	return nil
}
