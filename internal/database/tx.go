package database

import (
	"context"
	"database/sql"
)

// Transactor runs a function inside a database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// SQLTransactor is the *sql.DB backed Transactor.
type SQLTransactor struct {
	DB *sql.DB
}

func NewTransactor(db *sql.DB) *SQLTransactor { return &SQLTransactor{DB: db} }

// WithinTx begins a transaction, runs fn and commits.  Any error from fn,
// or a panic, rolls the transaction back.
func (t *SQLTransactor) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
