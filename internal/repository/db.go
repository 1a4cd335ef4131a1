package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// dbtx is the subset of *sql.DB and *sql.Tx the repositories use.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn picks the transaction when one is given.
func conn(db *sql.DB, tx *sql.Tx) dbtx {
	if tx != nil {
		return tx
	}
	return db
}

// notFound converts sql.ErrNoRows into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// lastID returns the AUTO_INCREMENT id of an insert.
func lastID(res sql.Result) (uint64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// expectOne turns "0 rows affected" into ErrNotFound.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// placeholders renders "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// forUpdate appends a row lock when running inside a transaction.
func forUpdate(q string, tx *sql.Tx) string {
	if tx != nil {
		return q + " FOR UPDATE"
	}
	return q
}
