package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/park-passes/internal/model"
)

// VoucherTransactionRepo is the append-only ledger of voucher credits and
// debits.  At most one transaction may pay for a given pass.
type VoucherTransactionRepo struct{ DB *sql.DB }

func NewVoucherTransactionRepo(db *sql.DB) *VoucherTransactionRepo {
	return &VoucherTransactionRepo{DB: db}
}

const voucherTxnCols = "id, voucher_id, pass_id, credit, debit, datetime_created"

// ListByVoucherTx returns the ledger of one voucher in insertion order.
// Inside a transaction the rows are locked so balance checks and inserts
// see a stable ledger.
func (r *VoucherTransactionRepo) ListByVoucherTx(ctx context.Context, tx *sql.Tx, voucherID uint64) ([]model.VoucherTransaction, error) {
	q := forUpdate("SELECT "+voucherTxnCols+" FROM voucher_transactions WHERE voucher_id = ? ORDER BY id", tx)
	return r.query(ctx, conn(r.DB, tx), q, voucherID)
}

// List returns transactions, optionally for one voucher.
func (r *VoucherTransactionRepo) List(ctx context.Context, voucherID *uint64) ([]model.VoucherTransaction, error) {
	q := "SELECT " + voucherTxnCols + " FROM voucher_transactions"
	var args []any
	if voucherID != nil {
		q += " WHERE voucher_id = ?"
		args = append(args, *voucherID)
	}
	q += " ORDER BY id DESC LIMIT 500"
	return r.query(ctx, r.DB, q, args...)
}

func (r *VoucherTransactionRepo) query(ctx context.Context, db dbtx, q string, args ...any) ([]model.VoucherTransaction, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.VoucherTransaction
	for rows.Next() {
		var t model.VoucherTransaction
		if err := rows.Scan(&t.ID, &t.VoucherID, &t.PassID, &t.Credit, &t.Debit, &t.DatetimeCreated); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertTx appends t to the ledger.  A second transaction for the same
// pass yields ErrDuplicate.
func (r *VoucherTransactionRepo) InsertTx(ctx context.Context, tx *sql.Tx, t *model.VoucherTransaction) error {
	res, err := conn(r.DB, tx).ExecContext(ctx,
		"INSERT INTO voucher_transactions (voucher_id, pass_id, credit, debit) VALUES (?, ?, ?, ?)",
		t.VoucherID, t.PassID, t.Credit.Round(2), t.Debit.Round(2))
	if err != nil {
		return translate(err)
	}
	t.ID, err = lastID(res)
	return err
}
