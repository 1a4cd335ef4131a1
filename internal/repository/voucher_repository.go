package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/park-passes/internal/model"
)

// VoucherRepo persists gift vouchers.  vouchers.code is UNIQUE; an insert
// that collides returns ErrDuplicate and the caller draws a new code.
type VoucherRepo struct{ DB *sql.DB }

func NewVoucherRepo(db *sql.DB) *VoucherRepo { return &VoucherRepo{DB: db} }

const voucherCols = `id, voucher_number, purchaser_id, recipient_name, recipient_email, datetime_to_email,
	personal_message, amount, expiry, code, pin, processing_status, in_cart, datetime_purchased, datetime_updated`

func scanVoucher(s interface{ Scan(...any) error }, v *model.Voucher) error {
	return s.Scan(&v.ID, &v.VoucherNumber, &v.PurchaserID, &v.RecipientName, &v.RecipientEmail, &v.DatetimeToEmail,
		&v.PersonalMessage, &v.Amount, &v.Expiry, &v.Code, &v.Pin, &v.ProcessingStatus, &v.InCart,
		&v.DatetimePurchased, &v.DatetimeUpdated)
}

func (r *VoucherRepo) queryVouchers(ctx context.Context, q string, args ...any) ([]model.Voucher, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Voucher
	for rows.Next() {
		var v model.Voucher
		if err := scanVoucher(rows, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// InsertTx inserts v and sets its id.
func (r *VoucherRepo) InsertTx(ctx context.Context, tx *sql.Tx, v *model.Voucher) error {
	res, err := conn(r.DB, tx).ExecContext(ctx, `INSERT INTO vouchers
		(purchaser_id, recipient_name, recipient_email, datetime_to_email, personal_message,
		 amount, expiry, code, pin, processing_status, in_cart)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		v.PurchaserID, v.RecipientName, v.RecipientEmail, v.DatetimeToEmail, v.PersonalMessage,
		v.Amount.Round(2), v.Expiry, v.Code, v.Pin, string(v.ProcessingStatus), v.InCart)
	if err != nil {
		return translate(err)
	}
	v.ID, err = lastID(res)
	return err
}

// SetVoucherNumberTx stores the voucher number once the id is known.
func (r *VoucherRepo) SetVoucherNumberTx(ctx context.Context, tx *sql.Tx, id uint64, number string) error {
	_, err := conn(r.DB, tx).ExecContext(ctx,
		"UPDATE vouchers SET voucher_number = ? WHERE id = ? AND voucher_number IS NULL", number, id)
	return translate(err)
}

// CodeExists reports whether a voucher already uses code.
func (r *VoucherRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM vouchers WHERE code = ?", code).Scan(&n)
	return n > 0, err
}

// GetByIDTx fetches a voucher, locking it inside a transaction.
func (r *VoucherRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Voucher, error) {
	var v model.Voucher
	q := forUpdate("SELECT "+voucherCols+" FROM vouchers WHERE id = ?", tx)
	if err := scanVoucher(conn(r.DB, tx).QueryRowContext(ctx, q, id), &v); err != nil {
		return v, notFound(err)
	}
	return v, nil
}

// GetByCodeTx fetches a voucher by code, locking it inside a transaction.
func (r *VoucherRepo) GetByCodeTx(ctx context.Context, tx *sql.Tx, code string) (model.Voucher, error) {
	var v model.Voucher
	q := forUpdate("SELECT "+voucherCols+" FROM vouchers WHERE code = ?", tx)
	if err := scanVoucher(conn(r.DB, tx).QueryRowContext(ctx, q, strings.ToUpper(code)), &v); err != nil {
		return v, notFound(err)
	}
	return v, nil
}

// FindRedeemable looks up a purchased, delivered voucher by recipient
// email, code and pin.  Anything else is ErrNotFound.
func (r *VoucherRepo) FindRedeemable(ctx context.Context, email, code, pin string) (model.Voucher, error) {
	var v model.Voucher
	err := scanVoucher(r.DB.QueryRowContext(ctx,
		"SELECT "+voucherCols+` FROM vouchers
		 WHERE recipient_email = ? AND code = ? AND pin = ? AND in_cart = 0 AND processing_status = ?`,
		strings.ToLower(strings.TrimSpace(email)), strings.ToUpper(code), pin, string(model.VoucherStatusDelivered)), &v)
	if err != nil {
		return v, notFound(err)
	}
	return v, nil
}

// VoucherFilter narrows List.
type VoucherFilter struct {
	PurchaserID *uint64
	Status      *model.VoucherStatus
	ToEmailFrom *time.Time
	ToEmailTo   *time.Time
	Limit       int
	Offset      int
}

// List returns vouchers matching f, newest first.
func (r *VoucherRepo) List(ctx context.Context, f VoucherFilter) ([]model.Voucher, error) {
	var (
		where []string
		args  []any
	)
	if f.PurchaserID != nil {
		where = append(where, "purchaser_id = ?")
		args = append(args, *f.PurchaserID)
	}
	if f.Status != nil {
		where = append(where, "processing_status = ?")
		args = append(args, string(*f.Status))
	}
	if f.ToEmailFrom != nil {
		where = append(where, "datetime_to_email >= ?")
		args = append(args, *f.ToEmailFrom)
	}
	if f.ToEmailTo != nil {
		where = append(where, "datetime_to_email < ?")
		args = append(args, *f.ToEmailTo)
	}
	q := "SELECT " + voucherCols + " FROM vouchers"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q += " ORDER BY datetime_purchased DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)
	return r.queryVouchers(ctx, q, args...)
}

// ListDueForEmail returns purchased vouchers scheduled for delivery on day
// that have not been delivered yet.
func (r *VoucherRepo) ListDueForEmail(ctx context.Context, day time.Time) ([]model.Voucher, error) {
	from := model.DateOf(day)
	return r.queryVouchers(ctx,
		"SELECT "+voucherCols+` FROM vouchers
		 WHERE in_cart = 0 AND datetime_to_email >= ? AND datetime_to_email < ? AND processing_status IN (?, ?)
		 ORDER BY id`,
		from, from.AddDate(0, 0, 1), string(model.VoucherStatusNew), string(model.VoucherStatusNotDelivered))
}

// UpdateTx rewrites the recipient details and cart state.
func (r *VoucherRepo) UpdateTx(ctx context.Context, tx *sql.Tx, v *model.Voucher) error {
	_, err := conn(r.DB, tx).ExecContext(ctx, `UPDATE vouchers SET
		recipient_name = ?, recipient_email = ?, datetime_to_email = ?, personal_message = ?, in_cart = ?
		WHERE id = ?`,
		v.RecipientName, v.RecipientEmail, v.DatetimeToEmail, v.PersonalMessage, v.InCart, v.ID)
	return err
}

// SetStatus records the delivery outcome of a voucher.
func (r *VoucherRepo) SetStatus(ctx context.Context, id uint64, status model.VoucherStatus) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE vouchers SET processing_status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}
