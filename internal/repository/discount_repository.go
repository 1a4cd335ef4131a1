package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/park-passes/internal/model"
)

// ConcessionRepo accesses the concessions catalogue.
type ConcessionRepo struct{ DB *sql.DB }

func NewConcessionRepo(db *sql.DB) *ConcessionRepo { return &ConcessionRepo{DB: db} }

// List returns concessions in display order.
func (r *ConcessionRepo) List(ctx context.Context) ([]model.Concession, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, concession_type, discount_percentage, display_order FROM concessions ORDER BY display_order, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Concession
	for rows.Next() {
		var c model.Concession
		if err := rows.Scan(&c.ID, &c.ConcessionType, &c.DiscountPercentage, &c.DisplayOrder); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByIDTx fetches one concession.
func (r *ConcessionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Concession, error) {
	var c model.Concession
	err := conn(r.DB, tx).QueryRowContext(ctx,
		"SELECT id, concession_type, discount_percentage, display_order FROM concessions WHERE id = ?", id).
		Scan(&c.ID, &c.ConcessionType, &c.DiscountPercentage, &c.DisplayOrder)
	return c, notFound(err)
}

// Create inserts c and sets its id.
func (r *ConcessionRepo) Create(ctx context.Context, c *model.Concession) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO concessions (concession_type, discount_percentage, display_order) VALUES (?, ?, ?)",
		c.ConcessionType, c.DiscountPercentage, c.DisplayOrder)
	if err != nil {
		return translate(err)
	}
	c.ID, err = lastID(res)
	return err
}

// DiscountCodeRepo accesses discount codes.
type DiscountCodeRepo struct{ DB *sql.DB }

func NewDiscountCodeRepo(db *sql.DB) *DiscountCodeRepo { return &DiscountCodeRepo{DB: db} }

const discountCodeCols = "id, code, discount_percentage, discount_amount, datetime_start, datetime_expiry, max_uses, times_used"

func scanDiscountCode(s interface{ Scan(...any) error }, d *model.DiscountCode) error {
	return s.Scan(&d.ID, &d.Code, &d.DiscountPercentage, &d.DiscountAmount, &d.DatetimeStart, &d.DatetimeExpiry, &d.MaxUses, &d.TimesUsed)
}

// List returns every discount code, most recent first.
func (r *DiscountCodeRepo) List(ctx context.Context) ([]model.DiscountCode, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+discountCodeCols+" FROM discount_codes ORDER BY datetime_start DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.DiscountCode
	for rows.Next() {
		var d model.DiscountCode
		if err := scanDiscountCode(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetByCodeTx fetches a code, locking it inside a transaction so the use
// counter cannot be overtaken.
func (r *DiscountCodeRepo) GetByCodeTx(ctx context.Context, tx *sql.Tx, code string) (model.DiscountCode, error) {
	var d model.DiscountCode
	q := forUpdate("SELECT "+discountCodeCols+" FROM discount_codes WHERE code = ?", tx)
	err := scanDiscountCode(conn(r.DB, tx).QueryRowContext(ctx, q, strings.ToUpper(strings.TrimSpace(code))), &d)
	return d, notFound(err)
}

// Create inserts d and sets its id.
func (r *DiscountCodeRepo) Create(ctx context.Context, d *model.DiscountCode) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO discount_codes (code, discount_percentage, discount_amount, datetime_start, datetime_expiry, max_uses) VALUES (?, ?, ?, ?, ?, ?)",
		strings.ToUpper(strings.TrimSpace(d.Code)), d.DiscountPercentage, d.DiscountAmount, d.DatetimeStart, d.DatetimeExpiry, d.MaxUses)
	if err != nil {
		return translate(err)
	}
	d.ID, err = lastID(res)
	return err
}
