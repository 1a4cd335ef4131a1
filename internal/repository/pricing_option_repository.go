package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/park-passes/internal/model"
)

// PricingOptionRepo accesses pricing_options.  Options cascade with their
// window but cannot be deleted while a pass references them.
type PricingOptionRepo struct{ DB *sql.DB }

func NewPricingOptionRepo(db *sql.DB) *PricingOptionRepo { return &PricingOptionRepo{DB: db} }

const optionCols = "id, pricing_window_id, name, duration, price, created_at"

func scanOption(s interface{ Scan(...any) error }, o *model.PricingOption) error {
	return s.Scan(&o.ID, &o.PricingWindowID, &o.Name, &o.Duration, &o.Price, &o.CreatedAt)
}

// List returns options ordered by price, optionally for one window.
func (r *PricingOptionRepo) List(ctx context.Context, windowID *uint64) ([]model.PricingOption, error) {
	q := "SELECT " + optionCols + " FROM pricing_options"
	var args []any
	if windowID != nil {
		q += " WHERE pricing_window_id = ?"
		args = append(args, *windowID)
	}
	q += " ORDER BY pricing_window_id, price, id"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PricingOption
	for rows.Next() {
		var o model.PricingOption
		if err := scanOption(rows, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetByIDTx fetches one option.
func (r *PricingOptionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.PricingOption, error) {
	var o model.PricingOption
	row := conn(r.DB, tx).QueryRowContext(ctx, "SELECT "+optionCols+" FROM pricing_options WHERE id = ?", id)
	if err := scanOption(row, &o); err != nil {
		return o, notFound(err)
	}
	return o, nil
}

// Create inserts o and sets its id.
func (r *PricingOptionRepo) Create(ctx context.Context, o *model.PricingOption) error {
	return insertOption(ctx, r.DB, o)
}

func insertOption(ctx context.Context, db dbtx, o *model.PricingOption) error {
	res, err := db.ExecContext(ctx,
		"INSERT INTO pricing_options (pricing_window_id, name, duration, price) VALUES (?, ?, ?, ?)",
		o.PricingWindowID, o.Name, o.Duration, o.Price.Round(2))
	if err != nil {
		return translate(err)
	}
	o.ID, err = lastID(res)
	return err
}

// Delete removes an option.  ErrProtected when passes reference it.
func (r *PricingOptionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM pricing_options WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}
