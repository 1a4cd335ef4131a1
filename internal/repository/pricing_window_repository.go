package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/park-passes/internal/model"
)

// PricingWindowRepo accesses pricing_windows together with their options.
// Every read attaches the window's option set since the resolution rules
// compare option shapes.
type PricingWindowRepo struct{ DB *sql.DB }

func NewPricingWindowRepo(db *sql.DB) *PricingWindowRepo { return &PricingWindowRepo{DB: db} }

const windowCols = "id, pass_type_id, name, date_start, date_expiry, created_at"

func scanWindow(s interface{ Scan(...any) error }, w *model.PricingWindow) error {
	return s.Scan(&w.ID, &w.PassTypeID, &w.Name, &w.DateStart, &w.DateExpiry, &w.CreatedAt)
}

// List returns every window, optionally restricted to one pass type.
func (r *PricingWindowRepo) List(ctx context.Context, passTypeID *uint64) ([]model.PricingWindow, error) {
	q := "SELECT " + windowCols + " FROM pricing_windows"
	var args []any
	if passTypeID != nil {
		q += " WHERE pass_type_id = ?"
		args = append(args, *passTypeID)
	}
	q += " ORDER BY pass_type_id, date_start, id"
	return r.query(ctx, r.DB, q, args...)
}

// ListByPassTypeTx returns the windows of one pass type.  Inside a
// transaction the rows are locked so concurrent window writes serialise.
func (r *PricingWindowRepo) ListByPassTypeTx(ctx context.Context, tx *sql.Tx, passTypeID uint64) ([]model.PricingWindow, error) {
	q := forUpdate("SELECT "+windowCols+" FROM pricing_windows WHERE pass_type_id = ? ORDER BY date_start, id", tx)
	return r.query(ctx, conn(r.DB, tx), q, passTypeID)
}

// GetByID fetches one window with its options.
func (r *PricingWindowRepo) GetByID(ctx context.Context, id uint64) (model.PricingWindow, error) {
	ws, err := r.query(ctx, r.DB, "SELECT "+windowCols+" FROM pricing_windows WHERE id = ?", id)
	if err != nil {
		return model.PricingWindow{}, err
	}
	if len(ws) == 0 {
		return model.PricingWindow{}, ErrNotFound
	}
	return ws[0], nil
}

func (r *PricingWindowRepo) query(ctx context.Context, db dbtx, q string, args ...any) ([]model.PricingWindow, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var out []model.PricingWindow
	for rows.Next() {
		var w model.PricingWindow
		if err := scanWindow(rows, &w); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachOptions(ctx, db, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachOptions loads the options of all windows in one query.
func attachOptions(ctx context.Context, db dbtx, windows []model.PricingWindow) error {
	if len(windows) == 0 {
		return nil
	}
	ids := make([]any, len(windows))
	index := make(map[uint64]int, len(windows))
	for i, w := range windows {
		ids[i] = w.ID
		index[w.ID] = i
		windows[i].Options = []model.PricingOption{}
	}
	rows, err := db.QueryContext(ctx,
		"SELECT "+optionCols+" FROM pricing_options WHERE pricing_window_id IN ("+placeholders(len(ids))+") ORDER BY price, id",
		ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var o model.PricingOption
		if err := scanOption(rows, &o); err != nil {
			return err
		}
		i := index[o.PricingWindowID]
		windows[i].Options = append(windows[i].Options, o)
	}
	return rows.Err()
}

// CreateTx inserts w and any options it carries.  A second default window
// for the pass type trips the unique default_for key and yields
// ErrDuplicate.
func (r *PricingWindowRepo) CreateTx(ctx context.Context, tx *sql.Tx, w *model.PricingWindow) error {
	db := conn(r.DB, tx)
	res, err := db.ExecContext(ctx,
		"INSERT INTO pricing_windows (pass_type_id, name, date_start, date_expiry) VALUES (?, ?, ?, ?)",
		w.PassTypeID, w.Name, model.DateOf(w.DateStart), dateOrNil(w.DateExpiry))
	if err != nil {
		return translate(err)
	}
	if w.ID, err = lastID(res); err != nil {
		return err
	}
	for i := range w.Options {
		w.Options[i].PricingWindowID = w.ID
		if err := insertOption(ctx, db, &w.Options[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTx rewrites the name and dates of a window.
func (r *PricingWindowRepo) UpdateTx(ctx context.Context, tx *sql.Tx, w *model.PricingWindow) error {
	_, err := conn(r.DB, tx).ExecContext(ctx,
		"UPDATE pricing_windows SET name = ?, date_start = ?, date_expiry = ? WHERE id = ?",
		w.Name, model.DateOf(w.DateStart), dateOrNil(w.DateExpiry), w.ID)
	return translate(err)
}

// Delete removes a window and, by cascade, its options.  Options still
// referenced by passes make the delete fail with ErrProtected.
func (r *PricingWindowRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM pricing_windows WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}

// dateOrNil truncates an optional date for a DATE column.
func dateOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return model.DateOf(*t)
}
