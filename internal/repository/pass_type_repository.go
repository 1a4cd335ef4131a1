package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/park-passes/internal/model"
)

// PassTypeRepo provides CRUD access to the pass_types table.
type PassTypeRepo struct{ DB *sql.DB }

func NewPassTypeRepo(db *sql.DB) *PassTypeRepo { return &PassTypeRepo{DB: db} }

const passTypeCols = `id, name, display_name, description, oracle_code, display_order,
	display_retailer, display_externally, created_at, updated_at`

func scanPassType(s interface{ Scan(...any) error }, t *model.PassType) error {
	return s.Scan(&t.ID, &t.Name, &t.DisplayName, &t.Description, &t.OracleCode, &t.DisplayOrder,
		&t.DisplayRetailer, &t.DisplayExternally, &t.CreatedAt, &t.UpdatedAt)
}

// PassTypeVisibility narrows List to the pass types a caller may see.
type PassTypeVisibility int

const (
	VisibleToAll PassTypeVisibility = iota
	VisibleToRetailers
	VisibleExternally
)

// List returns the pass types visible at the given level, ordered by
// display_order.
func (r *PassTypeRepo) List(ctx context.Context, vis PassTypeVisibility) ([]model.PassType, error) {
	q := "SELECT " + passTypeCols + " FROM pass_types"
	switch vis {
	case VisibleToRetailers:
		q += " WHERE display_retailer = 1"
	case VisibleExternally:
		q += " WHERE display_externally = 1"
	}
	q += " ORDER BY display_order, id"
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PassType
	for rows.Next() {
		var t model.PassType
		if err := scanPassType(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetByID fetches a single pass type.
func (r *PassTypeRepo) GetByID(ctx context.Context, id uint64) (model.PassType, error) {
	var t model.PassType
	row := r.DB.QueryRowContext(ctx, "SELECT "+passTypeCols+" FROM pass_types WHERE id = ?", id)
	if err := scanPassType(row, &t); err != nil {
		return t, notFound(err)
	}
	return t, nil
}

// Create inserts t and sets its id.  Duplicate names or oracle codes yield
// ErrDuplicate.
func (r *PassTypeRepo) Create(ctx context.Context, t *model.PassType) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO pass_types (name, display_name, description, oracle_code, display_order, display_retailer, display_externally)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.DisplayName, t.Description, t.OracleCode, t.DisplayOrder, t.DisplayRetailer, t.DisplayExternally)
	if err != nil {
		return translate(err)
	}
	t.ID, err = lastID(res)
	return err
}

// Update overwrites the mutable columns of t.
func (r *PassTypeRepo) Update(ctx context.Context, t *model.PassType) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE pass_types SET display_name = ?, description = ?, oracle_code = ?, display_order = ?,
		 display_retailer = ?, display_externally = ? WHERE id = ?`,
		t.DisplayName, t.Description, t.OracleCode, t.DisplayOrder, t.DisplayRetailer, t.DisplayExternally, t.ID)
	if err != nil {
		return translate(err)
	}
	// MySQL reports 0 affected rows when nothing changed, so confirm existence
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.GetByID(ctx, t.ID)
		return err
	}
	return nil
}
