package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/park-passes/internal/model"
)

// RetailerGroupRepo accesses retailer_groups.
type RetailerGroupRepo struct{ DB *sql.DB }

func NewRetailerGroupRepo(db *sql.DB) *RetailerGroupRepo { return &RetailerGroupRepo{DB: db} }

const retailerGroupCols = "id, name, commission_percentage, active, created_at"

// List returns every retailer group by name.
func (r *RetailerGroupRepo) List(ctx context.Context) ([]model.RetailerGroup, error) {
	return r.query(ctx, "SELECT "+retailerGroupCols+" FROM retailer_groups ORDER BY name")
}

// ListInvoiceable returns the active groups other than the group recording
// online sales.
func (r *RetailerGroupRepo) ListInvoiceable(ctx context.Context, excludeName string) ([]model.RetailerGroup, error) {
	return r.query(ctx, "SELECT "+retailerGroupCols+" FROM retailer_groups WHERE active = 1 AND name <> ? ORDER BY id", excludeName)
}

func (r *RetailerGroupRepo) query(ctx context.Context, q string, args ...any) ([]model.RetailerGroup, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RetailerGroup
	for rows.Next() {
		var g model.RetailerGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.CommissionPercentage, &g.Active, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetByID fetches one group.
func (r *RetailerGroupRepo) GetByID(ctx context.Context, id uint64) (model.RetailerGroup, error) {
	var g model.RetailerGroup
	err := r.DB.QueryRowContext(ctx, "SELECT "+retailerGroupCols+" FROM retailer_groups WHERE id = ?", id).
		Scan(&g.ID, &g.Name, &g.CommissionPercentage, &g.Active, &g.CreatedAt)
	return g, notFound(err)
}

// GetByName fetches one group by its unique name.
func (r *RetailerGroupRepo) GetByName(ctx context.Context, name string) (model.RetailerGroup, error) {
	var g model.RetailerGroup
	err := r.DB.QueryRowContext(ctx, "SELECT "+retailerGroupCols+" FROM retailer_groups WHERE name = ?", name).
		Scan(&g.ID, &g.Name, &g.CommissionPercentage, &g.Active, &g.CreatedAt)
	return g, notFound(err)
}

// Create inserts g and sets its id.
func (r *RetailerGroupRepo) Create(ctx context.Context, g *model.RetailerGroup) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO retailer_groups (name, commission_percentage, active) VALUES (?, ?, ?)",
		g.Name, g.CommissionPercentage, g.Active)
	if err != nil {
		return translate(err)
	}
	g.ID, err = lastID(res)
	return err
}

// ReportRepo stores the monthly invoice/report pair of each retailer group.
type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

// Upsert stores rep, replacing the documents of an existing report for the
// same group and month.  rep.ID and rep.UUID reflect the stored row.
func (r *ReportRepo) Upsert(ctx context.Context, rep *model.Report) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO reports (uuid, retailer_group_id, period_year, period_month, invoice_key, report_key)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE invoice_key = VALUES(invoice_key), report_key = VALUES(report_key)`,
		rep.UUID, rep.RetailerGroupID, rep.PeriodYear, rep.PeriodMonth, rep.InvoiceKey, rep.ReportKey)
	if err != nil {
		return err
	}
	return r.DB.QueryRowContext(ctx,
		"SELECT id, uuid, created_at FROM reports WHERE retailer_group_id = ? AND period_year = ? AND period_month = ?",
		rep.RetailerGroupID, rep.PeriodYear, rep.PeriodMonth).Scan(&rep.ID, &rep.UUID, &rep.CreatedAt)
}

// List returns reports newest first, optionally for one group.
func (r *ReportRepo) List(ctx context.Context, groupID *uint64) ([]model.Report, error) {
	q := "SELECT id, uuid, retailer_group_id, period_year, period_month, invoice_key, report_key, created_at FROM reports"
	var args []any
	if groupID != nil {
		q += " WHERE retailer_group_id = ?"
		args = append(args, *groupID)
	}
	q += " ORDER BY period_year DESC, period_month DESC, retailer_group_id"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Report
	for rows.Next() {
		var rep model.Report
		if err := rows.Scan(&rep.ID, &rep.UUID, &rep.RetailerGroupID, &rep.PeriodYear, &rep.PeriodMonth,
			&rep.InvoiceKey, &rep.ReportKey, &rep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// PassTemplateRepo tracks the uploaded pass template images.
type PassTemplateRepo struct{ DB *sql.DB }

func NewPassTemplateRepo(db *sql.DB) *PassTemplateRepo { return &PassTemplateRepo{DB: db} }

// Latest returns the template with the highest version.
func (r *PassTemplateRepo) Latest(ctx context.Context) (model.PassTemplate, error) {
	var t model.PassTemplate
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, version, object_key, created_at FROM pass_templates ORDER BY version DESC LIMIT 1").
		Scan(&t.ID, &t.Version, &t.ObjectKey, &t.CreatedAt)
	return t, notFound(err)
}

// List returns every template, newest version first.
func (r *PassTemplateRepo) List(ctx context.Context) ([]model.PassTemplate, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, version, object_key, created_at FROM pass_templates ORDER BY version DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PassTemplate
	for rows.Next() {
		var t model.PassTemplate
		if err := rows.Scan(&t.ID, &t.Version, &t.ObjectKey, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create stores t with the next version number.
func (r *PassTemplateRepo) Create(ctx context.Context, t *model.PassTemplate) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO pass_templates (version, object_key) SELECT COALESCE(MAX(version), 0) + 1, ? FROM pass_templates",
		t.ObjectKey)
	if err != nil {
		return translate(err)
	}
	if t.ID, err = lastID(res); err != nil {
		return err
	}
	return r.DB.QueryRowContext(ctx, "SELECT version, created_at FROM pass_templates WHERE id = ?", t.ID).
		Scan(&t.Version, &t.CreatedAt)
}
