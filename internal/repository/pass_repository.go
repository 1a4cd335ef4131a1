package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/park-passes/internal/model"
)

// PassRepo persists passes and the one-per-pass relations hanging off them
// (cancellation, concession usage, discount code usage).  Reads return the
// full aggregate: option, window, pass type and every attached relation,
// which is what the pricing and lifecycle rules need.
type PassRepo struct{ DB *sql.DB }

func NewPassRepo(db *sql.DB) *PassRepo { return &PassRepo{DB: db} }

const passSelect = `SELECT
	p.id, p.user_id, p.option_id, p.pass_number, p.first_name, p.last_name, p.email, p.mobile,
	p.company, p.address_line_1, p.address_line_2, p.suburb, p.state, p.postcode,
	p.rac_member_number, p.vehicle_registration_1, p.vehicle_registration_2, p.drivers_licence_number,
	p.sold_via, p.date_start, p.date_expiry, p.renew_automatically, p.prevent_further_vehicle_updates,
	p.processing_status, p.in_cart, p.purchase_email_sent, p.document_key, p.created_at, p.updated_at,
	o.id, o.pricing_window_id, o.name, o.duration, o.price, o.created_at,
	w.id, w.pass_type_id, w.name, w.date_start, w.date_expiry, w.created_at,
	t.id, t.name, t.display_name, t.description, t.oracle_code, t.display_order,
	t.display_retailer, t.display_externally, t.created_at, t.updated_at,
	c.id, c.cancellation_reason, c.datetime_cancelled,
	cu.id, cu.concession_id, cu.concession_card_number, cn.concession_type, cn.discount_percentage, cn.display_order,
	du.id, du.discount_code_id, dc.code, dc.discount_percentage, dc.discount_amount,
	dc.datetime_start, dc.datetime_expiry, dc.max_uses, dc.times_used,
	vt.id, vt.voucher_id, vt.credit, vt.debit, vt.datetime_created
FROM passes p
JOIN pricing_options o ON o.id = p.option_id
JOIN pricing_windows w ON w.id = o.pricing_window_id
JOIN pass_types t ON t.id = w.pass_type_id
LEFT JOIN pass_cancellations c ON c.pass_id = p.id
LEFT JOIN concession_usages cu ON cu.pass_id = p.id
LEFT JOIN concessions cn ON cn.id = cu.concession_id
LEFT JOIN discount_code_usages du ON du.pass_id = p.id
LEFT JOIN discount_codes dc ON dc.id = du.discount_code_id
LEFT JOIN voucher_transactions vt ON vt.pass_id = p.id`

// scanPass reads one row of passSelect into a fully attached pass.
func scanPass(s interface{ Scan(...any) error }) (model.Pass, error) {
	var (
		p                    model.Pass
		o                    model.PricingOption
		w                    model.PricingWindow
		t                    model.PassType
		cID                  *uint64
		cReason              *string
		cAt                  *time.Time
		cuID, cuConcessionID *uint64
		cuCard, cnType       *string
		cnPct                decimal.NullDecimal
		cnOrder              *int16
		duID, duCodeID       *uint64
		dcCode               *string
		dcPct, dcAmount      decimal.NullDecimal
		dcStart, dcExpiry    *time.Time
		dcMaxUses, dcUsed    *int
		vtID, vtVoucherID    *uint64
		vtCredit, vtDebit    decimal.NullDecimal
		vtAt                 *time.Time
	)
	err := s.Scan(
		&p.ID, &p.UserID, &p.OptionID, &p.PassNumber, &p.FirstName, &p.LastName, &p.Email, &p.Mobile,
		&p.Company, &p.AddressLine1, &p.AddressLine2, &p.Suburb, &p.State, &p.Postcode,
		&p.RacMemberNumber, &p.VehicleRegistration1, &p.VehicleRegistration2, &p.DriversLicenceNumber,
		&p.SoldVia, &p.DateStart, &p.DateExpiry, &p.RenewAutomatically, &p.PreventFurtherVehicleUpdates,
		&p.ProcessingStatus, &p.InCart, &p.PurchaseEmailSent, &p.DocumentKey, &p.CreatedAt, &p.UpdatedAt,
		&o.ID, &o.PricingWindowID, &o.Name, &o.Duration, &o.Price, &o.CreatedAt,
		&w.ID, &w.PassTypeID, &w.Name, &w.DateStart, &w.DateExpiry, &w.CreatedAt,
		&t.ID, &t.Name, &t.DisplayName, &t.Description, &t.OracleCode, &t.DisplayOrder,
		&t.DisplayRetailer, &t.DisplayExternally, &t.CreatedAt, &t.UpdatedAt,
		&cID, &cReason, &cAt,
		&cuID, &cuConcessionID, &cuCard, &cnType, &cnPct, &cnOrder,
		&duID, &duCodeID, &dcCode, &dcPct, &dcAmount, &dcStart, &dcExpiry, &dcMaxUses, &dcUsed,
		&vtID, &vtVoucherID, &vtCredit, &vtDebit, &vtAt,
	)
	if err != nil {
		return p, err
	}
	p.Option, p.PricingWindow, p.PassType = &o, &w, &t

	if cID != nil {
		p.Cancellation = &model.PassCancellation{ID: *cID, PassID: p.ID, CancellationReason: deref(cReason), DatetimeCancelled: derefTime(cAt)}
	}
	if cuID != nil {
		cu := &model.ConcessionUsage{ID: *cuID, PassID: p.ID, ConcessionCardNo: deref(cuCard)}
		if cuConcessionID != nil {
			cu.ConcessionID = *cuConcessionID
			cu.Concession = model.Concession{ID: *cuConcessionID, ConcessionType: deref(cnType), DiscountPercentage: cnPct.Decimal}
			if cnOrder != nil {
				cu.Concession.DisplayOrder = *cnOrder
			}
		}
		p.ConcessionUsage = cu
	}
	if duID != nil {
		du := &model.DiscountCodeUsage{ID: *duID, PassID: p.ID}
		if duCodeID != nil {
			du.DiscountCodeID = *duCodeID
			dc := model.DiscountCode{ID: *duCodeID, Code: deref(dcCode), DatetimeStart: derefTime(dcStart),
				DatetimeExpiry: derefTime(dcExpiry), MaxUses: dcMaxUses}
			if dcPct.Valid {
				dc.DiscountPercentage = &dcPct.Decimal
			}
			if dcAmount.Valid {
				dc.DiscountAmount = &dcAmount.Decimal
			}
			if dcUsed != nil {
				dc.TimesUsed = *dcUsed
			}
			du.DiscountCode = dc
		}
		p.DiscountCodeUsage = du
	}
	if vtID != nil {
		passID := p.ID
		p.VoucherTransaction = &model.VoucherTransaction{ID: *vtID, PassID: &passID,
			Credit: vtCredit.Decimal, Debit: vtDebit.Decimal, DatetimeCreated: derefTime(vtAt)}
		if vtVoucherID != nil {
			p.VoucherTransaction.VoucherID = *vtVoucherID
		}
	}
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (r *PassRepo) queryPasses(ctx context.Context, db dbtx, q string, args ...any) ([]model.Pass, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Pass
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByIDTx loads one pass aggregate.  Inside a transaction the pass row
// is locked.
func (r *PassRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Pass, error) {
	q := passSelect + " WHERE p.id = ?"
	if tx != nil {
		q += " FOR UPDATE OF p"
	}
	p, err := scanPass(conn(r.DB, tx).QueryRowContext(ctx, q, id))
	if err != nil {
		return p, notFound(err)
	}
	return p, nil
}

// GetByID loads one pass aggregate outside any transaction.
func (r *PassRepo) GetByID(ctx context.Context, id uint64) (model.Pass, error) {
	return r.GetByIDTx(ctx, nil, id)
}

// PassFilter narrows List.  Nil fields do not filter.
type PassFilter struct {
	UserID   *uint64
	SoldVia  *uint64
	PassType *uint64
	Status   *model.PassStatus
	InCart   *bool
	Limit    int
	Offset   int
}

// List returns pass aggregates matching f, newest first.
func (r *PassRepo) List(ctx context.Context, f PassFilter) ([]model.Pass, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != nil {
		where = append(where, "p.user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.SoldVia != nil {
		where = append(where, "p.sold_via = ?")
		args = append(args, *f.SoldVia)
	}
	if f.PassType != nil {
		where = append(where, "t.id = ?")
		args = append(args, *f.PassType)
	}
	if f.Status != nil {
		where = append(where, "p.processing_status = ?")
		args = append(args, string(*f.Status))
	}
	if f.InCart != nil {
		where = append(where, "p.in_cart = ?")
		args = append(args, *f.InCart)
	}
	q := passSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY p.created_at DESC, p.id DESC"
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)
	return r.queryPasses(ctx, r.DB, q, args...)
}

// ListExpiringOn returns purchased, non-cancelled passes whose expiry date
// equals day.
func (r *PassRepo) ListExpiringOn(ctx context.Context, day time.Time) ([]model.Pass, error) {
	return r.queryPasses(ctx, r.DB,
		passSelect+" WHERE p.date_expiry = ? AND p.in_cart = 0 AND c.id IS NULL ORDER BY p.id",
		model.DateOf(day))
}

// ListSoldViaBetween returns the purchased passes sold by a retailer group
// with a creation time in [from, to).
func (r *PassRepo) ListSoldViaBetween(ctx context.Context, groupID uint64, from, to time.Time) ([]model.Pass, error) {
	return r.queryPasses(ctx, r.DB,
		passSelect+" WHERE p.sold_via = ? AND p.in_cart = 0 AND p.created_at >= ? AND p.created_at < ? ORDER BY p.created_at, p.id",
		groupID, from, to)
}

// InsertTx inserts a new pass and sets its id.  The pass number is
// assigned separately once the id is known.
func (r *PassRepo) InsertTx(ctx context.Context, tx *sql.Tx, p *model.Pass) error {
	res, err := conn(r.DB, tx).ExecContext(ctx, `INSERT INTO passes (
		user_id, option_id, first_name, last_name, email, mobile, company,
		address_line_1, address_line_2, suburb, state, postcode, rac_member_number,
		vehicle_registration_1, vehicle_registration_2, drivers_licence_number, sold_via,
		date_start, date_expiry, renew_automatically, prevent_further_vehicle_updates,
		processing_status, in_cart, purchase_email_sent)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.UserID, p.OptionID, p.FirstName, p.LastName, p.Email, p.Mobile, p.Company,
		p.AddressLine1, p.AddressLine2, p.Suburb, p.State, p.Postcode, p.RacMemberNumber,
		p.VehicleRegistration1, p.VehicleRegistration2, p.DriversLicenceNumber, p.SoldVia,
		model.DateOf(p.DateStart), model.DateOf(p.DateExpiry), p.RenewAutomatically, p.PreventFurtherVehicleUpdates,
		string(p.ProcessingStatus), p.InCart, p.PurchaseEmailSent)
	if err != nil {
		return translate(err)
	}
	p.ID, err = lastID(res)
	return err
}

// SetPassNumberTx stores the pass number, only if none is assigned yet.
func (r *PassRepo) SetPassNumberTx(ctx context.Context, tx *sql.Tx, id uint64, number string) error {
	_, err := conn(r.DB, tx).ExecContext(ctx,
		"UPDATE passes SET pass_number = ? WHERE id = ? AND pass_number IS NULL", number, id)
	return translate(err)
}

// UpdateTx writes every mutable column of p.  The option is immutable and
// is not part of the statement.
func (r *PassRepo) UpdateTx(ctx context.Context, tx *sql.Tx, p *model.Pass) error {
	_, err := conn(r.DB, tx).ExecContext(ctx, `UPDATE passes SET
		first_name = ?, last_name = ?, email = ?, mobile = ?, company = ?,
		address_line_1 = ?, address_line_2 = ?, suburb = ?, state = ?, postcode = ?, rac_member_number = ?,
		vehicle_registration_1 = ?, vehicle_registration_2 = ?, drivers_licence_number = ?,
		date_start = ?, date_expiry = ?, renew_automatically = ?, prevent_further_vehicle_updates = ?,
		processing_status = ?, in_cart = ?
		WHERE id = ?`,
		p.FirstName, p.LastName, p.Email, p.Mobile, p.Company,
		p.AddressLine1, p.AddressLine2, p.Suburb, p.State, p.Postcode, p.RacMemberNumber,
		p.VehicleRegistration1, p.VehicleRegistration2, p.DriversLicenceNumber,
		model.DateOf(p.DateStart), model.DateOf(p.DateExpiry), p.RenewAutomatically, p.PreventFurtherVehicleUpdates,
		string(p.ProcessingStatus), p.InCart, p.ID)
	return translate(err)
}

// SetStatusTx updates the cached lifecycle status only.
func (r *PassRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.PassStatus) error {
	_, err := conn(r.DB, tx).ExecContext(ctx,
		"UPDATE passes SET processing_status = ? WHERE id = ?", string(status), id)
	return err
}

// MarkPurchaseEmailSent flags the purchase notification as delivered.
func (r *PassRepo) MarkPurchaseEmailSent(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE passes SET purchase_email_sent = 1 WHERE id = ?", id)
	return err
}

// SetDocumentKey records where the generated pass document was stored.
func (r *PassRepo) SetDocumentKey(ctx context.Context, id uint64, key string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE passes SET document_key = ? WHERE id = ?", key, id)
	return err
}

// CreateCancellationTx attaches a cancellation.  A pass can be cancelled
// once; a second attempt yields ErrDuplicate.
func (r *PassRepo) CreateCancellationTx(ctx context.Context, tx *sql.Tx, c *model.PassCancellation) error {
	if c.DatetimeCancelled.IsZero() {
		c.DatetimeCancelled = time.Now().UTC()
	}
	res, err := conn(r.DB, tx).ExecContext(ctx,
		"INSERT INTO pass_cancellations (pass_id, cancellation_reason, datetime_cancelled) VALUES (?, ?, ?)",
		c.PassID, c.CancellationReason, c.DatetimeCancelled)
	if err != nil {
		return translate(err)
	}
	c.ID, err = lastID(res)
	return err
}

// DeleteCancellationTx removes the cancellation of a pass.
func (r *PassRepo) DeleteCancellationTx(ctx context.Context, tx *sql.Tx, passID uint64) error {
	res, err := conn(r.DB, tx).ExecContext(ctx, "DELETE FROM pass_cancellations WHERE pass_id = ?", passID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// AttachConcessionTx records the concession applied to a pass.
func (r *PassRepo) AttachConcessionTx(ctx context.Context, tx *sql.Tx, u *model.ConcessionUsage) error {
	res, err := conn(r.DB, tx).ExecContext(ctx,
		"INSERT INTO concession_usages (pass_id, concession_id, concession_card_number) VALUES (?, ?, ?)",
		u.PassID, u.ConcessionID, u.ConcessionCardNo)
	if err != nil {
		return translate(err)
	}
	u.ID, err = lastID(res)
	return err
}

// AttachDiscountCodeTx records the discount code applied to a pass and
// counts the use against the code.
func (r *PassRepo) AttachDiscountCodeTx(ctx context.Context, tx *sql.Tx, u *model.DiscountCodeUsage) error {
	db := conn(r.DB, tx)
	res, err := db.ExecContext(ctx,
		"INSERT INTO discount_code_usages (pass_id, discount_code_id) VALUES (?, ?)",
		u.PassID, u.DiscountCodeID)
	if err != nil {
		return translate(err)
	}
	if u.ID, err = lastID(res); err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, "UPDATE discount_codes SET times_used = times_used + 1 WHERE id = ?", u.DiscountCodeID)
	return err
}
