package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PassStatus is the derived lifecycle state of a pass.  The value stored
// in passes.processing_status is a cache of the derivation and is
// recomputed whenever the pass or its cancellation changes.
type PassStatus string

const (
	PassStatusFuture    PassStatus = "FU"
	PassStatusCurrent   PassStatus = "CU"
	PassStatusExpired   PassStatus = "EX"
	PassStatusCancelled PassStatus = "CA"
)

// Display returns the human readable status label.
func (s PassStatus) Display() string {
	switch s {
	case PassStatusFuture:
		return "Future"
	case PassStatusCurrent:
		return "Current"
	case PassStatusExpired:
		return "Expired"
	case PassStatusCancelled:
		return "Cancelled"
	}
	return "Unknown"
}

// Pass is a purchased (or in-cart) park entry entitlement.  The selected
// option is immutable after creation.  DateExpiry is always derived from
// DateStart plus the option duration and PassNumber is assigned once,
// after the row first receives its identity.
//
// Fields:
//  ID                   – primary key identifier.
//  UserID               – purchasing customer (nil for retailer sales).
//  OptionID             – selected pricing option (protected reference).
//  PassNumber           – "PP" + six digit zero padded id, nil until assigned.
//  FirstName..Postcode  – holder contact details.
//  VehicleRegistration* – optional vehicle registrations printed on the pass.
//  SoldVia              – retailer group that sold the pass (nil for online sales).
//  DateStart/DateExpiry – validity period (dates, UTC).
//  RenewAutomatically   – auto-renewal flag.
//  ProcessingStatus     – cached derived status.
//  InCart               – true until the pass has been checked out.
//  PurchaseEmailSent    – purchase notification has been delivered.
//  DocumentKey          – object store key of the generated pass document.
type Pass struct {
	ID                           uint64     `json:"id"`
	UserID                       *uint64    `json:"user_id,omitempty"`
	OptionID                     uint64     `json:"option_id"`
	PassNumber                   *string    `json:"pass_number"`
	FirstName                    string     `json:"first_name"`
	LastName                     string     `json:"last_name"`
	Email                        string     `json:"email"`
	Mobile                       string     `json:"mobile"`
	Company                      *string    `json:"company,omitempty"`
	AddressLine1                 *string    `json:"address_line_1,omitempty"`
	AddressLine2                 *string    `json:"address_line_2,omitempty"`
	Suburb                       *string    `json:"suburb,omitempty"`
	State                        *string    `json:"state,omitempty"`
	Postcode                     *string    `json:"postcode,omitempty"`
	RacMemberNumber              *string    `json:"rac_member_number,omitempty"`
	VehicleRegistration1         *string    `json:"vehicle_registration_1,omitempty"`
	VehicleRegistration2         *string    `json:"vehicle_registration_2,omitempty"`
	DriversLicenceNumber         *string    `json:"drivers_licence_number,omitempty"`
	SoldVia                      *uint64    `json:"sold_via,omitempty"`
	DateStart                    time.Time  `json:"date_start"`
	DateExpiry                   time.Time  `json:"date_expiry"`
	RenewAutomatically           bool       `json:"renew_automatically"`
	PreventFurtherVehicleUpdates bool       `json:"prevent_further_vehicle_updates"`
	ProcessingStatus             PassStatus `json:"processing_status"`
	InCart                       bool       `json:"in_cart"`
	PurchaseEmailSent            bool       `json:"purchase_email_sent"`
	DocumentKey                  *string    `json:"document_key,omitempty"`
	CreatedAt                    time.Time  `json:"created_at"`
	UpdatedAt                    time.Time  `json:"updated_at"`

	// Relations loaded by PassRepo.  Nil means "not attached".
	Option             *PricingOption      `json:"option,omitempty"`
	PricingWindow      *PricingWindow      `json:"-"`
	PassType           *PassType           `json:"pass_type,omitempty"`
	Cancellation       *PassCancellation   `json:"cancellation,omitempty"`
	ConcessionUsage    *ConcessionUsage    `json:"concession_usage,omitempty"`
	DiscountCodeUsage  *DiscountCodeUsage  `json:"discount_code_usage,omitempty"`
	VoucherTransaction *VoucherTransaction `json:"voucher_transaction,omitempty"`
}

// FullName joins the holder's first and last names.
func (p Pass) FullName() string { return p.FirstName + " " + p.LastName }

// Price is the undiscounted price of the selected option.
func (p Pass) Price() decimal.Decimal {
	if p.Option == nil {
		return decimal.Zero
	}
	return p.Option.Price
}

// PassCancellation records why a pass was cancelled.  There is at most one
// cancellation per pass (UNIQUE pass_id).
type PassCancellation struct {
	ID                 uint64    `json:"id"`
	PassID             uint64    `json:"pass_id"`
	CancellationReason string    `json:"cancellation_reason"`
	DatetimeCancelled  time.Time `json:"datetime_cancelled"`
}

// PassTemplate is an uploaded background image used to render pass
// documents.  The highest version wins.
type PassTemplate struct {
	ID        uint64    `json:"id"`
	Version   int       `json:"version"`
	ObjectKey string    `json:"object_key"`
	CreatedAt time.Time `json:"created_at"`
}
