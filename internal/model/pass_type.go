package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PassType is a category of pass (Annual, Holiday, Local ...).  Rows live
// in the `pass_types` table and are referenced by pricing windows, which in
// turn carry the purchasable options.
//
// Fields:
//  ID                – primary key identifier.
//  Name              – system name, reserved for internal use.
//  DisplayName       – name shown to customers and retailers.
//  Description       – optional rich-text description.
//  OracleCode        – optional finance system code (unique when set).
//  DisplayOrder      – ordering used when listing pass types.
//  DisplayRetailer   – visible to retailer users.
//  DisplayExternally – visible to customers and anonymous visitors.
type PassType struct {
	ID                uint64    `json:"id"`                    // pass_types.id
	Name              string    `json:"name"`                  // pass_types.name
	DisplayName       string    `json:"display_name"`          // pass_types.display_name
	Description       *string   `json:"description,omitempty"` // pass_types.description (nullable)
	OracleCode        *string   `json:"oracle_code,omitempty"` // pass_types.oracle_code (nullable)
	DisplayOrder      int16     `json:"display_order"`         // pass_types.display_order
	DisplayRetailer   bool      `json:"display_retailer"`      // pass_types.display_retailer
	DisplayExternally bool      `json:"display_externally"`    // pass_types.display_externally
	CreatedAt         time.Time `json:"created_at"`            // pass_types.created_at
	UpdatedAt         time.Time `json:"updated_at"`            // pass_types.updated_at
}

// PricingWindow is a time-bounded price list for one pass type.  A window
// without an expiry date is the default window of its pass type; at most
// one default window may exist per pass type.
type PricingWindow struct {
	ID         uint64     `json:"id"`           // pricing_windows.id
	PassTypeID uint64     `json:"pass_type_id"` // pricing_windows.pass_type_id
	Name       string     `json:"name"`         // pricing_windows.name
	DateStart  time.Time  `json:"date_start"`   // pricing_windows.date_start (DATE)
	DateExpiry *time.Time `json:"date_expiry"`  // pricing_windows.date_expiry (DATE, nullable)
	CreatedAt  time.Time  `json:"created_at"`

	// Options is populated by repositories that load the option set along
	// with the window.  It is nil when the options were not requested.
	Options []PricingOption `json:"options,omitempty"`
}

// IsDefault reports whether the window is the open-ended default window.
func (w PricingWindow) IsDefault() bool { return w.DateExpiry == nil }

// PricingOption is a duration/price pair offered by a pricing window
// (e.g. "14 days" for $120.00).
type PricingOption struct {
	ID              uint64          `json:"id"`                // pricing_options.id
	PricingWindowID uint64          `json:"pricing_window_id"` // pricing_options.pricing_window_id
	Name            string          `json:"name"`              // pricing_options.name
	Duration        int             `json:"duration"`          // pricing_options.duration (days)
	Price           decimal.Decimal `json:"price"`             // pricing_options.price DECIMAL(7,2)
	CreatedAt       time.Time       `json:"created_at"`
}
