package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RetailerGroup is an organisation that sells passes in person and is
// invoiced monthly, less its commission.
type RetailerGroup struct {
	ID                   uint64          `json:"id"`
	Name                 string          `json:"name"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	Active               bool            `json:"active"`
	CreatedAt            time.Time       `json:"created_at"`
}

// Report is the monthly invoice + sales report generated for a retailer
// group.  One row exists per group per month.
type Report struct {
	ID              uint64    `json:"id"`
	UUID            string    `json:"uuid"`
	RetailerGroupID uint64    `json:"retailer_group_id"`
	PeriodYear      int       `json:"period_year"`
	PeriodMonth     int       `json:"period_month"`
	InvoiceKey      string    `json:"invoice_key"`
	ReportKey       string    `json:"report_key"`
	CreatedAt       time.Time `json:"created_at"`
}
