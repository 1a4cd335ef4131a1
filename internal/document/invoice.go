package document

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/park-passes/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var docTemplates = template.Must(template.New("").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format("02/01/2006") },
}).ParseFS(templateFS, "templates/*.html"))

// InvoiceLine is one pass on a retailer invoice.
type InvoiceLine struct {
	PassNumber string
	PassType   string
	Holder     string
	Sold       time.Time
	Price      decimal.Decimal
}

// PassTypeTotal aggregates the sales of one pass type.
type PassTypeTotal struct {
	PassType string
	Count    int
	Sales    decimal.Decimal
}

// Invoice is everything printed on a retailer invoice and sales report.
type Invoice struct {
	UUID                 string
	Organisation         string
	Group                model.RetailerGroup
	PeriodStart          time.Time
	PeriodEnd            time.Time
	Generated            time.Time
	Lines                []InvoiceLine
	ByPassType           []PassTypeTotal
	TotalSales           decimal.Decimal
	CommissionPercentage decimal.Decimal
	CommissionAmount     decimal.Decimal
	TotalPayable         decimal.Decimal
}

// RenderInvoice renders the invoice HTML.
func RenderInvoice(inv Invoice) ([]byte, error) { return render("invoice.html", inv) }

// RenderReport renders the sales report HTML.
func RenderReport(inv Invoice) ([]byte, error) { return render("report.html", inv) }

func render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := docTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("document: render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// InvoiceKeys are the object keys of a group's invoice and report for a
// month.
func InvoiceKeys(groupID uint64, year, month int) (invoice, report string) {
	base := fmt.Sprintf("retailers/%d/%04d-%02d", groupID, year, month)
	return base + "/invoice.html", base + "/report.html"
}
