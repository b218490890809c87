package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportRow is one flattened batch as read by reporting and charting tools.
type ReportRow struct {
	Name      string
	Quantity  int
	UnitCost  decimal.Decimal
	UnitPrice decimal.Decimal
	Expiry    *time.Time
	Expired   bool
}

// ItemSummary aggregates the batches of one item.
type ItemSummary struct {
	Name          string
	Quantity      int
	Batches       int
	NearestExpiry *time.Time
	CostValue     decimal.Decimal
	PriceValue    decimal.Decimal
}

// Report is a point-in-time view of the ledger.
type Report struct {
	GeneratedAt time.Time
	Rows        []ReportRow
	Items       []ItemSummary
	BatchCount  int
	TotalCost   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// BuildReport flattens the ledger. Batches dated before asOf are flagged expired.
func BuildReport(l *Ledger, asOf time.Time) Report {
	report := Report{GeneratedAt: asOf}
	for _, name := range l.Names() {
		batches := l.BatchesNamed(name)
		summary := ItemSummary{Name: name, Batches: len(batches)}
		for _, b := range batches {
			report.Rows = append(report.Rows, ReportRow{
				Name:      b.Name,
				Quantity:  b.Quantity,
				UnitCost:  b.UnitCost,
				UnitPrice: b.UnitPrice,
				Expiry:    b.Expiry,
				Expired:   b.ExpiresBefore(asOf),
			})
			summary.Quantity += b.Quantity
			summary.CostValue = summary.CostValue.Add(b.CostValue())
			summary.PriceValue = summary.PriceValue.Add(b.PriceValue())
			if summary.NearestExpiry == nil && b.Expiry != nil {
				summary.NearestExpiry = b.Expiry
			}
		}
		report.Items = append(report.Items, summary)
		report.BatchCount += len(batches)
		report.TotalCost = report.TotalCost.Add(summary.CostValue)
		report.TotalPrice = report.TotalPrice.Add(summary.PriceValue)
	}
	return report
}
