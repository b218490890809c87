package mapper

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	invtypes "github.com/Apurer/stock-ledger/internal/domains/inventory/application/types"
	"github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
)

var errMissingQuantity = errors.New("quantity is required")

// Batch is the HTTP representation of a stored batch.
type Batch struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Expiry    string          `json:"expiry"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// AddBatch captures inbound payloads for receiving stock. Expiry is YYYY-MM-DD
// and may be omitted or "none" for undated stock.
type AddBatch struct {
	Name      string           `json:"name"`
	Quantity  int              `json:"quantity"`
	Expiry    string           `json:"expiry,omitempty"`
	UnitCost  *decimal.Decimal `json:"unitCost,omitempty"`
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
}

// EditBatch overwrites a batch quantity.
type EditBatch struct {
	Expiry   string `json:"expiry,omitempty"`
	Quantity *int   `json:"quantity"`
}

// ReportRow is one row of the flattened report.
type ReportRow struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Expiry    string          `json:"expiry"`
	Expired   bool            `json:"expired"`
}

// ItemSummary aggregates one item in the report.
type ItemSummary struct {
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	Batches       int             `json:"batches"`
	NearestExpiry string          `json:"nearestExpiry,omitempty"`
	CostValue     decimal.Decimal `json:"costValue"`
	PriceValue    decimal.Decimal `json:"priceValue"`
}

// Report is the HTTP representation of the ledger report.
type Report struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	BatchCount  int             `json:"batchCount"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Items       []ItemSummary   `json:"items"`
	Rows        []ReportRow     `json:"rows"`
}

// StockCount answers a per-item stock query.
type StockCount struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ToAddBatchInput maps an inbound payload to the application input.
func ToAddBatchInput(payload AddBatch) (invtypes.AddBatchInput, error) {
	expiry, err := domain.ParseExpiry(payload.Expiry)
	if err != nil {
		return invtypes.AddBatchInput{}, err
	}
	input := invtypes.AddBatchInput{
		Name:     payload.Name,
		Quantity: payload.Quantity,
		Expiry:   expiry,
	}
	if payload.UnitCost != nil {
		input.UnitCost = *payload.UnitCost
	}
	if payload.UnitPrice != nil {
		input.UnitPrice = *payload.UnitPrice
	}
	return input, nil
}

// ToEditBatchInput maps an edit payload addressed by the item name path segment.
func ToEditBatchInput(name string, payload EditBatch) (invtypes.EditBatchInput, error) {
	if payload.Quantity == nil {
		return invtypes.EditBatchInput{}, errMissingQuantity
	}
	expiry, err := domain.ParseExpiry(payload.Expiry)
	if err != nil {
		return invtypes.EditBatchInput{}, err
	}
	return invtypes.EditBatchInput{
		BatchIdentifier: invtypes.BatchIdentifier{Name: name, Expiry: expiry},
		Quantity:        *payload.Quantity,
	}, nil
}

// FromDomainBatch converts a domain batch to the transport representation.
func FromDomainBatch(b domain.Batch) Batch {
	return Batch{
		Name:      b.Name,
		Quantity:  b.Quantity,
		Expiry:    b.ExpiryKey(),
		UnitCost:  b.UnitCost,
		UnitPrice: b.UnitPrice,
	}
}

// FromDomainBatches converts a list, never returning nil so JSON renders [].
func FromDomainBatches(batches []domain.Batch) []Batch {
	out := make([]Batch, 0, len(batches))
	for _, b := range batches {
		out = append(out, FromDomainBatch(b))
	}
	return out
}

// FromDomainReport converts the ledger report.
func FromDomainReport(r domain.Report) Report {
	out := Report{
		GeneratedAt: r.GeneratedAt,
		BatchCount:  r.BatchCount,
		TotalCost:   r.TotalCost,
		TotalPrice:  r.TotalPrice,
		Items:       make([]ItemSummary, 0, len(r.Items)),
		Rows:        make([]ReportRow, 0, len(r.Rows)),
	}
	for _, item := range r.Items {
		summary := ItemSummary{
			Name:       item.Name,
			Quantity:   item.Quantity,
			Batches:    item.Batches,
			CostValue:  item.CostValue,
			PriceValue: item.PriceValue,
		}
		if item.NearestExpiry != nil {
			summary.NearestExpiry = domain.FormatExpiry(item.NearestExpiry)
		}
		out.Items = append(out.Items, summary)
	}
	for _, row := range r.Rows {
		out.Rows = append(out.Rows, ReportRow{
			Name:      row.Name,
			Quantity:  row.Quantity,
			UnitCost:  row.UnitCost,
			UnitPrice: row.UnitPrice,
			Expiry:    domain.FormatExpiry(row.Expiry),
			Expired:   row.Expired,
		})
	}
	return out
}
