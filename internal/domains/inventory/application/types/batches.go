package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// AddBatchInput captures a batch being received into stock.
type AddBatchInput struct {
	Name      string
	Quantity  int
	Expiry    *time.Time
	UnitCost  decimal.Decimal
	UnitPrice decimal.Decimal
}

// EditBatchInput overwrites the quantity of one exact batch.
type EditBatchInput struct {
	BatchIdentifier
	Quantity int
}

// BatchIdentifier addresses a batch by name and expiry key. A nil expiry is the undated batch.
type BatchIdentifier struct {
	Name   string
	Expiry *time.Time
}
