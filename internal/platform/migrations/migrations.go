package migrations

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Run applies the schema for the bounded contexts. Adapters never automigrate on their own.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&ledgerBatchRecord{},
		&transactionRecord{},
		&orderRecord{},
		&idempotencyRecord{},
	)
}

// Ledger snapshot schema mirrors the inventory Postgres adapter.
type ledgerBatchRecord struct {
	ID        int64           `gorm:"primaryKey;column:id"`
	Name      string          `gorm:"column:name;size:255;uniqueIndex:idx_ledger_batches_key"`
	ExpiryKey string          `gorm:"column:expiry_key;size:16;uniqueIndex:idx_ledger_batches_key"`
	Expiry    *time.Time      `gorm:"column:expiry;type:date"`
	Quantity  int             `gorm:"column:quantity"`
	UnitCost  decimal.Decimal `gorm:"column:unit_cost;type:numeric(14,4)"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(14,4)"`
	Position  int             `gorm:"column:position;index"`
	CreatedAt time.Time       `gorm:"column:created_at"`
}

func (ledgerBatchRecord) TableName() string { return "ledger_batches" }

// Transaction schema mirrors the movements journal adapter.
type transactionRecord struct {
	Seq       int64         `gorm:"primaryKey;autoIncrement;column:seq"`
	ID        uuid.UUID     `gorm:"column:id;type:uuid;uniqueIndex"`
	ItemName  string        `gorm:"column:item_name;size:255;index"`
	Quantity  int           `gorm:"column:quantity"`
	Type      string        `gorm:"column:type;type:varchar(16)"`
	Timestamp time.Time     `gorm:"column:timestamp;index"`
	Notes     string        `gorm:"column:notes"`
	OrderID   uuid.NullUUID `gorm:"column:order_id;type:uuid;index"`
}

func (transactionRecord) TableName() string { return "stock_transactions" }

// Order schema mirrors the movements journal adapter.
type orderRecord struct {
	ID             uuid.UUID      `gorm:"primaryKey;column:id;type:uuid"`
	Type           string         `gorm:"column:type;type:varchar(16)"`
	Status         string         `gorm:"column:status;type:varchar(16);index"`
	Notes          string         `gorm:"column:notes"`
	Items          []byte         `gorm:"column:items;type:text"`
	TransactionIDs pq.StringArray `gorm:"column:transaction_ids;type:text[]"`
	CreatedAt      time.Time      `gorm:"column:created_at;index"`
	FulfilledAt    *time.Time     `gorm:"column:fulfilled_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

// Idempotency key schema mirrors the movements idempotency adapter.
type idempotencyRecord struct {
	Key           string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash   string    `gorm:"column:request_hash;size:128"`
	TransactionID uuid.UUID `gorm:"column:transaction_id;type:uuid"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (idempotencyRecord) TableName() string { return "transaction_idempotency_keys" }
