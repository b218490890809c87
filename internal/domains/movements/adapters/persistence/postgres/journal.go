package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	"github.com/Apurer/stock-ledger/internal/domains/movements/domain"
	"github.com/Apurer/stock-ledger/internal/domains/movements/ports"
)

var _ ports.Journal = (*Journal)(nil)

// Journal persists transactions and orders in PostgreSQL using GORM.
type Journal struct {
	db *gorm.DB
}

// NewJournal wires a PostgreSQL-backed journal. Caller manages DB lifecycle.
func NewJournal(db *gorm.DB) *Journal {
	return &Journal{db: db}
}

// transactionRecord maps one immutable movement. Seq preserves append order.
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

// orderRecord maps the order aggregate; requested items are stored as JSON.
type orderRecord struct {
	ID             uuid.UUID         `gorm:"primaryKey;column:id;type:uuid"`
	Type           string            `gorm:"column:type;type:varchar(16)"`
	Status         string            `gorm:"column:status;type:varchar(16);index"`
	Notes          string            `gorm:"column:notes"`
	Items          []orderItemRecord `gorm:"column:items;type:text;serializer:json"`
	TransactionIDs pq.StringArray    `gorm:"column:transaction_ids;type:text[]"`
	CreatedAt      time.Time         `gorm:"column:created_at;index"`
	FulfilledAt    *time.Time        `gorm:"column:fulfilled_at"`
	UpdatedAt      time.Time         `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

type orderItemRecord struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Expiry    string          `json:"expiry"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func (j *Journal) AppendTransactions(ctx context.Context, txs ...domain.Transaction) error {
	if err := j.ensureDB(); err != nil {
		return err
	}
	if len(txs) == 0 {
		return nil
	}
	return j.db.WithContext(ctx).Create(toTransactionRecords(txs)).Error
}

func (j *Journal) SaveOrder(ctx context.Context, order *domain.Order) error {
	if err := j.ensureDB(); err != nil {
		return err
	}
	if order == nil {
		return errors.New("order is nil")
	}
	return upsertOrder(j.db.WithContext(ctx), order)
}

// RecordFulfillment writes the transactions and the fulfilled order in one database transaction.
func (j *Journal) RecordFulfillment(ctx context.Context, order *domain.Order, txs []domain.Transaction) error {
	if err := j.ensureDB(); err != nil {
		return err
	}
	if order == nil {
		return errors.New("order is nil")
	}
	return j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(txs) > 0 {
			if err := tx.Create(toTransactionRecords(txs)).Error; err != nil {
				return err
			}
		}
		return upsertOrder(tx, order)
	})
}

func (j *Journal) Order(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if err := j.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := j.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain()
}

func (j *Journal) Orders(ctx context.Context) ([]*domain.Order, error) {
	if err := j.ensureDB(); err != nil {
		return nil, err
	}
	var records []orderRecord
	if err := j.db.WithContext(ctx).Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		order, err := records[i].toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (j *Journal) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	if err := j.ensureDB(); err != nil {
		return nil, err
	}
	var records []transactionRecord
	if err := j.db.WithContext(ctx).Order("seq ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	txs := make([]domain.Transaction, 0, len(records))
	for _, r := range records {
		txs = append(txs, r.toDomain())
	}
	return txs, nil
}

func (j *Journal) ensureDB() error {
	if j == nil || j.db == nil {
		return errors.New("postgres movements journal not configured")
	}
	return nil
}

func upsertOrder(db *gorm.DB, order *domain.Order) error {
	record := toOrderRecord(order)
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":          record.Status,
			"notes":           record.Notes,
			"transaction_ids": record.TransactionIDs,
			"fulfilled_at":    record.FulfilledAt,
			"updated_at":      gorm.Expr("NOW()"),
		}),
	}).Create(&record).Error
}

func toTransactionRecords(txs []domain.Transaction) []transactionRecord {
	records := make([]transactionRecord, 0, len(txs))
	for _, tx := range txs {
		records = append(records, transactionRecord{
			ID:        tx.ID,
			ItemName:  tx.ItemName,
			Quantity:  tx.Quantity,
			Type:      string(tx.Type),
			Timestamp: tx.Timestamp,
			Notes:     tx.Notes,
			OrderID:   tx.OrderID,
		})
	}
	return records
}

func (r transactionRecord) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:        r.ID,
		ItemName:  r.ItemName,
		Quantity:  r.Quantity,
		Type:      domain.TransactionType(r.Type),
		Timestamp: r.Timestamp.UTC(),
		Notes:     r.Notes,
		OrderID:   r.OrderID,
	}
}

func toOrderRecord(order *domain.Order) orderRecord {
	snapshot := order.Snapshot()
	record := orderRecord{
		ID:          snapshot.ID,
		Type:        string(snapshot.Type),
		Status:      string(snapshot.Status),
		Notes:       snapshot.Notes,
		CreatedAt:   snapshot.CreatedAt,
		FulfilledAt: snapshot.FulfilledAt,
	}
	for _, item := range snapshot.Items {
		record.Items = append(record.Items, orderItemRecord{
			Name:      item.Name,
			Quantity:  item.Quantity,
			Expiry:    item.ExpiryKey(),
			UnitCost:  item.UnitCost,
			UnitPrice: item.UnitPrice,
		})
	}
	for _, id := range snapshot.TransactionIDs {
		record.TransactionIDs = append(record.TransactionIDs, id.String())
	}
	return record
}

func (r orderRecord) toDomain() (*domain.Order, error) {
	snapshot := domain.OrderSnapshot{
		ID:        r.ID,
		Type:      domain.OrderType(r.Type),
		Status:    domain.Status(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
		Notes:     r.Notes,
	}
	if r.FulfilledAt != nil {
		at := r.FulfilledAt.UTC()
		snapshot.FulfilledAt = &at
	}
	for _, item := range r.Items {
		expiry, err := invdomain.ParseExpiry(item.Expiry)
		if err != nil {
			return nil, err
		}
		snapshot.Items = append(snapshot.Items,
			invdomain.NewBatch(item.Name, item.Quantity, expiry).WithPricing(item.UnitCost, item.UnitPrice))
	}
	for _, raw := range r.TransactionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		snapshot.TransactionIDs = append(snapshot.TransactionIDs, id)
	}
	return domain.RestoreOrder(snapshot)
}
