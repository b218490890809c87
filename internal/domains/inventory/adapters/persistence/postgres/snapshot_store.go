package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	"github.com/Apurer/stock-ledger/internal/domains/inventory/ports"
)

var _ ports.Storage = (*SnapshotStore)(nil)

const snapshotTarget = "postgres:ledger_batches"

// SnapshotStore mirrors the full ledger, expiry and pricing included, into the
// ledger_batches table. Every Save replaces the previous snapshot.
type SnapshotStore struct {
	db *gorm.DB
}

// NewSnapshotStore wires a PostgreSQL-backed ledger store. Caller manages DB lifecycle.
func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// batchRecord maps one ledger batch to a row. Position keeps the item insertion order.
type batchRecord struct {
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

func (batchRecord) TableName() string { return "ledger_batches" }

// Save replaces the snapshot inside one database transaction.
func (s *SnapshotStore) Save(ctx context.Context, ledger *domain.Ledger) error {
	if err := s.ensureDB(); err != nil {
		return domain.NewSaveError(snapshotTarget, err)
	}
	if ledger == nil {
		ledger = domain.NewLedger()
	}
	records := toRecords(ledger)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&batchRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 200).Error
	})
	if err != nil {
		return domain.NewSaveError(snapshotTarget, err)
	}
	return nil
}

// Load rebuilds the ledger from the latest snapshot. Rows that violate ledger
// invariants are skipped and reported.
func (s *SnapshotStore) Load(ctx context.Context) (*domain.Ledger, []error, error) {
	if err := s.ensureDB(); err != nil {
		return nil, nil, err
	}
	var records []batchRecord
	if err := s.db.WithContext(ctx).Order("position ASC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, nil, err
	}
	ledger := domain.NewLedger()
	var problems []error
	for i := range records {
		if err := ledger.Add(records[i].toDomain()); err != nil {
			problems = append(problems, err)
		}
	}
	return ledger, problems, nil
}

func (s *SnapshotStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres ledger snapshot store not configured")
	}
	return nil
}

func toRecords(ledger *domain.Ledger) []batchRecord {
	records := make([]batchRecord, 0, ledger.TotalBatchCount())
	for position, name := range ledger.Names() {
		for _, b := range ledger.BatchesNamed(name) {
			records = append(records, batchRecord{
				Name:      b.Name,
				ExpiryKey: b.ExpiryKey(),
				Expiry:    b.Expiry,
				Quantity:  b.Quantity,
				UnitCost:  b.UnitCost,
				UnitPrice: b.UnitPrice,
				Position:  position,
			})
		}
	}
	return records
}

func (r batchRecord) toDomain() domain.Batch {
	return domain.NewBatch(r.Name, r.Quantity, r.Expiry).WithPricing(r.UnitCost, r.UnitPrice)
}
