package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/Apurer/stock-ledger/internal/domains/movements/domain"
	"github.com/Apurer/stock-ledger/internal/domains/movements/ports"
)

var _ ports.Journal = (*Journal)(nil)

// Journal is an in-memory transaction log and order list.
type Journal struct {
	mu           sync.RWMutex
	transactions []domain.Transaction
	orders       map[uuid.UUID]*domain.Order
	orderIDs     []uuid.UUID
}

func NewJournal() *Journal {
	return &Journal{orders: map[uuid.UUID]*domain.Order{}}
}

func (j *Journal) AppendTransactions(_ context.Context, txs ...domain.Transaction) error {
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return err
		}
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.transactions = append(j.transactions, txs...)
	return nil
}

func (j *Journal) SaveOrder(_ context.Context, order *domain.Order) error {
	if order == nil {
		return errors.New("order is nil")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.putOrder(order)
	return nil
}

func (j *Journal) RecordFulfillment(_ context.Context, order *domain.Order, txs []domain.Transaction) error {
	if order == nil {
		return errors.New("order is nil")
	}
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return err
		}
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.transactions = append(j.transactions, txs...)
	j.putOrder(order)
	return nil
}

func (j *Journal) Order(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	order, ok := j.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return order.Clone(), nil
}

func (j *Journal) Orders(_ context.Context) ([]*domain.Order, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	list := make([]*domain.Order, 0, len(j.orderIDs))
	for _, id := range j.orderIDs {
		list = append(list, j.orders[id].Clone())
	}
	return list, nil
}

func (j *Journal) Transactions(_ context.Context) ([]domain.Transaction, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return slices.Clone(j.transactions), nil
}

func (j *Journal) putOrder(order *domain.Order) {
	if _, exists := j.orders[order.ID]; !exists {
		j.orderIDs = append(j.orderIDs, order.ID)
	}
	j.orders[order.ID] = order.Clone()
}
