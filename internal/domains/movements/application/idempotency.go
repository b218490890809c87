package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	movtypes "github.com/Apurer/stock-ledger/internal/domains/movements/application/types"
	"github.com/Apurer/stock-ledger/internal/domains/movements/domain"
	"github.com/Apurer/stock-ledger/internal/domains/movements/ports"
)

type normalizedTransactionInput struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Type     string `json:"type"`
	Notes    string `json:"notes"`
	OrderID  string `json:"orderId,omitempty"`
}

// FingerprintTransaction builds a deterministic hash of a movement request, excluding its idempotency key.
func FingerprintTransaction(input movtypes.TransactionInput) (string, error) {
	normalized := normalizedTransactionInput{
		Name:     invdomain.NormalizeName(input.Name),
		Quantity: input.Quantity,
		Type:     string(input.Type),
		Notes:    strings.TrimSpace(input.Notes),
	}
	if input.OrderID.Valid {
		normalized.OrderID = input.OrderID.UUID.String()
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// replay looks up a previous movement recorded under key. It returns the request
// fingerprint and, when the key was already used for the same request, the
// original transaction. Callers hold m.mu.
func (m *Manager) replay(ctx context.Context, key string, input movtypes.TransactionInput) (string, *domain.Transaction, error) {
	fingerprint, err := FingerprintTransaction(input)
	if err != nil {
		return "", nil, err
	}
	record, err := m.idempotency.Get(ctx, key)
	if err != nil {
		return "", nil, journalError(err)
	}
	if record == nil {
		return fingerprint, nil, nil
	}
	if record.RequestHash != fingerprint {
		return "", nil, fmt.Errorf("%w: key %q was used for a different movement", ports.ErrIdempotencyConflict, key)
	}
	txs, err := m.journal.Transactions(ctx)
	if err != nil {
		return "", nil, journalError(err)
	}
	for _, tx := range txs {
		if tx.ID == record.TransactionID {
			return fingerprint, &tx, nil
		}
	}
	return fingerprint, nil, nil
}

// remember records key against tx. A failure is logged: the movement itself already succeeded.
func (m *Manager) remember(ctx context.Context, key, fingerprint string, tx domain.Transaction) {
	_, err := m.idempotency.Save(ctx, ports.IdempotencyRecord{Key: key, RequestHash: fingerprint, TransactionID: tx.ID})
	if err != nil {
		m.logger.WarnContext(ctx, "idempotency key not recorded",
			slog.String("key", key), slog.String("transaction_id", tx.ID.String()), slog.String("error", err.Error()))
	}
}
