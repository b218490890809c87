package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrIdempotencyConflict indicates the same key was used with a different payload or transaction.
var ErrIdempotencyConflict = errors.New("idempotency conflict")

// IdempotencyRecord ties a client-supplied key to the transaction it produced.
type IdempotencyRecord struct {
	Key           string
	RequestHash   string
	TransactionID uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IdempotencyStore persists idempotency keys so retried movements are replayed instead of reapplied.
type IdempotencyStore interface {
	// Get returns the record for key, or nil when the key is unknown.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Save stores the record. When the key exists with a different hash or transaction,
	// ErrIdempotencyConflict is returned with the stored record.
	Save(ctx context.Context, record IdempotencyRecord) (*IdempotencyRecord, error)
}
