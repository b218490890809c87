package orders

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	movapp "github.com/Apurer/stock-ledger/internal/domains/movements/application"
)

// OrderNotPendingErrorType tags lifecycle violations crossing the workflow boundary.
const OrderNotPendingErrorType = "OrderNotPending"

// ErrorDetails carries ledger error context through Temporal application errors.
type ErrorDetails struct {
	Item      string
	Expiry    string
	Requested int
	Available int
	Detail    string
}

// ToApplicationError marks ledger business failures as non-retryable so the
// workflow fails fast instead of retrying a decision that cannot change.
func ToApplicationError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, movapp.ErrOrderNotPending) {
		return temporal.NewNonRetryableApplicationError(err.Error(), OrderNotPendingErrorType, err)
	}
	var ledgerErr *invdomain.Error
	if !errors.As(err, &ledgerErr) || ledgerErr.Kind == invdomain.KindSaveError {
		return err
	}
	details := ErrorDetails{
		Item:      ledgerErr.Item,
		Expiry:    ledgerErr.Expiry,
		Requested: ledgerErr.Requested,
		Available: ledgerErr.Available,
		Detail:    ledgerErr.Detail,
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), ledgerErr.Kind.String(), err, details)
}

// FromApplicationError rebuilds the ledger error carried by a workflow failure.
// Errors without a recognised type are returned unchanged.
func FromApplicationError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	if appErr.Type() == OrderNotPendingErrorType {
		return errors.Join(movapp.ErrOrderNotPending, invdomain.NewInvalidCommand(appErr.Message()))
	}
	kind, ok := invdomain.KindFromString(appErr.Type())
	if !ok {
		return err
	}
	rebuilt := &invdomain.Error{Kind: kind, Detail: appErr.Message()}
	var details ErrorDetails
	if appErr.HasDetails() && appErr.Details(&details) == nil {
		rebuilt.Item = details.Item
		rebuilt.Expiry = details.Expiry
		rebuilt.Requested = details.Requested
		rebuilt.Available = details.Available
		rebuilt.Detail = details.Detail
	}
	return rebuilt
}
