package application

import (
	"errors"
	"fmt"

	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
)

var (
	// ErrInvalidInput signals the request violated a movement invariant.
	ErrInvalidInput = errors.New("invalid movement input")
	// ErrOrderNotPending signals a lifecycle transition attempted on a closed order.
	ErrOrderNotPending = errors.New("order is not pending")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrOrderNotPending) {
		return err
	}
	if errors.Is(err, invdomain.ErrInvalidCommand) ||
		errors.Is(err, invdomain.ErrInvalidQuantity) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}

func journalError(err error) error {
	if err == nil || errors.Is(err, invdomain.ErrSave) {
		return err
	}
	return invdomain.NewSaveError("journal", err)
}
