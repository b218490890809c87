package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
)

// ErrInvalidInput signals the request violated a ledger invariant.
var ErrInvalidInput = errors.New("invalid inventory input")

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidCommand) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrParseDate) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
