package ledgerserver

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	invapp "github.com/Apurer/stock-ledger/internal/domains/inventory/application"
	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	movapp "github.com/Apurer/stock-ledger/internal/domains/movements/application"
	movports "github.com/Apurer/stock-ledger/internal/domains/movements/ports"
	apierrors "github.com/Apurer/stock-ledger/internal/shared/errors"
)

var problems = apierrors.NewChainedResponder("", ledgerProblem)

// SetErrorLogger routes 5xx problem responses to logger.
func SetErrorLogger(logger *slog.Logger) {
	problems.SetLogger(logger)
}

// respondError answers transport-level failures (bad JSON, bad params) with the given status.
func respondError(c *gin.Context, status int, err error) {
	if err == nil {
		return
	}
	problems.RespondStatus(c, status, err)
}

// respondServiceError maps service failures through the ledger error mapper.
func respondServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	problems.RespondError(c, err)
}

// ledgerProblem maps ledger and movement failures to problem details.
func ledgerProblem(err error) (apierrors.ProblemDetail, bool) {
	var ledgerErr *invdomain.Error
	hasKind := errors.As(err, &ledgerErr)
	switch {
	case errors.Is(err, movapp.ErrOrderNotPending), errors.Is(err, movports.ErrIdempotencyConflict):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, invdomain.ErrStockUnderflow) && hasKind:
		return apierrors.NewInsufficientStockProblem(ledgerErr.Item, ledgerErr.Requested, ledgerErr.Available), true
	case errors.Is(err, invdomain.ErrItemNotFound), errors.Is(err, invdomain.ErrNoSuchItemGroup):
		return withKind(apierrors.ErrNotFound.WithDetail(err.Error()), ledgerErr), true
	case errors.Is(err, invdomain.ErrSave):
		return withKind(apierrors.ErrStorage.WithDetail(err.Error()), ledgerErr), true
	case errors.Is(err, invapp.ErrInvalidInput), errors.Is(err, movapp.ErrInvalidInput), hasKind:
		return withKind(apierrors.ErrValidation.WithDetail(err.Error()), ledgerErr), true
	}
	return apierrors.ProblemDetail{}, false
}

func withKind(problem apierrors.ProblemDetail, ledgerErr *invdomain.Error) apierrors.ProblemDetail {
	if ledgerErr == nil {
		return problem
	}
	return problem.WithExtension("kind", ledgerErr.Kind.String())
}
