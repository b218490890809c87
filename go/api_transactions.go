package ledgerserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"

	movmapper "github.com/Apurer/stock-ledger/internal/domains/movements/adapters/http/mapper"
	movdomain "github.com/Apurer/stock-ledger/internal/domains/movements/domain"
	movports "github.com/Apurer/stock-ledger/internal/domains/movements/ports"
)

// IdempotencyKeyHeader lets clients retry a movement without applying it twice.
const IdempotencyKeyHeader = "Idempotency-Key"

var errRangeOrder = errors.New("range end is before start")

// TransactionAPI wires HTTP transport with the movements service.
type TransactionAPI struct {
	service movports.Service
}

// NewTransactionAPI creates a TransactionAPI backed by the provided service.
func NewTransactionAPI(service movports.Service) TransactionAPI {
	return TransactionAPI{service: service}
}

// Post /v1/transactions
// Records an incoming or outgoing movement and applies it to stock
func (api *TransactionAPI) CreateTransaction(c *gin.Context) {
	var payload movmapper.CreateTransaction
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	input, err := movmapper.ToTransactionInput(payload)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	input.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)
	tx, err := api.service.CreateTransaction(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movmapper.FromDomainTransaction(tx))
}

// Get /v1/transactions
// Lists movements, optionally for one item and within an inclusive time range
func (api *TransactionAPI) ListTransactions(c *gin.Context) {
	query := c.Request.URL.Query()
	var from, to *time.Time
	if err := runtime.BindQueryParameter("form", true, false, "from", query, &from); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "to", query, &to); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	item := c.Query("item")
	ctx := c.Request.Context()

	var (
		txs []movdomain.Transaction
		err error
	)
	switch {
	case item == "" && (from != nil || to != nil):
		start, end := rangeBounds(from, to)
		txs, err = api.service.TransactionsInRange(ctx, start, end)
	case item != "":
		txs, err = api.service.TransactionsFor(ctx, item)
		if err == nil && (from != nil || to != nil) {
			start, end := rangeBounds(from, to)
			if end.Before(start) {
				respondError(c, http.StatusBadRequest, errRangeOrder)
				return
			}
			txs = within(txs, start, end)
		}
	default:
		txs, err = api.service.AllTransactions(ctx)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, movmapper.FromDomainTransactions(txs))
}

// rangeBounds opens missing ends of a time range.
func rangeBounds(from, to *time.Time) (time.Time, time.Time) {
	start := time.Time{}
	end := time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
	if from != nil {
		start = *from
	}
	if to != nil {
		end = *to
	}
	return start, end
}

func within(txs []movdomain.Transaction, start, end time.Time) []movdomain.Transaction {
	out := make([]movdomain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Within(start, end) {
			out = append(out, tx)
		}
	}
	return out
}
