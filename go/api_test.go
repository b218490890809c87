package ledgerserver

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	invmapper "github.com/Apurer/stock-ledger/internal/domains/inventory/adapters/http/mapper"
	"github.com/Apurer/stock-ledger/internal/domains/inventory/adapters/textfile"
	invapp "github.com/Apurer/stock-ledger/internal/domains/inventory/application"
	movmapper "github.com/Apurer/stock-ledger/internal/domains/movements/adapters/http/mapper"
	movmemory "github.com/Apurer/stock-ledger/internal/domains/movements/adapters/memory"
	movworkflows "github.com/Apurer/stock-ledger/internal/domains/movements/adapters/workflows"
	movapp "github.com/Apurer/stock-ledger/internal/domains/movements/application"
	apierrors "github.com/Apurer/stock-ledger/internal/shared/errors"
)

type testServer struct {
	router    *gin.Engine
	inventory *invapp.Service
	ledger    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "inventory.txt")
	now := func() time.Time { return time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC) }
	inventory := invapp.NewService(nil, textfile.NewStorage(path), invapp.WithClock(now))
	manager := movapp.NewManager(inventory, movmemory.NewJournal(),
		movapp.WithClock(now),
		movapp.WithIdempotencyStore(movmemory.NewIdempotencyStore()),
	)

	inventoryAPI := NewInventoryAPI(inventory, 0)
	inventoryAPI.now = now
	handlers := ApiHandleFunctions{
		InventoryAPI:   inventoryAPI,
		TransactionAPI: NewTransactionAPI(manager),
		OrderAPI:       NewOrderAPI(manager, movworkflows.NewInlineFulfillment(manager)),
	}
	return &testServer{
		router:    NewRouterWithGinEngine(gin.New(), handlers),
		inventory: inventory,
		ledger:    path,
	}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if raw, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(raw))
	} else if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) addBatch(t *testing.T, name string, qty int, expiry string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/inventory/batches", invmapper.AddBatch{Name: name, Quantity: qty, Expiry: expiry})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAddAndListBatches(t *testing.T) {
	s := newTestServer(t)
	s.addBatch(t, "Panadol", 20, "")
	s.addBatch(t, "panadol", 10, "2025-01-01")
	s.addBatch(t, "panadol", 5, "none")

	rec := s.do(t, http.MethodGet, "/v1/inventory/batches?name=PANADOL", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	batches := decode[[]invmapper.Batch](t, rec)
	require.Len(t, batches, 2)
	require.Equal(t, "2025-01-01", batches[0].Expiry)
	require.Equal(t, "none", batches[1].Expiry)
	require.Equal(t, 25, batches[1].Quantity)

	rec = s.do(t, http.MethodGet, "/v1/inventory/stock/panadol", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 35, decode[invmapper.StockCount](t, rec).Quantity)
}

func TestAddBatch_Rejections(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/inventory/batches", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, apierrors.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))

	rec = s.do(t, http.MethodPost, "/v1/inventory/batches", invmapper.AddBatch{Name: "aspirin", Quantity: 1, Expiry: "2025-13-45"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/inventory/batches", invmapper.AddBatch{Name: "aspirin", Quantity: 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decode[apierrors.ProblemDetail](t, rec)
	require.Equal(t, apierrors.TypeValidation, problem.Type)
	require.Equal(t, "InvalidQuantity", problem.Extensions["kind"])

	rec = s.do(t, http.MethodPost, "/v1/inventory/batches", invmapper.AddBatch{Name: "vitamin c, 500mg", Quantity: 7})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "InvalidCommand", decode[apierrors.ProblemDetail](t, rec).Extensions["kind"])

	s.addBatch(t, "saline", math.MaxInt, "")
	rec = s.do(t, http.MethodPost, "/v1/inventory/batches", invmapper.AddBatch{Name: "saline", Quantity: 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "InvalidQuantity", decode[apierrors.ProblemDetail](t, rec).Extensions["kind"])
	rec = s.do(t, http.MethodGet, "/v1/inventory/stock/saline", nil)
	require.Equal(t, math.MaxInt, decode[invmapper.StockCount](t, rec).Quantity)
}

func TestEditAndDeleteBatch(t *testing.T) {
	s := newTestServer(t)
	s.addBatch(t, "gauze", 5, "2025-07-01")

	quantity := 9
	rec := s.do(t, http.MethodPut, "/v1/inventory/batches/gauze", invmapper.EditBatch{Expiry: "2025-07-01", Quantity: &quantity})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 9, decode[invmapper.Batch](t, rec).Quantity)

	rec = s.do(t, http.MethodPut, "/v1/inventory/batches/gauze", invmapper.EditBatch{Expiry: "2025-07-01"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/inventory/batches/gauze", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "ItemNotFound", decode[apierrors.ProblemDetail](t, rec).Extensions["kind"])

	rec = s.do(t, http.MethodDelete, "/v1/inventory/batches/gauze?expiry=2025-07-01", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/inventory/batches/gauze?expiry=2025-07-01", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NoSuchItemGroup", decode[apierrors.ProblemDetail](t, rec).Extensions["kind"])
}

func TestQueries(t *testing.T) {
	s := newTestServer(t)
	s.addBatch(t, "insulin", 3, "2025-01-20")
	s.addBatch(t, "insulin", 40, "2025-06-01")
	s.addBatch(t, "zinc", 10, "")

	rec := s.do(t, http.MethodGet, "/v1/inventory/expiring", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]invmapper.Batch](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/v1/inventory/expiring?before=2025-07-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]invmapper.Batch](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/v1/inventory/expiring?before=soon", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/inventory/low-stock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]invmapper.Batch](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/v1/inventory/low-stock?threshold=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]invmapper.Batch](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/v1/inventory/low-stock?threshold=abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/inventory/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[invmapper.Report](t, rec)
	require.Equal(t, 3, report.BatchCount)
	require.Len(t, report.Items, 2)
}

func TestFlushWritesLedgerFile(t *testing.T) {
	s := newTestServer(t)
	s.addBatch(t, "panadol", 20, "")
	s.addBatch(t, "aspirin", 7, "2025-03-01")

	rec := s.do(t, http.MethodPost, "/v1/inventory/flush", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	raw, err := os.ReadFile(s.ledger)
	require.NoError(t, err)
	require.Equal(t, "panadol,20\naspirin,7\n", string(raw))
}

func TestTransactions(t *testing.T) {
	s := newTestServer(t)
	s.addBatch(t, "panadol", 20, "")
	s.addBatch(t, "panadol", 10, "2025-01-01")

	rec := s.do(t, http.MethodPost, "/v1/transactions", movmapper.CreateTransaction{Name: "panadol", Quantity: 25, Type: "outgoing"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "OUTGOING", decode[movmapper.Transaction](t, rec).Type)

	rec = s.do(t, http.MethodPost, "/v1/transactions", movmapper.CreateTransaction{Name: "panadol", Quantity: 6, Type: "OUTGOING"})
	require.Equal(t, http.StatusConflict, rec.Code)
	problem := decode[apierrors.ProblemDetail](t, rec)
	require.Equal(t, apierrors.TypeInsufficientStock, problem.Type)
	require.EqualValues(t, 5, problem.Extensions["available"])
	require.EqualValues(t, 6, problem.Extensions["requested"])

	rec = s.do(t, http.MethodPost, "/v1/transactions", movmapper.CreateTransaction{Name: "zinc", Quantity: 4, Type: "INCOMING"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/transactions", movmapper.CreateTransaction{Name: "zinc", Quantity: 4, Type: "SIDEWAYS"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/transactions", nil)
	require.Len(t, decode[[]movmapper.Transaction](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/v1/transactions?item=ZINC", nil)
	require.Len(t, decode[[]movmapper.Transaction](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/v1/transactions?from=2025-01-10T09:00:00Z&to=2025-01-10T09:00:00Z", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]movmapper.Transaction](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/v1/transactions?from=2025-02-01", nil)
	require.Len(t, decode[[]movmapper.Transaction](t, rec), 0)

	rec = s.do(t, http.MethodGet, "/v1/transactions?from=2025-02-01&to=2025-01-01", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/transactions?item=zinc&from=2025-02-01&to=2025-01-01", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactions_IdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	s.addBatch(t, "panadol", 20, "")

	post := func(qty int) *httptest.ResponseRecorder {
		encoded, err := json.Marshal(movmapper.CreateTransaction{Name: "panadol", Quantity: qty, Type: "OUTGOING"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/v1/transactions", bytes.NewReader(encoded))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(IdempotencyKeyHeader, "dispense-7")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	first := post(5)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	retry := post(5)
	require.Equal(t, http.StatusCreated, retry.Code, retry.Body.String())
	require.Equal(t, decode[movmapper.Transaction](t, first).ID, decode[movmapper.Transaction](t, retry).ID)

	rec := s.do(t, http.MethodGet, "/v1/inventory/stock/panadol", nil)
	require.Equal(t, 15, decode[invmapper.StockCount](t, rec).Quantity)

	conflict := post(6)
	require.Equal(t, http.StatusConflict, conflict.Code)
	require.Equal(t, apierrors.TypeConflict, decode[apierrors.ProblemDetail](t, conflict).Type)
}

func TestOrderLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/orders", movmapper.CreateOrder{
		Type:  "dispense",
		Items: []invmapper.AddBatch{{Name: "aspirin", Quantity: 10}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[movmapper.Order](t, rec)
	require.Equal(t, "PENDING", order.Status)

	rec = s.do(t, http.MethodPost, "/v1/orders/"+order.ID+"/fulfill", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, apierrors.TypeInsufficientStock, decode[apierrors.ProblemDetail](t, rec).Type)

	rec = s.do(t, http.MethodGet, "/v1/orders/"+order.ID, nil)
	require.Equal(t, "PENDING", decode[movmapper.Order](t, rec).Status)

	s.addBatch(t, "aspirin", 30, "")
	rec = s.do(t, http.MethodPost, "/v1/orders/"+order.ID+"/fulfill", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fulfillment := decode[movmapper.Fulfillment](t, rec)
	require.Equal(t, "FULFILLED", fulfillment.Order.Status)
	require.Len(t, fulfillment.Transactions, 1)
	require.NotNil(t, fulfillment.Transactions[0].OrderID)
	require.Equal(t, order.ID, *fulfillment.Transactions[0].OrderID)

	rec = s.do(t, http.MethodPost, "/v1/orders/"+order.ID+"/fulfill", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, apierrors.TypeConflict, decode[apierrors.ProblemDetail](t, rec).Type)

	rec = s.do(t, http.MethodPost, "/v1/orders/"+order.ID+"/cancel", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/orders", nil)
	require.Len(t, decode[[]movmapper.Order](t, rec), 1)
}

func TestCancelOrder(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/v1/orders", movmapper.CreateOrder{
		Type:  "PURCHASE",
		Items: []invmapper.AddBatch{{Name: "amoxil", Quantity: 12, Expiry: "2026-01-01"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[movmapper.Order](t, rec)

	rec = s.do(t, http.MethodPost, "/v1/orders/"+order.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "CANCELLED", decode[movmapper.Order](t, rec).Status)

	rec = s.do(t, http.MethodPost, "/v1/orders/"+order.ID+"/fulfill", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestOrderRejections(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/orders", movmapper.CreateOrder{Type: "DISPENSE"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/orders", movmapper.CreateOrder{Type: "BARTER", Items: []invmapper.AddBatch{{Name: "a", Quantity: 1}}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/orders/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/orders/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
