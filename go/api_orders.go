package ledgerserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	movmapper "github.com/Apurer/stock-ledger/internal/domains/movements/adapters/http/mapper"
	movtypes "github.com/Apurer/stock-ledger/internal/domains/movements/application/types"
	movports "github.com/Apurer/stock-ledger/internal/domains/movements/ports"
)

// OrderAPI wires HTTP transport with the movements service and fulfillment orchestration.
type OrderAPI struct {
	service     movports.Service
	fulfillment movports.FulfillmentOrchestrator
}

// NewOrderAPI creates an OrderAPI. A nil orchestrator fulfills orders through the service directly.
func NewOrderAPI(service movports.Service, fulfillment movports.FulfillmentOrchestrator) OrderAPI {
	return OrderAPI{service: service, fulfillment: fulfillment}
}

// Post /v1/orders
// Creates a pending purchase or dispense order
func (api *OrderAPI) CreateOrder(c *gin.Context) {
	var payload movmapper.CreateOrder
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	input, err := movmapper.ToOrderInput(payload)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	order, err := api.service.CreateOrder(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movmapper.FromDomainOrder(order))
}

// Get /v1/orders
// Lists orders in creation order
func (api *OrderAPI) ListOrders(c *gin.Context) {
	orders, err := api.service.Orders(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, movmapper.FromDomainOrders(orders))
}

// Get /v1/orders/:id
// Finds an order by ID
func (api *OrderAPI) GetOrder(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := api.service.Order(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, movmapper.FromDomainOrder(order))
}

// Post /v1/orders/:id/fulfill
// Applies every item of a pending order to stock, all or nothing
func (api *OrderAPI) FulfillOrder(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	result, err := api.fulfill(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, movmapper.FromFulfillmentResult(result))
}

func (api *OrderAPI) fulfill(ctx context.Context, id uuid.UUID) (*movtypes.FulfillmentResult, error) {
	if api.fulfillment != nil {
		return api.fulfillment.FulfillOrder(ctx, id)
	}
	return api.service.FulfillOrder(ctx, id)
}

// Post /v1/orders/:id/cancel
// Cancels a pending order without touching stock
func (api *OrderAPI) CancelOrder(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := api.service.CancelOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, movmapper.FromDomainOrder(order))
}

func parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return uuid.Nil, false
	}
	return id, true
}
