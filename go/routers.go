package ledgerserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the handlers of every API surface.
type ApiHandleFunctions struct {
	InventoryAPI   InventoryAPI
	TransactionAPI TransactionAPI
	OrderAPI       OrderAPI
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine adds the routes to an existing gin engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		router.Handle(route.Method, route.Pattern, route.HandlerFunc)
	}
	return router
}

// DefaultHandleFunc answers routes without a handler.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	return []Route{
		{"AddBatch", http.MethodPost, "/v1/inventory/batches", handleFunctions.InventoryAPI.AddBatch},
		{"ListBatches", http.MethodGet, "/v1/inventory/batches", handleFunctions.InventoryAPI.ListBatches},
		{"EditBatch", http.MethodPut, "/v1/inventory/batches/:name", handleFunctions.InventoryAPI.EditBatch},
		{"DeleteBatch", http.MethodDelete, "/v1/inventory/batches/:name", handleFunctions.InventoryAPI.DeleteBatch},
		{"StockCount", http.MethodGet, "/v1/inventory/stock/:name", handleFunctions.InventoryAPI.StockCount},
		{"ExpiringBatches", http.MethodGet, "/v1/inventory/expiring", handleFunctions.InventoryAPI.ExpiringBatches},
		{"LowStock", http.MethodGet, "/v1/inventory/low-stock", handleFunctions.InventoryAPI.LowStock},
		{"Report", http.MethodGet, "/v1/inventory/report", handleFunctions.InventoryAPI.Report},
		{"Flush", http.MethodPost, "/v1/inventory/flush", handleFunctions.InventoryAPI.Flush},
		{"CreateTransaction", http.MethodPost, "/v1/transactions", handleFunctions.TransactionAPI.CreateTransaction},
		{"ListTransactions", http.MethodGet, "/v1/transactions", handleFunctions.TransactionAPI.ListTransactions},
		{"CreateOrder", http.MethodPost, "/v1/orders", handleFunctions.OrderAPI.CreateOrder},
		{"ListOrders", http.MethodGet, "/v1/orders", handleFunctions.OrderAPI.ListOrders},
		{"GetOrder", http.MethodGet, "/v1/orders/:id", handleFunctions.OrderAPI.GetOrder},
		{"FulfillOrder", http.MethodPost, "/v1/orders/:id/fulfill", handleFunctions.OrderAPI.FulfillOrder},
		{"CancelOrder", http.MethodPost, "/v1/orders/:id/cancel", handleFunctions.OrderAPI.CancelOrder},
	}
}
