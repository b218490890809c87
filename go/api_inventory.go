package ledgerserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	invmapper "github.com/Apurer/stock-ledger/internal/domains/inventory/adapters/http/mapper"
	invtypes "github.com/Apurer/stock-ledger/internal/domains/inventory/application/types"
	invdomain "github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	invports "github.com/Apurer/stock-ledger/internal/domains/inventory/ports"
)

// DefaultExpiryWindow is how far ahead the expiring query looks when no cutoff is given.
const DefaultExpiryWindow = 30 * 24 * time.Hour

// InventoryAPI wires HTTP transport with the inventory service.
type InventoryAPI struct {
	service      invports.Service
	expiryWindow time.Duration
	now          func() time.Time
}

// NewInventoryAPI creates an InventoryAPI. A non-positive window falls back to DefaultExpiryWindow.
func NewInventoryAPI(service invports.Service, expiryWindow time.Duration) InventoryAPI {
	if expiryWindow <= 0 {
		expiryWindow = DefaultExpiryWindow
	}
	return InventoryAPI{service: service, expiryWindow: expiryWindow, now: time.Now}
}

// Post /v1/inventory/batches
// Receives stock, merging into an existing batch with the same expiry
func (api *InventoryAPI) AddBatch(c *gin.Context) {
	var payload invmapper.AddBatch
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	input, err := invmapper.ToAddBatchInput(payload)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	batch, err := api.service.AddBatch(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invmapper.FromDomainBatch(batch))
}

// Get /v1/inventory/batches
// Lists batches, optionally restricted to one item
func (api *InventoryAPI) ListBatches(c *gin.Context) {
	batches, err := api.service.Batches(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, invmapper.FromDomainBatches(batches))
}

// Put /v1/inventory/batches/:name
// Overwrites the quantity of one batch
func (api *InventoryAPI) EditBatch(c *gin.Context) {
	var payload invmapper.EditBatch
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	input, err := invmapper.ToEditBatchInput(c.Param("name"), payload)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	batch, err := api.service.EditBatch(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, invmapper.FromDomainBatch(batch))
}

// Delete /v1/inventory/batches/:name
// Removes the batch with exactly the given expiry; no expiry targets the undated batch
func (api *InventoryAPI) DeleteBatch(c *gin.Context) {
	expiry, err := invdomain.ParseExpiry(c.Query("expiry"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	input := invtypes.BatchIdentifier{Name: c.Param("name"), Expiry: expiry}
	if err := api.service.DeleteBatch(c.Request.Context(), input); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get /v1/inventory/stock/:name
// Returns the total quantity of an item across batches
func (api *InventoryAPI) StockCount(c *gin.Context) {
	name := c.Param("name")
	count, err := api.service.StockCount(c.Request.Context(), name)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, invmapper.StockCount{Name: invdomain.NormalizeName(name), Quantity: count})
}

// Get /v1/inventory/expiring
// Lists dated batches expiring strictly before the cutoff
func (api *InventoryAPI) ExpiringBatches(c *gin.Context) {
	var before *openapi_types.Date
	if err := runtime.BindQueryParameter("form", true, false, "before", c.Request.URL.Query(), &before); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	cutoff := api.now().Add(api.expiryWindow)
	if before != nil {
		cutoff = before.Time
	}
	batches, err := api.service.ExpiringBefore(c.Request.Context(), cutoff)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, invmapper.FromDomainBatches(batches))
}

// Get /v1/inventory/low-stock
// Lists batches at or below the threshold
func (api *InventoryAPI) LowStock(c *gin.Context) {
	var threshold *int
	if err := runtime.BindQueryParameter("form", true, false, "threshold", c.Request.URL.Query(), &threshold); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	value := 0
	if threshold != nil {
		value = *threshold
	}
	batches, err := api.service.LowStock(c.Request.Context(), value)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, invmapper.FromDomainBatches(batches))
}

// Get /v1/inventory/report
// Returns the flattened ledger with per-item totals and valuation
func (api *InventoryAPI) Report(c *gin.Context) {
	report, err := api.service.Report(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, invmapper.FromDomainReport(report))
}

// Post /v1/inventory/flush
// Writes the ledger to its storage
func (api *InventoryAPI) Flush(c *gin.Context) {
	if err := api.service.Flush(c.Request.Context()); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
