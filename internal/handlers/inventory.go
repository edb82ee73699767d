package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StockReader interface {
	GetStock(ctx context.Context, productID int64) (int, error)
}

type InventoryHandler struct {
	inventory StockReader
	logger    *zap.Logger
}

func NewInventoryHandler(inventory StockReader, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, logger: logger}
}

func (h *InventoryHandler) Routes(r gin.IRouter) {
	r.GET("/api/inventory/:productId", h.GetStock)
}

// GetStock returns the current stock of a product
func (h *InventoryHandler) GetStock(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	stock, err := h.inventory.GetStock(c.Request.Context(), productID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"productId": productID, "stock": stock})
}
