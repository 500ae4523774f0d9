package controllers

import (
	"errors"
	"net/http"

	"github.com/saicare2025/dinarexchangenz-sub001/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderController is the thin public order-status lookup the storefront
// polls. Rate limited at the route level.
type OrderController struct {
	orders repository.OrderRepository
	logger *zap.Logger
}

func NewOrderController(orders repository.OrderRepository, logger *zap.Logger) *OrderController {
	return &OrderController{orders: orders, logger: logger}
}

func (oc *OrderController) GetOrderStatus(c *gin.Context) {
	id := c.Param("id")

	order, err := oc.orders.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		oc.logger.Error("order lookup failed", zap.String("order_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":              order.ID,
		"status":          order.Status,
		"tracking_number": order.TrackingNumber,
	})
}
