package handler

import (
	"context"

	tradeapp "github.com/bizhub/backend/internal/application/trade"
	"github.com/bizhub/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SalesOrders reads and moves sales orders
type SalesOrders interface {
	GetByID(ctx context.Context, tenantID, orderID uuid.UUID) (*tradeapp.SalesOrderResponse, error)
	ChangeStatus(ctx context.Context, actor identity.Actor, orderID uuid.UUID, req tradeapp.ChangeSalesOrderStatusRequest) (*tradeapp.SalesOrderResponse, error)
}

// SalesOrderHandler serves the sales order endpoints
type SalesOrderHandler struct {
	BaseHandler
	orders SalesOrders
}

// NewSalesOrderHandler creates a new SalesOrderHandler
func NewSalesOrderHandler(orders SalesOrders) *SalesOrderHandler {
	return &SalesOrderHandler{orders: orders}
}

func (h *SalesOrderHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// ChangeStatus moves the order; the linked ecommerce order follows through
// the outbox.
func (h *SalesOrderHandler) ChangeStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req tradeapp.ChangeSalesOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	order, err := h.orders.ChangeStatus(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}
