package handler

import (
	"context"

	storefrontapp "github.com/bizhub/backend/internal/application/storefront"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ShopOrderQueries reads ecommerce orders and tracked carts
type ShopOrderQueries interface {
	GetOrder(ctx context.Context, tenantID, id uuid.UUID) (*storefrontapp.EcommerceOrderResponse, error)
	ListOrders(ctx context.Context, tenantID uuid.UUID, filter storefrontapp.EcommerceOrderListFilter) ([]storefrontapp.EcommerceOrderResponse, int64, error)
	ListAbandonedCarts(ctx context.Context, tenantID uuid.UUID, filter storefrontapp.AbandonedCartListFilter) ([]storefrontapp.AbandonedCartResponse, int64, error)
}

// Reconciler re-derives an ecommerce order from its sales order
type Reconciler interface {
	Reconcile(ctx context.Context, tenantID, orderID uuid.UUID) (*storefrontapp.EcommerceOrderResponse, bool, error)
}

// ReminderRunner sends abandoned cart reminders
type ReminderRunner interface {
	Dispatch(ctx context.Context, tenantID *uuid.UUID) (*storefrontapp.ReminderReport, error)
}

// ShopOrderHandler serves ecommerce orders and abandoned carts to the back office
type ShopOrderHandler struct {
	BaseHandler
	queries    ShopOrderQueries
	reconciler Reconciler
	reminders  ReminderRunner
}

// NewShopOrderHandler creates a new ShopOrderHandler
func NewShopOrderHandler(queries ShopOrderQueries, reconciler Reconciler, reminders ReminderRunner) *ShopOrderHandler {
	return &ShopOrderHandler{queries: queries, reconciler: reconciler, reminders: reminders}
}

// GetOrder is a pure read; it never reconciles
func (h *ShopOrderHandler) GetOrder(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.queries.GetOrder(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

func (h *ShopOrderHandler) ListOrders(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter storefrontapp.EcommerceOrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	filter.Page, filter.PageSize = pageOrDefault(filter.Page, filter.PageSize)

	orders, total, err := h.queries.ListOrders(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// Reconcile is the explicit repair path for an order whose events were lost
func (h *ShopOrderHandler) Reconcile(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	order, changed, err := h.reconciler.Reconcile(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, storefrontapp.ReconcileResponse{Order: *order, Changed: changed})
}

func (h *ShopOrderHandler) ListAbandonedCarts(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter storefrontapp.AbandonedCartListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	filter.Page, filter.PageSize = pageOrDefault(filter.Page, filter.PageSize)

	carts, total, err := h.queries.ListAbandonedCarts(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, carts, total, filter.Page, filter.PageSize)
}

// SendReminders runs the reminder dispatcher for the caller's tenant
func (h *ShopOrderHandler) SendReminders(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	report, err := h.reminders.Dispatch(c.Request.Context(), &tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
