package handler

import (
	"context"

	tradeapp "github.com/bizhub/backend/internal/application/trade"
	"github.com/bizhub/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SalesReturns is the returns workflow
type SalesReturns interface {
	Create(ctx context.Context, actor identity.Actor, req tradeapp.CreateSalesReturnRequest) (*tradeapp.SalesReturnResponse, error)
	GetByID(ctx context.Context, tenantID, returnID uuid.UUID) (*tradeapp.SalesReturnResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter tradeapp.SalesReturnListFilter) ([]tradeapp.SalesReturnResponse, int64, error)
	Approve(ctx context.Context, actor identity.Actor, returnID uuid.UUID) (*tradeapp.SalesReturnResponse, error)
	Reject(ctx context.Context, actor identity.Actor, returnID uuid.UUID, req tradeapp.RejectSalesReturnRequest) (*tradeapp.SalesReturnResponse, error)
	Cancel(ctx context.Context, actor identity.Actor, returnID uuid.UUID) (*tradeapp.SalesReturnResponse, error)
}

// SalesReturnHandler serves the returns endpoints
type SalesReturnHandler struct {
	BaseHandler
	returns SalesReturns
}

// NewSalesReturnHandler creates a new SalesReturnHandler
func NewSalesReturnHandler(returns SalesReturns) *SalesReturnHandler {
	return &SalesReturnHandler{returns: returns}
}

// Create raises a return. An ADMIN's return is approved on creation;
// anyone else's waits as PENDING.
func (h *SalesReturnHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req tradeapp.CreateSalesReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	ret, err := h.returns.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ret)
}

func (h *SalesReturnHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	ret, err := h.returns.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ret)
}

func (h *SalesReturnHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter tradeapp.SalesReturnListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	filter.Page, filter.PageSize = pageOrDefault(filter.Page, filter.PageSize)

	returns, total, err := h.returns.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, returns, total, filter.Page, filter.PageSize)
}

func (h *SalesReturnHandler) Approve(c *gin.Context) {
	h.transition(c, func(ctx context.Context, actor identity.Actor, id uuid.UUID) (*tradeapp.SalesReturnResponse, error) {
		return h.returns.Approve(ctx, actor, id)
	})
}

func (h *SalesReturnHandler) Reject(c *gin.Context) {
	var req tradeapp.RejectSalesReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	h.transition(c, func(ctx context.Context, actor identity.Actor, id uuid.UUID) (*tradeapp.SalesReturnResponse, error) {
		return h.returns.Reject(ctx, actor, id, req)
	})
}

func (h *SalesReturnHandler) Cancel(c *gin.Context) {
	h.transition(c, func(ctx context.Context, actor identity.Actor, id uuid.UUID) (*tradeapp.SalesReturnResponse, error) {
		return h.returns.Cancel(ctx, actor, id)
	})
}

func (h *SalesReturnHandler) transition(c *gin.Context, op func(context.Context, identity.Actor, uuid.UUID) (*tradeapp.SalesReturnResponse, error)) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	ret, err := op(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ret)
}
