package handler

import (
	"context"

	financeapp "github.com/bizhub/backend/internal/application/finance"
	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Payments starts and verifies gateway payments for invoices
type Payments interface {
	Initiate(ctx context.Context, tenantID, invoiceID uuid.UUID, email, callbackURL string) (*finance.PaymentSession, error)
	Verify(ctx context.Context, tenantID uuid.UUID, reference string) (*financeapp.PaymentVerificationResponse, error)
}

// PaymentHandler serves payment initiation and verification
type PaymentHandler struct {
	BaseHandler
	payments Payments
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments Payments) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Initiate opens a hosted payment session for the invoice's balance
func (h *PaymentHandler) Initiate(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req financeapp.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	session, err := h.payments.Initiate(c.Request.Context(), tenantID, invoiceID, req.Email, req.CallbackURL)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, financeapp.PaymentSessionResponse{
		Reference:        session.Reference,
		AuthorizationURL: session.AuthorizationURL,
		AccessCode:       session.AccessCode,
	})
}

// Verify asks the gateway about a reference and settles the invoice when paid
func (h *PaymentHandler) Verify(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req financeapp.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.payments.Verify(c.Request.Context(), tenantID, req.Reference)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
