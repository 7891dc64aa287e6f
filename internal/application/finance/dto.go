package finance

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Payment DTOs ====================

// InitiatePaymentRequest opens a payment session for an invoice. Email
// defaults to the storefront order's email when omitted.
type InitiatePaymentRequest struct {
	Email       string `json:"email" binding:"omitempty,email"`
	CallbackURL string `json:"callback_url" binding:"omitempty,url"`
}

// PaymentSessionResponse is the hosted checkout the payer is sent to
type PaymentSessionResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code,omitempty"`
}

// VerifyPaymentRequest asks for the outcome of a payment
type VerifyPaymentRequest struct {
	Reference string `json:"reference" binding:"required,max=100"`
}

// PaymentVerificationResponse reports an invoice's payment state
type PaymentVerificationResponse struct {
	Reference     string          `json:"reference"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceStatus string          `json:"invoice_status"`
	GatewayStatus string          `json:"gateway_status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	OrderID       *uuid.UUID      `json:"order_id,omitempty"`
}
