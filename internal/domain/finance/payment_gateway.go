package finance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrGatewayNotConfigured   = errors.New("payment: gateway not configured")
	ErrGatewayRequestFailed   = errors.New("payment: gateway request failed")
	ErrGatewayInvalidResponse = errors.New("payment: invalid gateway response")
	ErrPaymentNotFound        = errors.New("payment: transaction not found")
)

// PaymentRequest is a request to open a hosted payment session
type PaymentRequest struct {
	TenantID      uuid.UUID
	InvoiceID     uuid.UUID
	InvoiceNumber string
	Email         string
	Amount        decimal.Decimal
	Currency      string
	Reference     string
	CallbackURL   string
}

// PaymentSession is the gateway's answer to a payment request
type PaymentSession struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

// GatewayPaymentStatus is the status of a transaction at the gateway
type GatewayPaymentStatus string

const (
	GatewayPaymentStatusPending GatewayPaymentStatus = "PENDING"
	GatewayPaymentStatusPaid    GatewayPaymentStatus = "PAID"
	GatewayPaymentStatusFailed  GatewayPaymentStatus = "FAILED"
)

// PaymentVerification is the result of checking a transaction
type PaymentVerification struct {
	Reference string
	Status    GatewayPaymentStatus
	Amount    decimal.Decimal
	Currency  string
	InvoiceID uuid.UUID
}

// PaymentGateway is a hosted-checkout payment provider
type PaymentGateway interface {
	// Name identifies the provider in stored references
	Name() string
	InitializeTransaction(ctx context.Context, req *PaymentRequest) (*PaymentSession, error)
	VerifyTransaction(ctx context.Context, tenantID uuid.UUID, reference string) (*PaymentVerification, error)
}
