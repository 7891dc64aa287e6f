package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentMetrics records payment outcomes
type PaymentMetrics interface {
	RecordPayment(ctx context.Context, tenantID uuid.UUID, status string)
}

// PaymentService starts and verifies hosted payments for invoices
type PaymentService struct {
	invoices    finance.InvoiceRepository
	orders      storefront.EcommerceOrderRepository
	salesOrders trade.SalesOrderRepository
	gateway     finance.PaymentGateway
	metrics     PaymentMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewPaymentService creates a new PaymentService. gateway may be nil when no
// provider is configured; every payment call then fails with PAYMENT_NOT_CONFIGURED.
func NewPaymentService(
	invoices finance.InvoiceRepository,
	orders storefront.EcommerceOrderRepository,
	salesOrders trade.SalesOrderRepository,
	gateway finance.PaymentGateway,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		invoices:    invoices,
		orders:      orders,
		salesOrders: salesOrders,
		gateway:     gateway,
		logger:      logger,
		now:         time.Now,
	}
}

// SetMetrics sets the business metrics recorder
func (s *PaymentService) SetMetrics(m PaymentMetrics) {
	s.metrics = m
}

// Initiate opens a payment session for the invoice's amount due and stores
// the reference on the invoice. Gateway failures are returned to the caller.
func (s *PaymentService) Initiate(ctx context.Context, tenantID, invoiceID uuid.UUID, email, callbackURL string) (*finance.PaymentSession, error) {
	if s.gateway == nil {
		return nil, gatewayError(finance.ErrGatewayNotConfigured)
	}

	invoice, err := s.invoices.FindByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := invoice.CanAcceptPayment(); err != nil {
		return nil, err
	}

	if email == "" {
		if order, err := s.orders.FindByInvoiceID(ctx, tenantID, invoiceID); err == nil {
			email = order.Email
		}
	}
	if email == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "An email address is required to pay")
	}

	reference := fmt.Sprintf("INV-%s-%d", invoice.Number, s.now().Unix())
	session, err := s.gateway.InitializeTransaction(ctx, &finance.PaymentRequest{
		TenantID:      tenantID,
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.Number,
		Email:         email,
		Amount:        invoice.AmountDue(),
		Currency:      invoice.Currency,
		Reference:     reference,
		CallbackURL:   callbackURL,
	})
	if err != nil {
		s.logger.Warn("Payment initialization failed",
			zap.String("invoice_number", invoice.Number),
			zap.String("provider", s.gateway.Name()),
			zap.Error(err),
		)
		s.record(ctx, tenantID, "init_failed")
		return nil, gatewayError(err)
	}
	if session.Reference == "" {
		session.Reference = reference
	}

	invoice.RecordPaymentAttempt(s.gateway.Name(), session.Reference)
	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.record(ctx, tenantID, "initiated")
	s.logger.Info("Payment initiated",
		zap.String("invoice_number", invoice.Number),
		zap.String("reference", session.Reference),
		zap.String("amount", invoice.AmountDue().String()),
	)
	return session, nil
}

// Verify checks a payment at the gateway and settles the invoice, the
// storefront order and the sales order when it succeeded. Verifying an
// already settled payment repeats only the idempotent follow-ups.
func (s *PaymentService) Verify(ctx context.Context, tenantID uuid.UUID, reference string) (*PaymentVerificationResponse, error) {
	invoice, err := s.invoices.FindByPaymentReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if invoice.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}

	resp := &PaymentVerificationResponse{
		Reference:     reference,
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.Number,
		Amount:        invoice.Total,
		Currency:      invoice.Currency,
	}

	if invoice.Status != finance.InvoiceStatusPaid {
		if s.gateway == nil {
			return nil, gatewayError(finance.ErrGatewayNotConfigured)
		}
		verification, err := s.gateway.VerifyTransaction(ctx, tenantID, reference)
		if err != nil {
			return nil, gatewayError(err)
		}
		resp.GatewayStatus = string(verification.Status)

		switch verification.Status {
		case finance.GatewayPaymentStatusPaid:
			if !verification.Amount.Equal(invoice.AmountDue()) {
				s.logger.Error("Paid amount does not match invoice",
					zap.String("invoice_number", invoice.Number),
					zap.String("expected", invoice.AmountDue().String()),
					zap.String("paid", verification.Amount.String()),
				)
				return nil, shared.NewDomainError("PAYMENT_AMOUNT_MISMATCH", "Paid amount does not match the amount due")
			}
			if err := invoice.MarkPaid(reference, s.now()); err != nil {
				return nil, err
			}
			if err := s.invoices.Save(ctx, invoice); err != nil {
				return nil, err
			}
			s.record(ctx, tenantID, "paid")
		case finance.GatewayPaymentStatusFailed:
			s.record(ctx, tenantID, "failed")
			orderID, err := s.markOrderFailed(ctx, invoice)
			if err != nil {
				return nil, err
			}
			resp.OrderID = orderID
			resp.InvoiceStatus = string(invoice.Status)
			return resp, nil
		default:
			resp.InvoiceStatus = string(invoice.Status)
			return resp, nil
		}
	} else {
		resp.GatewayStatus = string(finance.GatewayPaymentStatusPaid)
	}

	orderID, err := s.propagatePaid(ctx, invoice)
	if err != nil {
		return nil, err
	}
	resp.OrderID = orderID
	resp.InvoiceStatus = string(invoice.Status)
	return resp, nil
}

// propagatePaid marks the storefront order paid and confirms the draft sales
// order. The confirmation event reconciles the storefront order's status.
func (s *PaymentService) propagatePaid(ctx context.Context, invoice *finance.Invoice) (*uuid.UUID, error) {
	var orderID *uuid.UUID
	order, err := s.orders.FindByInvoiceID(ctx, invoice.TenantID, invoice.ID)
	switch {
	case err == nil:
		orderID = &order.ID
		if order.PaymentStatus != storefront.PaymentStatusPaid {
			order.MarkPaid()
			if err := s.orders.SaveWithLock(ctx, order); err != nil {
				return nil, err
			}
		}
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}

	if invoice.SalesOrderID == nil {
		return orderID, nil
	}
	so, err := s.salesOrders.FindByID(ctx, invoice.TenantID, *invoice.SalesOrderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return orderID, nil
		}
		return nil, err
	}
	if so.Status != trade.OrderStatusDraft {
		return orderID, nil
	}
	if err := so.ChangeStatus(trade.OrderStatusConfirmed, nil, "payment received"); err != nil {
		return nil, err
	}
	if err := s.salesOrders.SaveWithLock(ctx, so); err != nil {
		return nil, err
	}
	s.logger.Info("Sales order confirmed by payment",
		zap.String("order_number", so.OrderNumber),
		zap.String("invoice_number", invoice.Number),
	)
	return orderID, nil
}

func (s *PaymentService) markOrderFailed(ctx context.Context, invoice *finance.Invoice) (*uuid.UUID, error) {
	order, err := s.orders.FindByInvoiceID(ctx, invoice.TenantID, invoice.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if order.PaymentStatus == storefront.PaymentStatusPending {
		order.MarkPaymentFailed()
		if err := s.orders.SaveWithLock(ctx, order); err != nil {
			return nil, err
		}
	}
	return &order.ID, nil
}

func (s *PaymentService) record(ctx context.Context, tenantID uuid.UUID, status string) {
	if s.metrics != nil {
		s.metrics.RecordPayment(ctx, tenantID, status)
	}
}

// gatewayError converts provider failures to UPSTREAM_ERROR, or
// PAYMENT_NOT_CONFIGURED when no provider is set up
func gatewayError(err error) error {
	if errors.Is(err, finance.ErrGatewayNotConfigured) {
		return shared.NewDomainError("PAYMENT_NOT_CONFIGURED", "Online payment is not configured")
	}
	if errors.Is(err, finance.ErrPaymentNotFound) {
		return shared.NewDomainError("NOT_FOUND", "Payment not found at the gateway")
	}
	return shared.NewDomainError("UPSTREAM_ERROR", "Payment gateway error: "+err.Error())
}
