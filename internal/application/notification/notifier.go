// Package notification turns business events into customer emails and text
// messages. Messages are queued as tasks and delivered by TaskHandler, so a
// slow or failing provider never blocks the operation that triggered them.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/bizhub/backend/internal/domain/partner"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Task types handled by TaskHandler
const (
	TaskTypeEmail = "notification.email"
	TaskTypeSMS   = "notification.sms"
)

// EmailMessage is one outbound email
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SMSMessage is one outbound text message
type SMSMessage struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// EmailSender delivers email using the tenant's mail settings
type EmailSender interface {
	SendEmail(ctx context.Context, tenantID uuid.UUID, msg EmailMessage) error
}

// SMSSender delivers text messages using the tenant's SMS settings
type SMSSender interface {
	SendSMS(ctx context.Context, tenantID uuid.UUID, msg SMSMessage) error
}

// MoneyFormatter renders an amount for customers, e.g. "GH₵ 70.00"
type MoneyFormatter func(amount decimal.Decimal, currency string) string

// PlainMoney formats as "70.00 GHS"
func PlainMoney(amount decimal.Decimal, currency string) string {
	return strings.TrimSpace(amount.StringFixed(2) + " " + currency)
}

// Notifier queues customer notifications
type Notifier struct {
	queue     shared.TaskQueue
	customers partner.CustomerRepository
	format    MoneyFormatter
	logger    *zap.Logger
}

// NewNotifier creates a new Notifier
func NewNotifier(queue shared.TaskQueue, customers partner.CustomerRepository, format MoneyFormatter, logger *zap.Logger) *Notifier {
	if format == nil {
		format = PlainMoney
	}
	return &Notifier{
		queue:     queue,
		customers: customers,
		format:    format,
		logger:    logger,
	}
}

// ReturnSettled tells the customer their return was received and credited
func (n *Notifier) ReturnSettled(ctx context.Context, sr *trade.SalesReturn, creditNote *finance.CreditNote) {
	customer := n.customer(ctx, sr.TenantID, sr.CustomerID)
	if customer == nil {
		return
	}

	subject := fmt.Sprintf("Your return %s has been processed", sr.ReturnNumber)
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\nWe have received the items on return %s for order %s.\n",
		customer.Name, sr.ReturnNumber, sr.SalesOrderNumber)
	sms := fmt.Sprintf("Return %s processed.", sr.ReturnNumber)
	if creditNote != nil {
		amount := n.format(creditNote.Amount, creditNote.Currency)
		fmt.Fprintf(&body, "Credit note %s for %s has been issued against invoice %s.\n",
			creditNote.CreditNoteNumber, amount, creditNote.InvoiceNumber)
		sms = fmt.Sprintf("Return %s processed. Credit of %s issued.", sr.ReturnNumber, amount)
	}
	body.WriteString("\nThank you.")

	n.send(ctx, sr.TenantID, customer.Email, customer.Phone, EmailMessage{Subject: subject, Body: body.String()}, sms)
}

// ReturnRejected tells the customer their return was declined
func (n *Notifier) ReturnRejected(ctx context.Context, event *trade.SalesReturnRejectedEvent) {
	customer := n.customer(ctx, event.TenantID(), event.CustomerID)
	if customer == nil {
		return
	}

	subject := fmt.Sprintf("Your return %s was not accepted", event.ReturnNumber)
	body := fmt.Sprintf("Hello %s,\n\nReturn %s was not accepted.\nReason: %s\n\nPlease contact us if you have questions.",
		customer.Name, event.ReturnNumber, event.Reason)
	sms := fmt.Sprintf("Return %s was not accepted: %s", event.ReturnNumber, event.Reason)

	n.send(ctx, event.TenantID(), customer.Email, customer.Phone, EmailMessage{Subject: subject, Body: body}, sms)
}

// OrderStatusChanged tells the shopper their order moved
func (n *Notifier) OrderStatusChanged(ctx context.Context, event *storefront.EcommerceOrderStatusChangedEvent) {
	email := event.Email
	phone := ""
	if customer := n.customer(ctx, event.TenantID(), event.CustomerID); customer != nil {
		if email == "" {
			email = customer.Email
		}
		phone = customer.Phone
	}

	status := strings.ToLower(string(event.ToStatus))
	subject := fmt.Sprintf("Order %s is %s", event.OrderNumber, status)
	body := fmt.Sprintf("Your order %s is now %s.", event.OrderNumber, status)
	n.send(ctx, event.TenantID(), email, phone, EmailMessage{Subject: subject, Body: body}, body)
}

func (n *Notifier) customer(ctx context.Context, tenantID uuid.UUID, customerID *uuid.UUID) *partner.Customer {
	if customerID == nil {
		return nil
	}
	customer, err := n.customers.FindByID(ctx, tenantID, *customerID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			n.logger.Warn("Failed to load customer for notification",
				zap.String("customer_id", customerID.String()),
				zap.Error(err),
			)
		}
		return nil
	}
	return customer
}

func (n *Notifier) send(ctx context.Context, tenantID uuid.UUID, email, phone string, msg EmailMessage, sms string) {
	if email != "" {
		msg.To = email
		n.enqueue(ctx, tenantID, TaskTypeEmail, msg)
	}
	if phone != "" && sms != "" {
		n.enqueue(ctx, tenantID, TaskTypeSMS, SMSMessage{To: phone, Body: sms})
	}
}

func (n *Notifier) enqueue(ctx context.Context, tenantID uuid.UUID, taskType string, payload any) {
	task, err := shared.NewTask(taskType, tenantID, payload)
	if err == nil {
		err = n.queue.Enqueue(ctx, task)
	}
	if err != nil {
		n.logger.Error("Failed to queue notification",
			zap.String("task_type", taskType),
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}
}
