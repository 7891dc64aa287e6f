package storefront

import (
	"time"

	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Cart DTOs ====================

// AddCartItemRequest adds a product to the shopper's cart
type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=999"`
	Email     string    `json:"email" binding:"omitempty,email"`
}

// UpdateCartItemRequest sets a line quantity; zero removes the line
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0,max=999"`
}

// CartLineResponse represents a cart line in API responses
type CartLineResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

// CartView is the revalidated cart returned by every cart operation
type CartView struct {
	SessionID   string                      `json:"session_id"`
	Lines       []CartLineResponse          `json:"lines"`
	ItemCount   int                         `json:"item_count"`
	Subtotal    decimal.Decimal             `json:"subtotal"`
	TaxRate     decimal.Decimal             `json:"tax_rate"`
	Tax         decimal.Decimal             `json:"tax"`
	Total       decimal.Decimal             `json:"total"`
	Currency    string                      `json:"currency"`
	Adjustments []storefront.CartAdjustment `json:"adjustments,omitempty"`
}

func toCartView(cart *storefront.Cart, totals storefront.CartTotals, currency string, adjustments []storefront.CartAdjustment) *CartView {
	lines := make([]CartLineResponse, len(cart.Lines))
	for i, l := range cart.Lines {
		lines[i] = CartLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Amount:    l.Amount(),
		}
	}
	return &CartView{
		SessionID:   cart.SessionID,
		Lines:       lines,
		ItemCount:   cart.ItemCount(),
		Subtotal:    totals.Subtotal,
		TaxRate:     totals.TaxRate,
		Tax:         totals.Tax,
		Total:       totals.Total,
		Currency:    currency,
		Adjustments: adjustments,
	}
}

// ==================== Checkout DTOs ====================

// CheckoutRequest places an order for the current cart
type CheckoutRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone" binding:"omitempty,max=30"`
	CallbackURL string `json:"callback_url" binding:"omitempty,url"`
	Pay         bool   `json:"pay"`
}

// CheckoutResponse describes the placed order and, when requested, the
// payment session. PaymentError is set when the order was placed but the
// gateway could not open a session.
type CheckoutResponse struct {
	OrderID          uuid.UUID       `json:"order_id"`
	OrderNumber      string          `json:"order_number"`
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	SalesOrderID     uuid.UUID       `json:"sales_order_id"`
	Total            decimal.Decimal `json:"total"`
	Currency         string          `json:"currency"`
	PaymentURL       string          `json:"payment_url,omitempty"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	PaymentError     string          `json:"payment_error,omitempty"`
}

// ==================== Ecommerce Order DTOs ====================

// EcommerceOrderListFilter is the query string of the order list
type EcommerceOrderListFilter struct {
	Search     string     `form:"search"`
	Status     string     `form:"status"`
	CustomerID *uuid.UUID `form:"customer_id"`
	Email      string     `form:"email"`
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir"`
}

// EcommerceOrderLineResponse represents an ordered product
type EcommerceOrderLineResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

// EcommerceOrderResponse represents an ecommerce order in API responses
type EcommerceOrderResponse struct {
	ID            uuid.UUID                    `json:"id"`
	TenantID      uuid.UUID                    `json:"tenant_id"`
	OrderNumber   string                       `json:"order_number"`
	InvoiceID     *uuid.UUID                   `json:"invoice_id,omitempty"`
	SalesOrderID  *uuid.UUID                   `json:"sales_order_id,omitempty"`
	CustomerID    *uuid.UUID                   `json:"customer_id,omitempty"`
	Email         string                       `json:"email,omitempty"`
	Items         []EcommerceOrderLineResponse `json:"items"`
	Subtotal      decimal.Decimal              `json:"subtotal"`
	Tax           decimal.Decimal              `json:"tax"`
	Total         decimal.Decimal              `json:"total"`
	Currency      string                       `json:"currency"`
	Status        string                       `json:"status"`
	PaymentStatus string                       `json:"payment_status"`
	ShippedAt     *time.Time                   `json:"shipped_at,omitempty"`
	DeliveredAt   *time.Time                   `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time                   `json:"cancelled_at,omitempty"`
	Version       int                          `json:"version"`
	CreatedAt     time.Time                    `json:"created_at"`
	UpdatedAt     time.Time                    `json:"updated_at"`
}

// ToEcommerceOrderResponse converts a domain EcommerceOrder to a response
func ToEcommerceOrderResponse(o *storefront.EcommerceOrder) EcommerceOrderResponse {
	items := make([]EcommerceOrderLineResponse, len(o.Items))
	for i, l := range o.Items {
		items[i] = EcommerceOrderLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Amount:    l.Amount(),
		}
	}
	return EcommerceOrderResponse{
		ID:            o.ID,
		TenantID:      o.TenantID,
		OrderNumber:   o.OrderNumber,
		InvoiceID:     o.InvoiceID,
		SalesOrderID:  o.SalesOrderID,
		CustomerID:    o.CustomerID,
		Email:         o.Email,
		Items:         items,
		Subtotal:      o.Subtotal,
		Tax:           o.Tax,
		Total:         o.Total,
		Currency:      o.Currency,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		ShippedAt:     o.ShippedAt,
		DeliveredAt:   o.DeliveredAt,
		CancelledAt:   o.CancelledAt,
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// ReconcileResponse reports the outcome of an explicit reconciliation
type ReconcileResponse struct {
	Order   EcommerceOrderResponse `json:"order"`
	Changed bool                   `json:"changed"`
}

// ==================== Abandoned Cart DTOs ====================

// AbandonedCartListFilter is the query string of the abandoned cart list
type AbandonedCartListFilter struct {
	Search    string `form:"search"`
	Converted *bool  `form:"converted"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	OrderBy   string `form:"order_by"`
	OrderDir  string `form:"order_dir"`
}

// AbandonedCartResponse represents a tracked cart in API responses
type AbandonedCartResponse struct {
	ID               uuid.UUID             `json:"id"`
	SessionID        string                `json:"session_id"`
	CustomerID       *uuid.UUID            `json:"customer_id,omitempty"`
	Email            string                `json:"email,omitempty"`
	Items            []storefront.CartLine `json:"items"`
	Subtotal         decimal.Decimal       `json:"subtotal"`
	Tax              decimal.Decimal       `json:"tax"`
	Total            decimal.Decimal       `json:"total"`
	Currency         string                `json:"currency"`
	LastActivityAt   time.Time             `json:"last_activity_at"`
	ReminderSentAt   *time.Time            `json:"reminder_sent_at,omitempty"`
	ReminderCount    int                   `json:"reminder_count"`
	ConvertedToOrder bool                  `json:"converted_to_order"`
	ConvertedAt      *time.Time            `json:"converted_at,omitempty"`
	OrderID          *uuid.UUID            `json:"order_id,omitempty"`
}

// ToAbandonedCartResponse converts a tracked cart to a response
func ToAbandonedCartResponse(c *storefront.AbandonedCart) AbandonedCartResponse {
	return AbandonedCartResponse{
		ID:               c.ID,
		SessionID:        c.SessionID,
		CustomerID:       c.CustomerID,
		Email:            c.Email,
		Items:            c.Items,
		Subtotal:         c.Subtotal,
		Tax:              c.Tax,
		Total:            c.Total,
		Currency:         c.Currency,
		LastActivityAt:   c.LastActivityAt,
		ReminderSentAt:   c.ReminderSentAt,
		ReminderCount:    c.ReminderCount,
		ConvertedToOrder: c.ConvertedToOrder,
		ConvertedAt:      c.ConvertedAt,
		OrderID:          c.OrderID,
	}
}

// ReminderFailure is one cart the dispatcher could not remind
type ReminderFailure struct {
	CartID    uuid.UUID `json:"cart_id"`
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason"`
}

// ReminderReport summarizes one dispatch run
type ReminderReport struct {
	Scanned  int               `json:"scanned"`
	Sent     int               `json:"sent"`
	Skipped  int               `json:"skipped"`
	Failed   int               `json:"failed"`
	Failures []ReminderFailure `json:"failures"`
}
