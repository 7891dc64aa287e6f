package trade

import (
	"time"

	"github.com/bizhub/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Sales Order DTOs ====================

// ChangeSalesOrderStatusRequest moves a sales order along its lifecycle
type ChangeSalesOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}

// SalesOrderItemResponse represents a sales order line in API responses
type SalesOrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// SalesOrderResponse represents a sales order in API responses
type SalesOrderResponse struct {
	ID           uuid.UUID                `json:"id"`
	TenantID     uuid.UUID                `json:"tenant_id"`
	OrderNumber  string                   `json:"order_number"`
	CustomerID   *uuid.UUID               `json:"customer_id,omitempty"`
	InvoiceID    *uuid.UUID               `json:"invoice_id,omitempty"`
	Items        []SalesOrderItemResponse `json:"items"`
	TotalAmount  decimal.Decimal          `json:"total_amount"`
	Status       string                   `json:"status"`
	ConfirmedAt  *time.Time               `json:"confirmed_at,omitempty"`
	ShippedAt    *time.Time               `json:"shipped_at,omitempty"`
	DeliveredAt  *time.Time               `json:"delivered_at,omitempty"`
	CompletedAt  *time.Time               `json:"completed_at,omitempty"`
	CancelledAt  *time.Time               `json:"cancelled_at,omitempty"`
	CancelReason string                   `json:"cancel_reason,omitempty"`
	Version      int                      `json:"version"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// ToSalesOrderResponse converts a domain SalesOrder to a response
func ToSalesOrderResponse(order *trade.SalesOrder) SalesOrderResponse {
	items := make([]SalesOrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = SalesOrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		}
	}
	return SalesOrderResponse{
		ID:           order.ID,
		TenantID:     order.TenantID,
		OrderNumber:  order.OrderNumber,
		CustomerID:   order.CustomerID,
		InvoiceID:    order.InvoiceID,
		Items:        items,
		TotalAmount:  order.TotalAmount,
		Status:       string(order.Status),
		ConfirmedAt:  order.ConfirmedAt,
		ShippedAt:    order.ShippedAt,
		DeliveredAt:  order.DeliveredAt,
		CompletedAt:  order.CompletedAt,
		CancelledAt:  order.CancelledAt,
		CancelReason: order.CancelReason,
		Version:      order.Version,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
}

// ==================== Sales Return DTOs ====================

// CreateSalesReturnRequest represents a request to raise a return against a sales order
type CreateSalesReturnRequest struct {
	SalesOrderID uuid.UUID                    `json:"sales_order_id" binding:"required"`
	Reason       string                       `json:"reason" binding:"required,return_reason"`
	Note         string                       `json:"note" binding:"max=1000"`
	Lines        []CreateSalesReturnLineInput `json:"lines" binding:"required,min=1,dive"`
}

// CreateSalesReturnLineInput is one returned product in a create request
type CreateSalesReturnLineInput struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

// RejectSalesReturnRequest carries the reason a return was declined
type RejectSalesReturnRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// SalesReturnListFilter represents filter options for the return list
type SalesReturnListFilter struct {
	Search           string     `form:"search"`
	Status           string     `form:"status"`
	SettlementStatus string     `form:"settlement_status"`
	SalesOrderID     *uuid.UUID `form:"sales_order_id"`
	Page             int        `form:"page" binding:"min=0"`
	PageSize         int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy          string     `form:"order_by"`
	OrderDir         string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// SalesReturnLineResponse represents a return line in API responses
type SalesReturnLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// SalesReturnResponse represents a sales return in API responses
type SalesReturnResponse struct {
	ID               uuid.UUID                 `json:"id"`
	TenantID         uuid.UUID                 `json:"tenant_id"`
	ReturnNumber     string                    `json:"return_number"`
	SalesOrderID     uuid.UUID                 `json:"sales_order_id"`
	SalesOrderNumber string                    `json:"sales_order_number"`
	InvoiceID        *uuid.UUID                `json:"invoice_id,omitempty"`
	CustomerID       *uuid.UUID                `json:"customer_id,omitempty"`
	Reason           string                    `json:"reason"`
	Note             string                    `json:"note,omitempty"`
	Status           string                    `json:"status"`
	Lines            []SalesReturnLineResponse `json:"lines"`
	TotalAmount      decimal.Decimal           `json:"total_amount"`
	RequestedBy      *uuid.UUID                `json:"requested_by,omitempty"`
	ApprovedBy       *uuid.UUID                `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time                `json:"approved_at,omitempty"`
	RejectedBy       *uuid.UUID                `json:"rejected_by,omitempty"`
	RejectedAt       *time.Time                `json:"rejected_at,omitempty"`
	RejectionReason  string                    `json:"rejection_reason,omitempty"`
	CancelledAt      *time.Time                `json:"cancelled_at,omitempty"`
	SettlementStatus string                    `json:"settlement_status"`
	SettlementError  string                    `json:"settlement_error,omitempty"`
	SettledAt        *time.Time                `json:"settled_at,omitempty"`
	CreditNoteID     *uuid.UUID                `json:"credit_note_id,omitempty"`
	Version          int                       `json:"version"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

// ToSalesReturnResponse converts a domain SalesReturn to a response
func ToSalesReturnResponse(sr *trade.SalesReturn) SalesReturnResponse {
	lines := make([]SalesReturnLineResponse, len(sr.Lines))
	for i, l := range sr.Lines {
		lines[i] = SalesReturnLineResponse{
			ID:          l.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Amount,
		}
	}
	return SalesReturnResponse{
		ID:               sr.ID,
		TenantID:         sr.TenantID,
		ReturnNumber:     sr.ReturnNumber,
		SalesOrderID:     sr.SalesOrderID,
		SalesOrderNumber: sr.SalesOrderNumber,
		InvoiceID:        sr.InvoiceID,
		CustomerID:       sr.CustomerID,
		Reason:           string(sr.Reason),
		Note:             sr.Note,
		Status:           string(sr.Status),
		Lines:            lines,
		TotalAmount:      sr.TotalAmount,
		RequestedBy:      sr.RequestedBy,
		ApprovedBy:       sr.ApprovedBy,
		ApprovedAt:       sr.ApprovedAt,
		RejectedBy:       sr.RejectedBy,
		RejectedAt:       sr.RejectedAt,
		RejectionReason:  sr.RejectionReason,
		CancelledAt:      sr.CancelledAt,
		SettlementStatus: string(sr.SettlementStatus),
		SettlementError:  sr.SettlementError,
		SettledAt:        sr.SettledAt,
		CreditNoteID:     sr.CreditNoteID,
		Version:          sr.Version,
		CreatedAt:        sr.CreatedAt,
		UpdatedAt:        sr.UpdatedAt,
	}
}

// ToSalesReturnResponses converts a slice of returns
func ToSalesReturnResponses(returns []*trade.SalesReturn) []SalesReturnResponse {
	out := make([]SalesReturnResponse, len(returns))
	for i, sr := range returns {
		out[i] = ToSalesReturnResponse(sr)
	}
	return out
}
