package storefront

import (
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MinReminderInterval is the minimum gap between two reminders for one cart
const MinReminderInterval = 48 * time.Hour

// AbandonedCart is the advisory tracking row for a storefront session's cart.
// It is written on every cart mutation and read by the reminder dispatcher.
type AbandonedCart struct {
	shared.BaseEntity
	TenantID         uuid.UUID
	SessionID        string
	CustomerID       *uuid.UUID
	Email            string
	Items            []CartLine
	Subtotal         decimal.Decimal
	Tax              decimal.Decimal
	Total            decimal.Decimal
	Currency         string
	LastActivityAt   time.Time
	ReminderSentAt   *time.Time
	ReminderCount    int
	ConvertedToOrder bool
	ConvertedAt      *time.Time
	OrderID          *uuid.UUID
}

// CartSnapshot is the state of a cart at one mutation
type CartSnapshot struct {
	TenantID   uuid.UUID  `json:"tenantId"`
	SessionID  string     `json:"sessionId"`
	CustomerID *uuid.UUID `json:"customerId,omitempty"`
	Email      string     `json:"email,omitempty"`
	Lines      []CartLine `json:"lines"`
	Totals     CartTotals `json:"totals"`
	Currency   string     `json:"currency"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// NewAbandonedCart builds a tracking row from a cart snapshot
func NewAbandonedCart(snap CartSnapshot) (*AbandonedCart, error) {
	if snap.TenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if snap.SessionID == "" {
		return nil, shared.NewDomainError("INVALID_SESSION", "Cart session ID cannot be empty")
	}
	c := &AbandonedCart{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   snap.TenantID,
		SessionID:  snap.SessionID,
	}
	c.ApplySnapshot(snap)
	return c, nil
}

// ApplySnapshot replaces contents and totals. An empty cart counts as converted.
func (c *AbandonedCart) ApplySnapshot(snap CartSnapshot) {
	at := snap.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	if snap.CustomerID != nil {
		c.CustomerID = snap.CustomerID
	}
	if snap.Email != "" {
		c.Email = snap.Email
	}
	c.Items = append([]CartLine(nil), snap.Lines...)
	c.Subtotal = snap.Totals.Subtotal
	c.Tax = snap.Totals.Tax
	c.Total = snap.Totals.Total
	c.Currency = snap.Currency
	c.LastActivityAt = at
	c.UpdatedAt = at

	if len(c.Items) == 0 {
		c.markConverted(nil, at)
		return
	}
	if c.OrderID == nil {
		c.ConvertedToOrder = false
		c.ConvertedAt = nil
	}
}

// MarkConverted records that the session checked out
func (c *AbandonedCart) MarkConverted(orderID uuid.UUID, at time.Time) {
	c.markConverted(&orderID, at)
}

func (c *AbandonedCart) markConverted(orderID *uuid.UUID, at time.Time) {
	c.ConvertedToOrder = true
	if c.ConvertedAt == nil {
		c.ConvertedAt = &at
	}
	if orderID != nil {
		c.OrderID = orderID
	}
	c.UpdatedAt = at
}

// IsDueForReminder applies the dispatcher's selection rule to one cart
func (c *AbandonedCart) IsDueForReminder(now time.Time, delay time.Duration) bool {
	if c.ConvertedToOrder || len(c.Items) == 0 {
		return false
	}
	if !c.LastActivityAt.Before(now.Add(-delay)) {
		return false
	}
	return c.ReminderSentAt == nil || !c.ReminderSentAt.After(now.Add(-MinReminderInterval))
}

// RecordReminder stamps a successful reminder send
func (c *AbandonedCart) RecordReminder(now time.Time) error {
	if c.ReminderSentAt != nil && now.Sub(*c.ReminderSentAt) < MinReminderInterval {
		return shared.NewDomainError("REMINDER_TOO_SOON", "A reminder was sent for this cart less than 48 hours ago")
	}
	c.ReminderSentAt = &now
	c.ReminderCount++
	c.UpdatedAt = now
	return nil
}
