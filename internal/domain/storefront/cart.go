package storefront

import (
	"sort"
	"strings"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// MaxCartLines bounds the number of distinct products in one cart
	MaxCartLines = 50
	// MaxLineQuantity bounds the quantity of a single line
	MaxLineQuantity = 999
)

// CartLine is one product in a shopper's cart
type CartLine struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Amount returns quantity * unit price
func (l CartLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartTotals are the derived money fields of a cart
type CartTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	TaxRate  decimal.Decimal `json:"taxRate"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals returns subtotal, tax = subtotal*rate/100 and total = subtotal+tax
func ComputeTotals(lines []CartLine, taxRate decimal.Decimal) CartTotals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Amount())
	}
	subtotal = shared.RoundMoney(subtotal)
	tax := shared.Percent(subtotal, taxRate)
	return CartTotals{
		Subtotal: subtotal,
		TaxRate:  taxRate,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Cart is the cookie-held cart of one storefront session
type Cart struct {
	SessionID string     `json:"sessionId"`
	Email     string     `json:"email,omitempty"`
	Lines     []CartLine `json:"lines"`
}

// NewCart creates an empty cart for the session
func NewCart(sessionID string) *Cart {
	return &Cart{SessionID: sessionID, Lines: []CartLine{}}
}

// SetEmail records the shopper's contact address for reminders
func (c *Cart) SetEmail(email string) {
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		c.Email = email
	}
}

// IsEmpty reports whether the cart holds no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ItemCount returns the total quantity across lines
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Line returns the line for a product, if present
func (c *Cart) Line(productID uuid.UUID) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}

// AddItem adds quantity to a product's line, creating it when needed
func (c *Cart) AddItem(productID uuid.UUID, quantity int) error {
	if productID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return c.setQuantity(i, c.Lines[i].Quantity+quantity)
		}
	}
	if len(c.Lines) >= MaxCartLines {
		return shared.NewDomainError("CART_FULL", "Cart cannot hold more products")
	}
	if quantity > MaxLineQuantity {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity exceeds the per-line limit")
	}
	c.Lines = append(c.Lines, CartLine{ProductID: productID, Quantity: quantity})
	return nil
}

// SetQuantity replaces a line's quantity; zero removes the line
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			if quantity == 0 {
				c.removeAt(i)
				return nil
			}
			return c.setQuantity(i, quantity)
		}
	}
	return shared.NewDomainError("CART_ITEM_NOT_FOUND", "Product is not in the cart")
}

// RemoveItem drops a product's line
func (c *Cart) RemoveItem(productID uuid.UUID) error {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.removeAt(i)
			return nil
		}
	}
	return shared.NewDomainError("CART_ITEM_NOT_FOUND", "Product is not in the cart")
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Lines = []CartLine{}
}

// RenewSession moves the cart to a fresh session id. The tracking row of a
// converted session is never updated again, so later carts need a new one.
func (c *Cart) RenewSession() {
	c.SessionID = uuid.NewString()
}

func (c *Cart) setQuantity(i, quantity int) error {
	if quantity > MaxLineQuantity {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity exceeds the per-line limit")
	}
	c.Lines[i].Quantity = quantity
	return nil
}

func (c *Cart) removeAt(i int) {
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}

// ProductAvailability is the current catalog and stock view of a product
type ProductAvailability struct {
	ProductID uuid.UUID
	Name      string
	Price     decimal.Decimal
	Available int
	Active    bool
}

// AdjustmentKind describes why revalidation changed a line
type AdjustmentKind string

const (
	AdjustmentRemoved         AdjustmentKind = "REMOVED"
	AdjustmentPriceChanged    AdjustmentKind = "PRICE_CHANGED"
	AdjustmentQuantityReduced AdjustmentKind = "QUANTITY_REDUCED"
)

// CartAdjustment reports a change made while revalidating a cart
type CartAdjustment struct {
	ProductID uuid.UUID      `json:"productId"`
	Kind      AdjustmentKind `json:"kind"`
	Message   string         `json:"message"`
}

// Revalidate refreshes prices and names, clamps quantities to available
// stock and drops unknown, inactive or sold-out products.
func (c *Cart) Revalidate(catalog map[uuid.UUID]ProductAvailability) []CartAdjustment {
	var adjustments []CartAdjustment
	kept := make([]CartLine, 0, len(c.Lines))

	for _, line := range c.Lines {
		p, ok := catalog[line.ProductID]
		if !ok || !p.Active || p.Available <= 0 {
			adjustments = append(adjustments, CartAdjustment{
				ProductID: line.ProductID,
				Kind:      AdjustmentRemoved,
				Message:   "Product is no longer available",
			})
			continue
		}
		if !line.UnitPrice.IsZero() && !line.UnitPrice.Equal(p.Price) {
			adjustments = append(adjustments, CartAdjustment{
				ProductID: line.ProductID,
				Kind:      AdjustmentPriceChanged,
				Message:   "Price changed from " + line.UnitPrice.StringFixed(2) + " to " + p.Price.StringFixed(2),
			})
		}
		line.UnitPrice = p.Price
		line.Name = p.Name
		if line.Quantity > p.Available {
			adjustments = append(adjustments, CartAdjustment{
				ProductID: line.ProductID,
				Kind:      AdjustmentQuantityReduced,
				Message:   "Quantity reduced to available stock",
			})
			line.Quantity = p.Available
		}
		kept = append(kept, line)
	}

	sort.SliceStable(adjustments, func(i, j int) bool {
		return adjustments[i].ProductID.String() < adjustments[j].ProductID.String()
	})
	c.Lines = kept
	return adjustments
}

// ProductIDs returns the IDs of all products in the cart
func (c *Cart) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}
