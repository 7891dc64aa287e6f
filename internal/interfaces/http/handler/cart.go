package handler

import (
	"context"
	"errors"
	"net/http"

	storefrontapp "github.com/bizhub/backend/internal/application/storefront"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CartOperations is the cart API of the storefront
type CartOperations interface {
	View(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart) (*storefrontapp.CartView, error)
	AddItem(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart, req storefrontapp.AddCartItemRequest) (*storefrontapp.CartView, error)
	UpdateItem(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart, productID uuid.UUID, req storefrontapp.UpdateCartItemRequest) (*storefrontapp.CartView, error)
	RemoveItem(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart, productID uuid.UUID) (*storefrontapp.CartView, error)
	Clear(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart) (*storefrontapp.CartView, error)
}

// Checkouter places orders for carts
type Checkouter interface {
	Checkout(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart, req storefrontapp.CheckoutRequest) (*storefrontapp.CheckoutResponse, error)
}

// CartCookies reads and writes the cookie-held cart
type CartCookies interface {
	Load(r *http.Request, tenantID uuid.UUID) *storefront.Cart
	Save(w http.ResponseWriter, tenantID uuid.UUID, cart *storefront.Cart) error
}

// CartHandler serves the anonymous storefront cart and checkout
type CartHandler struct {
	BaseHandler
	carts    CartOperations
	checkout Checkouter
	cookies  CartCookies
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts CartOperations, checkout Checkouter, cookies CartCookies) *CartHandler {
	return &CartHandler{carts: carts, checkout: checkout, cookies: cookies}
}

// Get returns the revalidated cart. Lines dropped or clamped during
// revalidation are written back to the cookie.
func (h *CartHandler) Get(c *gin.Context) {
	h.withCart(c, func(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart) (any, error) {
		return h.carts.View(ctx, tenantID, cart)
	})
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req storefrontapp.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	h.withCart(c, func(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart) (any, error) {
		return h.carts.AddItem(ctx, tenantID, cart, req)
	})
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	productID, ok := h.pathID(c, "product_id")
	if !ok {
		return
	}
	var req storefrontapp.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	h.withCart(c, func(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart) (any, error) {
		return h.carts.UpdateItem(ctx, tenantID, cart, productID, req)
	})
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := h.pathID(c, "product_id")
	if !ok {
		return
	}
	h.withCart(c, func(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart) (any, error) {
		return h.carts.RemoveItem(ctx, tenantID, cart, productID)
	})
}

func (h *CartHandler) Clear(c *gin.Context) {
	h.withCart(c, func(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart) (any, error) {
		return h.carts.Clear(ctx, tenantID, cart)
	})
}

// Checkout places the order and empties the cart cookie
func (h *CartHandler) Checkout(c *gin.Context) {
	var req storefrontapp.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	cart := h.cookies.Load(c.Request, tenantID)
	resp, err := h.checkout.Checkout(c.Request.Context(), tenantID, cart, req)
	if err != nil {
		if errors.Is(err, storefrontapp.ErrCartChanged) {
			// the shopper reviews the adjusted cart before retrying
			if serr := h.cookies.Save(c.Writer, tenantID, cart); serr != nil {
				err = serr
			}
		}
		h.HandleError(c, err)
		return
	}
	if err := h.cookies.Save(c.Writer, tenantID, cart); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// withCart loads the cookie cart, runs op and writes the cart back before
// the body.
func (h *CartHandler) withCart(c *gin.Context, op func(context.Context, uuid.UUID, *storefront.Cart) (any, error)) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	cart := h.cookies.Load(c.Request, tenantID)
	view, err := op(c.Request.Context(), tenantID, cart)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.cookies.Save(c.Writer, tenantID, cart); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}
