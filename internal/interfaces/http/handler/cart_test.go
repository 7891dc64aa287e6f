package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	storefrontapp "github.com/bizhub/backend/internal/application/storefront"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/bizhub/backend/internal/infrastructure/cookie"
	"github.com/bizhub/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCarts struct{ mock.Mock }

func (m *mockCarts) View(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart) (*storefrontapp.CartView, error) {
	args := m.Called(ctx, tenantID, cart)
	return viewOf(cart), args.Error(0)
}

func (m *mockCarts) AddItem(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart, req storefrontapp.AddCartItemRequest) (*storefrontapp.CartView, error) {
	args := m.Called(ctx, tenantID, cart, req)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	if err := cart.AddItem(req.ProductID, req.Quantity); err != nil {
		return nil, err
	}
	cart.SetEmail(req.Email)
	return viewOf(cart), nil
}

func (m *mockCarts) UpdateItem(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart, productID uuid.UUID, req storefrontapp.UpdateCartItemRequest) (*storefrontapp.CartView, error) {
	args := m.Called(ctx, tenantID, cart, productID, req)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	if err := cart.SetQuantity(productID, req.Quantity); err != nil {
		return nil, err
	}
	return viewOf(cart), nil
}

func (m *mockCarts) RemoveItem(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart, productID uuid.UUID) (*storefrontapp.CartView, error) {
	args := m.Called(ctx, tenantID, cart, productID)
	if err := cart.RemoveItem(productID); err != nil {
		return nil, err
	}
	return viewOf(cart), args.Error(0)
}

func (m *mockCarts) Clear(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart) (*storefrontapp.CartView, error) {
	args := m.Called(ctx, tenantID, cart)
	cart.Clear()
	return viewOf(cart), args.Error(0)
}

type mockCheckout struct{ mock.Mock }

func (m *mockCheckout) Checkout(ctx context.Context, tenantID uuid.UUID, cart *storefront.Cart, req storefrontapp.CheckoutRequest) (*storefrontapp.CheckoutResponse, error) {
	args := m.Called(ctx, tenantID, cart, req)
	if fn, ok := args.Get(0).(func(*storefront.Cart) (*storefrontapp.CheckoutResponse, error)); ok {
		return fn(cart)
	}
	return nil, args.Error(1)
}

func viewOf(cart *storefront.Cart) *storefrontapp.CartView {
	return &storefrontapp.CartView{SessionID: cart.SessionID, ItemCount: cart.ItemCount(), Currency: "GHS"}
}

type cartFixture struct {
	engine   *gin.Engine
	carts    *mockCarts
	checkout *mockCheckout
	tenantID uuid.UUID
	cookies  []*http.Cookie
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	sealer, err := cookie.NewSealer(strings.Repeat("k", 32))
	require.NoError(t, err)

	f := &cartFixture{carts: &mockCarts{}, checkout: &mockCheckout{}, tenantID: uuid.New()}
	h := NewCartHandler(f.carts, f.checkout, cookie.NewCartStore(sealer, cookie.Options{}, zap.NewNop()))

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.StorefrontTenant(f.tenantID))
	r.GET("/cart", h.Get)
	r.DELETE("/cart", h.Clear)
	r.POST("/cart/items", h.AddItem)
	r.PUT("/cart/items/:product_id", h.UpdateItem)
	r.DELETE("/cart/items/:product_id", h.RemoveItem)
	r.POST("/checkout", h.Checkout)
	f.engine = r
	return f
}

// send replays the cookies from the previous response, like a browser
func (f *cartFixture) send(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range f.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	if set := w.Result().Cookies(); len(set) > 0 {
		kept := map[string]*http.Cookie{}
		for _, c := range f.cookies {
			kept[c.Name] = c
		}
		for _, c := range set {
			if c.MaxAge < 0 {
				delete(kept, c.Name)
				continue
			}
			kept[c.Name] = c
		}
		f.cookies = f.cookies[:0]
		for _, c := range kept {
			f.cookies = append(f.cookies, &http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	return w
}

func (f *cartFixture) cookie(name string) *http.Cookie {
	for _, c := range f.cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestCartHandler_RoundTrip(t *testing.T) {
	f := newCartFixture(t)
	productID := uuid.New()
	f.carts.On("AddItem", mock.Anything, f.tenantID, mock.Anything, mock.Anything).Return(nil)
	f.carts.On("View", mock.Anything, f.tenantID, mock.Anything).Return(nil)
	f.carts.On("UpdateItem", mock.Anything, f.tenantID, mock.Anything, productID, mock.Anything).Return(nil)

	w := f.send(http.MethodPost, "/cart/items", `{"product_id":"`+productID.String()+`","quantity":2,"email":"ama@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, f.cookie(cookie.CartCookieName))
	sessionID := f.cookie(cookie.SessionCookieName).Value

	w = f.send(http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"item_count":2`)
	assert.Contains(t, w.Body.String(), sessionID)

	w = f.send(http.MethodPut, "/cart/items/"+productID.String(), `{"quantity":5}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"item_count":5`)
}

func TestCartHandler_Validation(t *testing.T) {
	f := newCartFixture(t)

	w := f.send(http.MethodPost, "/cart/items", `{"product_id":"`+uuid.NewString()+`","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"quantity"`)

	w = f.send(http.MethodDelete, "/cart/items/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.carts.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCartHandler_ServiceErrorKeepsCookie(t *testing.T) {
	f := newCartFixture(t)
	f.carts.On("AddItem", mock.Anything, f.tenantID, mock.Anything, mock.Anything).Return(shared.ErrInsufficientStock).Once()

	w := f.send(http.MethodPost, "/cart/items", `{"product_id":"`+uuid.NewString()+`","quantity":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestCartHandler_Clear(t *testing.T) {
	f := newCartFixture(t)
	f.carts.On("AddItem", mock.Anything, f.tenantID, mock.Anything, mock.Anything).Return(nil)
	f.carts.On("Clear", mock.Anything, f.tenantID, mock.Anything).Return(nil)

	f.send(http.MethodPost, "/cart/items", `{"product_id":"`+uuid.NewString()+`","quantity":1}`)
	require.NotNil(t, f.cookie(cookie.CartCookieName))

	w := f.send(http.MethodDelete, "/cart", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, f.cookie(cookie.CartCookieName))
	assert.NotNil(t, f.cookie(cookie.SessionCookieName))
}

func TestCartHandler_Checkout(t *testing.T) {
	checkoutBody := `{"name":"Ama Mensah","email":"ama@example.com","pay":false}`

	t.Run("places order and clears cart", func(t *testing.T) {
		f := newCartFixture(t)
		f.carts.On("AddItem", mock.Anything, f.tenantID, mock.Anything, mock.Anything).Return(nil)
		f.checkout.On("Checkout", mock.Anything, f.tenantID, mock.Anything, mock.MatchedBy(func(req storefrontapp.CheckoutRequest) bool {
			return req.Email == "ama@example.com"
		})).Return(func(cart *storefront.Cart) (*storefrontapp.CheckoutResponse, error) {
			cart.Clear()
			cart.RenewSession()
			return &storefrontapp.CheckoutResponse{OrderID: uuid.New(), OrderNumber: "WEB-1", Total: decimal.NewFromInt(112)}, nil
		}, nil)

		f.send(http.MethodPost, "/cart/items", `{"product_id":"`+uuid.NewString()+`","quantity":1}`)
		before := f.cookie(cookie.SessionCookieName).Value
		w := f.send(http.MethodPost, "/checkout", checkoutBody)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), "WEB-1")
		assert.Nil(t, f.cookie(cookie.CartCookieName))

		// the next cart belongs to a new session
		after := f.cookie(cookie.SessionCookieName).Value
		assert.NotEqual(t, before, after)
		var seen *storefront.Cart
		f.carts.ExpectedCalls = nil
		f.carts.On("AddItem", mock.Anything, f.tenantID, mock.MatchedBy(func(c *storefront.Cart) bool {
			seen = c
			return true
		}), mock.Anything).Return(nil)
		f.send(http.MethodPost, "/cart/items", `{"product_id":"`+uuid.NewString()+`","quantity":2}`)
		require.NotNil(t, seen)
		assert.Equal(t, after, seen.SessionID)
	})

	t.Run("changed cart is saved before the conflict", func(t *testing.T) {
		f := newCartFixture(t)
		kept := uuid.New()
		f.carts.On("AddItem", mock.Anything, f.tenantID, mock.Anything, mock.Anything).Return(nil)
		f.carts.On("View", mock.Anything, f.tenantID, mock.Anything).Return(nil)
		f.checkout.On("Checkout", mock.Anything, f.tenantID, mock.Anything, mock.Anything).Return(func(cart *storefront.Cart) (*storefrontapp.CheckoutResponse, error) {
			cart.Clear()
			_ = cart.AddItem(kept, 1)
			return nil, storefrontapp.ErrCartChanged
		}, nil)

		f.send(http.MethodPost, "/cart/items", `{"product_id":"`+uuid.NewString()+`","quantity":3}`)
		w := f.send(http.MethodPost, "/checkout", checkoutBody)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "CART_CHANGED")

		w = f.send(http.MethodGet, "/cart", "")
		assert.Contains(t, w.Body.String(), `"item_count":1`)
	})

	t.Run("missing email", func(t *testing.T) {
		f := newCartFixture(t)
		w := f.send(http.MethodPost, "/checkout", `{"name":"Ama"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		f.checkout.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
