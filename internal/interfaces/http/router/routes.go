package router

import (
	"github.com/bizhub/backend/internal/domain/identity"
	"github.com/bizhub/backend/internal/interfaces/http/handler"
	"github.com/bizhub/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handlers are the API handlers mounted by Routes
type Handlers struct {
	Cart        *handler.CartHandler
	ShopOrders  *handler.ShopOrderHandler
	SalesOrders *handler.SalesOrderHandler
	Returns     *handler.SalesReturnHandler
	Payments    *handler.PaymentHandler
	Settings    *handler.SettingHandler
	System      *handler.SystemHandler
}

// RouteConfig holds the per-group middleware dependencies
type RouteConfig struct {
	Tokens        middleware.TokenValidator
	DefaultTenant uuid.UUID
	// RateLimiter is optional
	RateLimiter *middleware.RateLimiter
	Logger      *zap.Logger
}

// Mount registers the health checks and every API group on engine
func Mount(engine *gin.Engine, h Handlers, cfg RouteConfig) {
	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)
	engine.GET("/api/v1/health", h.System.Health)

	NewRouter(engine).
		Register(StorefrontRoutes(h, cfg), BackOfficeRoutes(h, cfg)).
		Setup()
}

// StorefrontRoutes are the anonymous shop routes; the tenant comes from
// X-Tenant-ID and the cart from cookies.
func StorefrontRoutes(h Handlers, cfg RouteConfig) *DomainGroup {
	shop := NewDomainGroup("storefront", "/storefront").
		Use(middleware.StorefrontTenant(cfg.DefaultTenant))
	if cfg.RateLimiter != nil {
		shop.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	shop.GET("/cart", h.Cart.Get).
		DELETE("/cart", h.Cart.Clear).
		POST("/cart/items", h.Cart.AddItem).
		PUT("/cart/items/:product_id", h.Cart.UpdateItem).
		DELETE("/cart/items/:product_id", h.Cart.RemoveItem).
		POST("/checkout", h.Cart.Checkout).
		POST("/payments/verify", h.Payments.Verify)
	return shop
}

// BackOfficeRoutes require a bearer token
func BackOfficeRoutes(h Handlers, cfg RouteConfig) *DomainGroup {
	admin := middleware.RequireAdmin()

	office := NewDomainGroup("back-office", "").
		Use(middleware.JWTAuth(cfg.Tokens, cfg.Logger))
	if cfg.RateLimiter != nil {
		office.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	office.Group("shop", "/shop").
		GET("/orders", h.ShopOrders.ListOrders).
		GET("/orders/:id", h.ShopOrders.GetOrder).
		POST("/orders/:id/reconcile", h.ShopOrders.Reconcile)

	office.Group("abandoned-carts", "/abandoned-carts").
		GET("", h.ShopOrders.ListAbandonedCarts).
		POST("/reminders", admin, h.ShopOrders.SendReminders)

	office.Group("sales-orders", "/sales-orders").
		GET("/:id", h.SalesOrders.GetByID).
		PUT("/:id/status", h.SalesOrders.ChangeStatus)

	office.Group("returns", "/returns").
		POST("", h.Returns.Create).
		GET("", h.Returns.List).
		GET("/:id", h.Returns.GetByID).
		POST("/:id/approve", h.Returns.Approve).
		POST("/:id/reject", h.Returns.Reject).
		POST("/:id/cancel", h.Returns.Cancel)

	office.POST("/invoices/:id/payments", h.Payments.Initiate).
		POST("/payments/verify", h.Payments.Verify)

	office.Group("settings", "/settings").
		GET("/:key", h.Settings.Get).
		PUT("/:key", admin, h.Settings.Set)

	// dead letters span every tenant
	office.Group("system", "/system").
		Use(middleware.RequireRoles(identity.RoleSuperAdmin)).
		GET("/dead-letters", h.System.ListDeadLetters).
		POST("/dead-letters/retry", h.System.RetryAllDeadLetters).
		POST("/dead-letters/entries/:id/retry", h.System.RetryDeadLetter).
		POST("/dead-letters/tasks/:task_id/retry", h.System.RetryDeadTask)

	return office
}
