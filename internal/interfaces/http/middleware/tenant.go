package middleware

import (
	"net/http"

	"github.com/bizhub/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const TenantHeader = "X-Tenant-ID"

// StorefrontTenant resolves the shop's tenant for anonymous storefront
// requests from the X-Tenant-ID header, falling back to defaultTenant.
func StorefrontTenant(defaultTenant uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := defaultTenant
		if raw := c.GetHeader(TenantHeader); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				abort(c, http.StatusBadRequest, "INVALID_TENANT", "Invalid tenant id")
				return
			}
			tenantID = id
		}
		if tenantID == uuid.Nil {
			abort(c, http.StatusBadRequest, "INVALID_TENANT", "Tenant is required")
			return
		}
		c.Set(TenantIDKey, tenantID)
		c.Request = c.Request.WithContext(logger.WithTenantID(c.Request.Context(), tenantID.String()))
		c.Next()
	}
}

// GetTenantID returns the tenant set by JWTAuth or StorefrontTenant
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(TenantIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
