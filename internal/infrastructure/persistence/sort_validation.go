package persistence

import (
	"fmt"
	"strings"

	"github.com/bizhub/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// AbandonedCartSortFields contains allowed sort fields for abandoned carts
var AbandonedCartSortFields = map[string]bool{
	"created_at":       true,
	"updated_at":       true,
	"last_activity_at": true,
	"reminder_sent_at": true,
	"reminder_count":   true,
	"total":            true,
	"email":            true,
}

// EcommerceOrderSortFields contains allowed sort fields for storefront orders
var EcommerceOrderSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"order_number": true,
	"status":       true,
	"total":        true,
	"shipped_at":   true,
	"delivered_at": true,
}

// SalesReturnSortFields contains allowed sort fields for sales returns
var SalesReturnSortFields = map[string]bool{
	"created_at":        true,
	"updated_at":        true,
	"return_number":     true,
	"status":            true,
	"settlement_status": true,
	"total_amount":      true,
	"approved_at":       true,
}

// applyPaging adds a validated ORDER BY plus LIMIT/OFFSET
func applyPaging(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, allowed, defaultField)
	dir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", field, dir))
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize).Offset(filter.Offset())
	}
	return query
}
