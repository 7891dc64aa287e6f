package storefront

// fulfillmentStatusMap translates back-office sales order statuses to the
// customer-facing vocabulary. Statuses not listed leave the order unchanged.
var fulfillmentStatusMap = map[string]OrderStatus{
	"DELIVERED":     OrderStatusDelivered,
	"COMPLETED":     OrderStatusDelivered,
	"SHIPPED":       OrderStatusShipped,
	"READY_TO_SHIP": OrderStatusShipped,
	"PROCESSING":    OrderStatusProcessing,
	"CONFIRMED":     OrderStatusConfirmed,
	"CANCELLED":     OrderStatusCancelled,
}

// MapFulfillmentStatus returns the ecommerce status for a sales order status
func MapFulfillmentStatus(salesOrderStatus string) (OrderStatus, bool) {
	s, ok := fulfillmentStatusMap[salesOrderStatus]
	return s, ok
}
