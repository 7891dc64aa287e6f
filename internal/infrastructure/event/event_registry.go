package event

import (
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/bizhub/backend/internal/domain/trade"
)

// RegisterAllEvents registers every event the outbox carries. The
// OutboxProcessor can only deliver events registered here.
func RegisterAllEvents(serializer *EventSerializer) {
	registerEvent[trade.SalesOrderStatusChangedEvent](serializer, trade.EventTypeSalesOrderStatusChanged)

	registerEvent[trade.SalesReturnSubmittedEvent](serializer, trade.EventTypeSalesReturnSubmitted)
	registerEvent[trade.SalesReturnApprovedEvent](serializer, trade.EventTypeSalesReturnApproved)
	registerEvent[trade.SalesReturnRejectedEvent](serializer, trade.EventTypeSalesReturnRejected)

	registerEvent[storefront.EcommerceOrderStatusChangedEvent](serializer, storefront.EventTypeEcommerceOrderStatusChanged)
}
