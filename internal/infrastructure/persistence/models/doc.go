// Package models contains GORM persistence models. Domain entities carry no
// ORM tags; each model here converts to and from its domain type with
// ToDomain / FromDomain.
//
// Files follow the bounded contexts:
//   - storefront.go: abandoned carts, ecommerce orders
//   - trade.go: sales orders, sales returns
//   - inventory.go: warehouses, stock items, stock movements
//   - finance.go: invoices, credit notes
//   - reference.go: products, customers, settings
//   - outbox.go: transactional outbox entries
package models
