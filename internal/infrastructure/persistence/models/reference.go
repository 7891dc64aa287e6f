package models

import (
	"time"

	"github.com/bizhub/backend/internal/domain/catalog"
	"github.com/bizhub/backend/internal/domain/partner"
	"github.com/bizhub/backend/internal/domain/setting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductModel is the persistence model for catalog products
type ProductModel struct {
	TenantAggregateModel
	SKU    string                `gorm:"type:varchar(50);not null;index"`
	Name   string                `gorm:"type:varchar(200);not null"`
	Price  decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	Status catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		SKU:                 m.SKU,
		Name:                m.Name,
		Price:               m.Price,
		Status:              m.Status,
	}
}

// ProductModelFromDomain creates a model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{SKU: p.SKU, Name: p.Name, Price: p.Price, Status: p.Status}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	return m
}

// CustomerModel is the persistence model for customers
type CustomerModel struct {
	TenantAggregateModel
	Name  string `gorm:"type:varchar(200);not null"`
	Email string `gorm:"type:varchar(200);index"`
	Phone string `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the model to a domain Customer
func (m *CustomerModel) ToDomain() *partner.Customer {
	return &partner.Customer{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Name:                m.Name,
		Email:               m.Email,
		Phone:               m.Phone,
	}
}

// CustomerModelFromDomain creates a model from a domain Customer
func CustomerModelFromDomain(c *partner.Customer) *CustomerModel {
	m := &CustomerModel{Name: c.Name, Email: c.Email, Phone: c.Phone}
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	return m
}

// SettingModel is the persistence model for tenant settings
type SettingModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_setting_tenant_key,priority:1"`
	Key       string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_setting_tenant_key,priority:2"`
	Value     string    `gorm:"type:text;not null"`
	Secret    bool      `gorm:"not null;default:false"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SettingModel) TableName() string {
	return "settings"
}

// ToDomain converts the model to a domain Setting
func (m *SettingModel) ToDomain() *setting.Setting {
	return &setting.Setting{
		ID:        m.ID,
		TenantID:  m.TenantID,
		Key:       m.Key,
		Value:     m.Value,
		Secret:    m.Secret,
		UpdatedAt: m.UpdatedAt,
	}
}

// SettingModelFromDomain creates a model from a domain Setting
func SettingModelFromDomain(s *setting.Setting) *SettingModel {
	return &SettingModel{
		ID:        s.ID,
		TenantID:  s.TenantID,
		Key:       s.Key,
		Value:     s.Value,
		Secret:    s.Secret,
		UpdatedAt: s.UpdatedAt,
	}
}

// tenantNumberIndexes are the per-tenant document number keys of the SQL
// migrations. Struct tags cannot pair a field with the embedded tenant_id.
var tenantNumberIndexes = []struct{ name, table, column string }{
	{"idx_invoices_tenant_number", "invoices", "number"},
	{"idx_sales_orders_tenant_number", "sales_orders", "order_number"},
	{"idx_sales_returns_tenant_number", "sales_returns", "return_number"},
	{"idx_credit_notes_tenant_number", "credit_notes", "credit_note_number"},
	{"idx_ecommerce_orders_tenant_number", "ecommerce_orders", "order_number"},
}

// AutoMigrate creates every table plus the per-tenant unique keys. The
// server uses the SQL migrations; this is for tests on SQLite.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return err
	}
	for _, idx := range tenantNumberIndexes {
		stmt := "CREATE UNIQUE INDEX IF NOT EXISTS " + idx.name + " ON " + idx.table + " (tenant_id, " + idx.column + ")"
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// All lists every model, in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&ProductModel{},
		&CustomerModel{},
		&SettingModel{},
		&WarehouseModel{},
		&StockItemModel{},
		&StockMovementModel{},
		&InvoiceModel{},
		&CreditNoteModel{},
		&CreditNoteLineModel{},
		&SalesOrderModel{},
		&SalesOrderItemModel{},
		&SalesReturnModel{},
		&SalesReturnLineModel{},
		&AbandonedCartModel{},
		&EcommerceOrderModel{},
		&OutboxEntryModel{},
	}
}
