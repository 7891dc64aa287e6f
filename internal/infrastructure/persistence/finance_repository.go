package persistence

import (
	"context"

	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID within a tenant
func (r *GormInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	return r.findOne(ctx, "tenant_id = ? AND id = ?", tenantID, id)
}

// FindByNumber finds an invoice by its number within a tenant
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*finance.Invoice, error) {
	return r.findOne(ctx, "tenant_id = ? AND number = ?", tenantID, number)
}

// FindByPaymentReference finds the invoice a gateway reference was issued for.
// Gateway callbacks carry no tenant, so this lookup is global.
func (r *GormInvoiceRepository) FindByPaymentReference(ctx context.Context, reference string) (*finance.Invoice, error) {
	return r.findOne(ctx, "payment_reference = ?", reference)
}

func (r *GormInvoiceRepository) findOne(ctx context.Context, where string, args ...any) (*finance.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).Where(where, args...).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Create inserts an invoice
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *finance.Invoice) error {
	if err := r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(invoice)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("ALREADY_EXISTS", "Invoice number already exists")
		}
		return err
	}
	return nil
}

// Save updates an invoice under an optimistic version check
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *finance.Invoice) error {
	currentVersion := invoice.Version
	invoice.Version++

	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", invoice.TenantID, invoice.ID, currentVersion).
		Updates(map[string]any{
			"sales_order_id":    invoice.SalesOrderID,
			"credited_amount":   invoice.CreditedAmount,
			"status":            invoice.Status,
			"payment_provider":  invoice.PaymentProvider,
			"payment_reference": invoice.PaymentReference,
			"paid_at":           invoice.PaidAt,
			"version":           invoice.Version,
			"updated_at":        invoice.UpdatedAt,
		})
	if result.Error == nil && result.RowsAffected == 0 {
		result.Error = shared.NewDomainError("CONCURRENT_MODIFICATION", "The invoice has been modified by another process")
	}
	if result.Error != nil {
		invoice.Version--
		return result.Error
	}
	return nil
}

// GormCreditNoteRepository implements CreditNoteRepository using GORM
type GormCreditNoteRepository struct {
	db *gorm.DB
}

// NewGormCreditNoteRepository creates a new GormCreditNoteRepository
func NewGormCreditNoteRepository(db *gorm.DB) *GormCreditNoteRepository {
	return &GormCreditNoteRepository{db: db}
}

// FindByReturnID finds the credit note issued for a sales return
func (r *GormCreditNoteRepository) FindByReturnID(ctx context.Context, tenantID, returnID uuid.UUID) (*finance.CreditNote, error) {
	var model models.CreditNoteModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND return_id = ?", tenantID, returnID).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a credit note with its lines. At most one credit note
// exists per return.
func (r *GormCreditNoteRepository) Create(ctx context.Context, cn *finance.CreditNote) error {
	model := models.CreditNoteModelFromDomain(cn)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Create(model).Error; err != nil {
			if isUniqueViolation(err) {
				return shared.NewDomainError("ALREADY_EXISTS", "A credit note already exists for this return")
			}
			return err
		}
		if len(model.Lines) > 0 {
			return tx.Create(&model.Lines).Error
		}
		return nil
	})
}

var (
	_ finance.InvoiceRepository    = (*GormInvoiceRepository)(nil)
	_ finance.CreditNoteRepository = (*GormCreditNoteRepository)(nil)
)
