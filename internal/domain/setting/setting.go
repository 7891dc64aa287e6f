// Package setting holds tenant-scoped runtime key/value settings such as
// provider credentials and storefront tax rates.
package setting

import (
	"context"
	"strings"
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Well-known setting keys
const (
	KeyTaxRate          = "storefront.tax_rate"
	KeyCurrency         = "storefront.currency"
	KeyReminderDelay    = "reminder.delay_hours"
	KeySMTPHost         = "smtp.host"
	KeySMTPPort         = "smtp.port"
	KeySMTPUsername     = "smtp.username"
	KeySMTPPassword     = "smtp.password"
	KeySMTPFrom         = "smtp.from"
	KeySMSAPIKey        = "sms.api_key"
	KeySMSSenderID      = "sms.sender_id"
	KeyPaymentSecretKey = "payment.secret_key"
)

const maskedValue = "********"

// Setting is one stored value
type Setting struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Key       string
	Value     string
	Secret    bool
	UpdatedAt time.Time
}

// NewSetting validates and creates a setting
func NewSetting(tenantID uuid.UUID, key, value string, secret bool) (*Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > 100 {
		return nil, shared.NewDomainError("INVALID_SETTING_KEY", "Setting key must be 1-100 characters")
	}
	return &Setting{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Key:       key,
		Value:     value,
		Secret:    secret,
		UpdatedAt: time.Now(),
	}, nil
}

// Masked returns the value safe for display
func (s *Setting) Masked() string {
	if s.Secret && s.Value != "" {
		return maskedValue
	}
	return s.Value
}

// EnvName maps a setting key to its environment fallback, e.g.
// smtp.host -> BIZHUB_SMTP_HOST
func EnvName(key string) string {
	return "BIZHUB_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// Repository persists settings
type Repository interface {
	Find(ctx context.Context, tenantID uuid.UUID, key string) (*Setting, error)
	Upsert(ctx context.Context, s *Setting) error
}
