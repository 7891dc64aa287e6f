// Package setting resolves tenant settings with environment and config
// fallbacks and serves the settings API.
package setting

import (
	"context"
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bizhub/backend/internal/domain/setting"
	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sources a resolved value can come from
const (
	SourceTenant  = "tenant"
	SourceEnv     = "env"
	SourceDefault = "default"
	SourceUnset   = "unset"
)

// Cache stores resolved tenant values. A miss returns ok=false.
type Cache interface {
	Get(ctx context.Context, tenantID uuid.UUID, key string) (value string, source string, ok bool, err error)
	Set(ctx context.Context, tenantID uuid.UUID, key, value, source string) error
	Invalidate(ctx context.Context, tenantID uuid.UUID, key string) error
}

var secretKeys = map[string]bool{
	setting.KeySMTPPassword:     true,
	setting.KeySMSAPIKey:        true,
	setting.KeyPaymentSecretKey: true,
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ==================== Setting DTOs ====================

// SetSettingRequest writes a tenant setting
type SetSettingRequest struct {
	Value  string `json:"value" binding:"max=2000"`
	Secret *bool  `json:"secret"`
}

// SettingResponse is a resolved setting, masked when secret
type SettingResponse struct {
	Key       string     `json:"key"`
	Value     string     `json:"value"`
	Secret    bool       `json:"secret"`
	Source    string     `json:"source"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Service resolves settings as tenant value, then BIZHUB_* environment
// variable, then configured default
type Service struct {
	repo      setting.Repository
	defaults  map[string]string
	cache     Cache
	lookupEnv func(string) (string, bool)
	logger    *zap.Logger
}

// NewService creates a new settings Service
func NewService(repo setting.Repository, defaults map[string]string, logger *zap.Logger) *Service {
	if defaults == nil {
		defaults = map[string]string{}
	}
	return &Service{
		repo:      repo,
		defaults:  defaults,
		lookupEnv: os.LookupEnv,
		logger:    logger,
	}
}

// SetCache enables caching of resolved values
func (s *Service) SetCache(c Cache) {
	s.cache = c
}

// Value resolves key for the tenant. An unset key yields "".
func (s *Service) Value(ctx context.Context, tenantID uuid.UUID, key string) (string, error) {
	v, _, err := s.resolve(ctx, tenantID, key)
	return v, err
}

func (s *Service) resolve(ctx context.Context, tenantID uuid.UUID, key string) (string, string, error) {
	if s.cache != nil {
		if v, src, ok, err := s.cache.Get(ctx, tenantID, key); err == nil && ok {
			return v, src, nil
		} else if err != nil {
			s.logger.Warn("Settings cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	value, source := "", SourceUnset
	stored, err := s.repo.Find(ctx, tenantID, key)
	switch {
	case err == nil:
		value, source = stored.Value, SourceTenant
	case errors.Is(err, shared.ErrNotFound):
		if v, ok := s.lookupEnv(setting.EnvName(key)); ok {
			value, source = v, SourceEnv
		} else if v, ok := s.defaults[key]; ok {
			value, source = v, SourceDefault
		}
	default:
		return "", "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, tenantID, key, value, source); err != nil {
			s.logger.Warn("Settings cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return value, source, nil
}

// TaxRate returns the tenant's tax rate in percent
func (s *Service) TaxRate(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	v, err := s.Value(ctx, tenantID, setting.KeyTaxRate)
	if err != nil {
		return decimal.Zero, err
	}
	if v == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero, shared.NewDomainError("INVALID_SETTING", "Tax rate is not a number: "+v)
	}
	return rate, nil
}

// Currency returns the tenant's ISO 4217 currency code
func (s *Service) Currency(ctx context.Context, tenantID uuid.UUID) (string, error) {
	v, err := s.Value(ctx, tenantID, setting.KeyCurrency)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "GHS", nil
	}
	return strings.ToUpper(strings.TrimSpace(v)), nil
}

// ReminderDelay returns how long a cart must be idle before a reminder
func (s *Service) ReminderDelay(ctx context.Context, tenantID uuid.UUID) (time.Duration, error) {
	v, err := s.Value(ctx, tenantID, setting.KeyReminderDelay)
	if err != nil {
		return 0, err
	}
	if v == "" {
		return 24 * time.Hour, nil
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || hours <= 0 {
		return 0, shared.NewDomainError("INVALID_SETTING", "Reminder delay must be a positive number of hours: "+v)
	}
	return time.Duration(hours * float64(time.Hour)), nil
}

// Get returns the resolved setting, masking secrets
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID, key string) (*SettingResponse, error) {
	stored, err := s.repo.Find(ctx, tenantID, key)
	if err == nil {
		updated := stored.UpdatedAt
		return &SettingResponse{
			Key:       stored.Key,
			Value:     stored.Masked(),
			Secret:    stored.Secret,
			Source:    SourceTenant,
			UpdatedAt: &updated,
		}, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	value, source, err := s.resolve(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	resp := &SettingResponse{Key: key, Value: value, Secret: secretKeys[key], Source: source}
	if resp.Secret && value != "" {
		resp.Value = "********"
	}
	return resp, nil
}

// Set validates and stores a tenant value
func (s *Service) Set(ctx context.Context, tenantID uuid.UUID, key string, req SetSettingRequest) (*SettingResponse, error) {
	value := strings.TrimSpace(req.Value)
	if err := validateValue(key, value); err != nil {
		return nil, err
	}
	secret := secretKeys[key]
	if req.Secret != nil {
		secret = secret || *req.Secret
	}

	stored, err := setting.NewSetting(tenantID, key, value, secret)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, stored); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, tenantID, stored.Key); err != nil {
			s.logger.Warn("Settings cache invalidation failed", zap.String("key", stored.Key), zap.Error(err))
		}
	}

	s.logger.Info("Setting updated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("key", stored.Key),
		zap.Bool("secret", stored.Secret),
	)
	updated := stored.UpdatedAt
	return &SettingResponse{
		Key:       stored.Key,
		Value:     stored.Masked(),
		Secret:    stored.Secret,
		Source:    SourceTenant,
		UpdatedAt: &updated,
	}, nil
}

func validateValue(key, value string) error {
	switch key {
	case setting.KeyTaxRate:
		rate, err := decimal.NewFromString(value)
		if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return shared.NewDomainError("INVALID_SETTING", "Tax rate must be a percentage between 0 and 100")
		}
	case setting.KeyCurrency:
		if !currencyPattern.MatchString(value) {
			return shared.NewDomainError("INVALID_SETTING", "Currency must be a three-letter ISO code")
		}
	case setting.KeyReminderDelay:
		hours, err := strconv.ParseFloat(value, 64)
		if err != nil || hours <= 0 {
			return shared.NewDomainError("INVALID_SETTING", "Reminder delay must be a positive number of hours")
		}
	case setting.KeySMTPPort:
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			return shared.NewDomainError("INVALID_SETTING", "SMTP port must be between 1 and 65535")
		}
	}
	return nil
}
