// Package notification delivers email over SMTP and text messages over an
// HTTP SMS API, reading each tenant's credentials from the settings store.
package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotConfigured is returned when a tenant has no credentials for a channel
var ErrNotConfigured = errors.New("notification channel not configured")

// SettingsReader resolves a tenant setting with environment and default fallbacks
type SettingsReader interface {
	Value(ctx context.Context, tenantID uuid.UUID, key string) (string, error)
}

// readAll resolves keys in order, stopping at the first error
func readAll(ctx context.Context, settings SettingsReader, tenantID uuid.UUID, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, err := settings.Value(ctx, tenantID, k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
