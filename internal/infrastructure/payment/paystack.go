// Package payment contains hosted-checkout payment gateway adapters.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/bizhub/backend/internal/domain/setting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	ProviderPaystack       = "paystack"
	paystackDefaultBaseURL = "https://api.paystack.co"
)

// SettingsReader resolves the tenant's gateway secret key
type SettingsReader interface {
	Value(ctx context.Context, tenantID uuid.UUID, key string) (string, error)
}

// PaystackConfig holds the Paystack API settings
type PaystackConfig struct {
	BaseURL string
	Timeout time.Duration
	// CallbackURL is used when a request names none
	CallbackURL string
}

// PaystackGateway implements finance.PaymentGateway against the Paystack
// transaction API. Amounts are sent in minor units.
type PaystackGateway struct {
	baseURL     string
	callbackURL string
	settings    SettingsReader
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewPaystackGateway creates a new Paystack gateway
func NewPaystackGateway(cfg PaystackConfig, settings SettingsReader, logger *zap.Logger) *PaystackGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = paystackDefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &PaystackGateway{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		callbackURL: cfg.CallbackURL,
		settings:    settings,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

// Name returns the provider name
func (g *PaystackGateway) Name() string {
	return ProviderPaystack
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackVerifyData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Metadata  struct {
		InvoiceID string `json:"invoice_id"`
	} `json:"metadata"`
}

// InitializeTransaction opens a hosted checkout session
func (g *PaystackGateway) InitializeTransaction(ctx context.Context, req *finance.PaymentRequest) (*finance.PaymentSession, error) {
	callback := req.CallbackURL
	if callback == "" {
		callback = g.callbackURL
	}
	body := paystackInitRequest{
		Email:       req.Email,
		Amount:      toMinorUnits(req.Amount),
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: callback,
		Metadata: map[string]string{
			"invoice_id":     req.InvoiceID.String(),
			"invoice_number": req.InvoiceNumber,
			"tenant_id":      req.TenantID.String(),
		},
	}

	var data paystackInitData
	if err := g.call(ctx, req.TenantID, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: missing authorization url", finance.ErrGatewayInvalidResponse)
	}

	g.logger.Info("Paystack transaction initialized",
		zap.String("reference", data.Reference),
		zap.String("invoice_number", req.InvoiceNumber),
	)
	return &finance.PaymentSession{
		Reference:        data.Reference,
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
	}, nil
}

// VerifyTransaction fetches the transaction status for a reference
func (g *PaystackGateway) VerifyTransaction(ctx context.Context, tenantID uuid.UUID, reference string) (*finance.PaymentVerification, error) {
	var data paystackVerifyData
	if err := g.call(ctx, tenantID, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data); err != nil {
		return nil, err
	}

	v := &finance.PaymentVerification{
		Reference: data.Reference,
		Status:    mapPaystackStatus(data.Status),
		Amount:    fromMinorUnits(data.Amount),
		Currency:  data.Currency,
	}
	if v.Reference == "" {
		v.Reference = reference
	}
	if id, err := uuid.Parse(data.Metadata.InvoiceID); err == nil {
		v.InvoiceID = id
	}
	return v, nil
}

func (g *PaystackGateway) call(ctx context.Context, tenantID uuid.UUID, method, path string, in, out any) error {
	secret, err := g.settings.Value(ctx, tenantID, setting.KeyPaymentSecretKey)
	if err != nil {
		return err
	}
	if secret == "" {
		return finance.ErrGatewayNotConfigured
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+secret)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", finance.ErrGatewayRequestFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", finance.ErrGatewayRequestFailed, err)
	}

	var env paystackEnvelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode == http.StatusNotFound {
		return finance.ErrPaymentNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || (decodeErr == nil && !env.Status) {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		g.logger.Warn("Paystack request rejected",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		return fmt.Errorf("%w: %d %s", finance.ErrGatewayRequestFailed, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: %v", finance.ErrGatewayInvalidResponse, decodeErr)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", finance.ErrGatewayInvalidResponse, err)
	}
	return nil
}

func mapPaystackStatus(s string) finance.GatewayPaymentStatus {
	switch s {
	case "success":
		return finance.GatewayPaymentStatusPaid
	case "failed", "abandoned", "reversed":
		return finance.GatewayPaymentStatusFailed
	default:
		return finance.GatewayPaymentStatusPending
	}
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func fromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

var _ finance.PaymentGateway = (*PaystackGateway)(nil)
