package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appnotification "github.com/bizhub/backend/internal/application/notification"
	"github.com/bizhub/backend/internal/domain/setting"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SMSSender posts text messages to an HTTP SMS API:
//
//	POST {baseURL}/messages
//	Authorization: Bearer {api key}
//	{"from": sender id, "to": phone, "content": text}
type SMSSender struct {
	baseURL    string
	settings   SettingsReader
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSMSSender creates a new SMSSender
func NewSMSSender(baseURL string, settings SettingsReader, timeout time.Duration, logger *zap.Logger) *SMSSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMSSender{
		baseURL:    strings.TrimRight(baseURL, "/"),
		settings:   settings,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type smsRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Content string `json:"content"`
}

// SendSMS delivers msg. Any non-2xx response is an error.
func (s *SMSSender) SendSMS(ctx context.Context, tenantID uuid.UUID, msg appnotification.SMSMessage) error {
	cfg, err := readAll(ctx, s.settings, tenantID, setting.KeySMSAPIKey, setting.KeySMSSenderID)
	if err != nil {
		return err
	}
	if s.baseURL == "" || cfg[setting.KeySMSAPIKey] == "" {
		return fmt.Errorf("sms: %w", ErrNotConfigured)
	}

	body, err := json.Marshal(smsRequest{
		From:    cfg[setting.KeySMSSenderID],
		To:      msg.To,
		Content: msg.Body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg[setting.KeySMSAPIKey])

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	s.logger.Info("SMS sent", zap.String("tenant_id", tenantID.String()))
	return nil
}

var _ appnotification.SMSSender = (*SMSSender)(nil)
