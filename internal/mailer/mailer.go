// Package mailer delivers transactional email to story authors. Delivery is
// best effort: a failed notification is logged and counted but never fails
// the operation that triggered it.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Message is a single transactional email.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
}

// Mailer sends a single email.
type Mailer interface {
	SendEmail(ctx context.Context, msg Message) error
}

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoMailer sends mail through the Brevo transactional API.
type BrevoMailer struct {
	endpoint    string
	apiKey      string
	senderEmail string
	senderName  string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewBrevoMailer creates a Brevo-backed mailer.
func NewBrevoMailer(apiKey, senderEmail, senderName string, logger *zap.Logger) *BrevoMailer {
	return &BrevoMailer{
		endpoint:    brevoEndpoint,
		apiKey:      apiKey,
		senderEmail: senderEmail,
		senderName:  senderName,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logger.Named("BrevoMailer"),
	}
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

func (m *BrevoMailer) SendEmail(ctx context.Context, msg Message) error {
	payload := brevoRequest{
		Sender:      brevoAddress{Email: m.senderEmail, Name: m.senderName},
		To:          []brevoAddress{{Email: msg.ToEmail, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		m.logger.Error("Brevo rejected email",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return fmt.Errorf("email provider returned status %d", resp.StatusCode)
	}

	m.logger.Info("Email sent", zap.String("subject", msg.Subject))
	return nil
}

// LogMailer writes emails to the log instead of sending them. Used in local
// development and in tests where no provider credentials exist.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("LogMailer")}
}

func (m *LogMailer) SendEmail(_ context.Context, msg Message) error {
	m.logger.Info("Email (not sent, log-only mailer)",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject))
	return nil
}
