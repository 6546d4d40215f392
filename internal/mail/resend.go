package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Fernatzoc/skynet-next/internal/application"
	"github.com/Fernatzoc/skynet-next/internal/logging"
)

// DefaultResendURL is the Resend send-email endpoint.
const DefaultResendURL = "https://api.resend.com/emails"

const maxResponseBody = 64 << 10

// ResendConfig configures a ResendMailer.
type ResendConfig struct {
	APIKey     string
	Endpoint   string
	From       string
	HTTPClient *http.Client
	Location   *time.Location
	Now        func() time.Time
	Logger     *slog.Logger
}

// ResendMailer sends visit reports through the Resend HTTP API.
type ResendMailer struct {
	apiKey   string
	endpoint string
	from     string
	client   *http.Client
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

var _ application.Mailer = (*ResendMailer)(nil)

// NewResendMailer validates cfg and returns a mailer.
func NewResendMailer(cfg ResendConfig) (*ResendMailer, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("mail: resend API key is required")
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		return nil, fmt.Errorf("mail: sender address is required")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultResendURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ResendMailer{
		apiKey:   apiKey,
		endpoint: endpoint,
		from:     from,
		client:   client,
		loc:      loc,
		now:      now,
		logger:   cfg.Logger,
	}, nil
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID         string `json:"id"`
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// SendVisitReport renders and sends the report, returning the Resend email id.
func (m *ResendMailer) SendVisitReport(ctx context.Context, email application.VisitReportEmail) (string, error) {
	if m == nil {
		return "", fmt.Errorf("ResendMailer is nil")
	}
	msg, err := RenderVisitReport(email, m.now(), m.loc)
	if err != nil {
		return "", err
	}
	return m.Send(ctx, msg)
}

// Send posts an already rendered message.
func (m *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	logger := m.log(ctx).With("subject", msg.Subject)

	body, err := json.Marshal(resendRequest{From: m.from, To: []string{msg.To}, Subject: msg.Subject, HTML: msg.HTML})
	if err != nil {
		return "", fmt.Errorf("encode resend request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		logger.Error("resend request failed", "error", err)
		return "", fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("read resend response: %w", err)
	}
	var decoded resendResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		provErr := &ProviderError{StatusCode: resp.StatusCode, Name: decoded.Name, Message: decoded.Message}
		logger.Warn("resend rejected email", "status", resp.StatusCode, "error", provErr)
		return "", provErr
	}

	logger.Info("visit report sent", "email_id", decoded.ID)
	return decoded.ID, nil
}

func (m *ResendMailer) log(ctx context.Context) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = m.logger
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return logger.With("component", "resend_mailer")
}
