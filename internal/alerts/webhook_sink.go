package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const webhookHTTPTimeout = 10 * time.Second

// WebhookSink posts alert notifications to an outbound webhook.
// Supported payload formats: slack, teams and generic http JSON.
// An outbound rate limiter bounds delivery bursts; notifications that
// exceed the limit are dropped, not queued (best-effort delivery).
type WebhookSink struct {
	url     string
	format  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewWebhookSink creates a webhook sink. ratePerMinute <= 0 disables
// outbound rate limiting.
func NewWebhookSink(url, format string, ratePerMinute int, logger *slog.Logger) *WebhookSink {
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if ratePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), ratePerMinute)
	}
	return &WebhookSink{
		url:     url,
		format:  format,
		client:  &http.Client{Timeout: webhookHTTPTimeout},
		limiter: limiter,
		logger:  logger,
	}
}

// Name returns the sink identifier
func (s *WebhookSink) Name() string { return "webhook-" + s.format }

// Handle posts the alert to the configured webhook
func (s *WebhookSink) Handle(ctx context.Context, alert Alert) error {
	if s.url == "" {
		return nil
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.logger.Debug("webhook notification dropped by rate limit", "alert_id", alert.ID)
		return nil
	}

	var body []byte
	var err error
	switch s.format {
	case "slack":
		body, err = json.Marshal(map[string]string{
			"text": fmt.Sprintf("%s *%s*: %s", severityLabel(alert.Severity), alert.Title, alert.Message),
		})
	case "teams":
		body, err = json.Marshal(map[string]interface{}{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": severityColor(alert.Severity),
			"summary":    alert.Title,
			"title":      fmt.Sprintf("pulsemon Alert: %s", alert.Title),
			"text":       alert.Message,
		})
	default:
		body, err = json.Marshal(map[string]interface{}{"alert": alert})
	}
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	return s.post(ctx, body)
}

func (s *WebhookSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s Severity) string {
	switch s {
	case SeverityEmergency:
		return "[EMERGENCY]"
	case SeverityCritical:
		return "[CRITICAL]"
	case SeverityWarning:
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s Severity) string {
	switch s {
	case SeverityEmergency, SeverityCritical:
		return "FF4F6A"
	case SeverityWarning:
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
