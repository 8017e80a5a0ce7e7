package control

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"memetrader/internal/engine"
)

// LogNotifier writes trading events to a logger. The zero collaborator
// for deployments without a chat channel.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.New(log.Writer(), "[notify] ", log.LstdFlags)
	}
	return &LogNotifier{logger: logger}
}

// Compile-time interface check.
var _ engine.Notifier = (*LogNotifier)(nil)

// Notify logs the event.
func (n *LogNotifier) Notify(_ context.Context, ev engine.Event) {
	if ev.Position != nil {
		n.logger.Printf("%s %s mint=%s status=%s pnl=%.4f %s",
			ev.Type, ev.Position.ID, ev.Position.Mint, ev.Position.Status,
			ev.Position.RealizedPnL, ev.Detail)
		return
	}
	n.logger.Printf("%s %s", ev.Type, ev.Detail)
}

// WebhookNotifier POSTs trading events as JSON to a chat-bot webhook.
// Delivery is best effort; failures are logged and dropped.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *log.Logger
}

// NewWebhookNotifier creates a WebhookNotifier for the given URL.
func NewWebhookNotifier(url string, logger *log.Logger) *WebhookNotifier {
	if logger == nil {
		logger = log.New(log.Writer(), "[notify] ", log.LstdFlags)
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Compile-time interface check.
var _ engine.Notifier = (*WebhookNotifier)(nil)

// webhookPayload is the JSON body sent to the webhook.
type webhookPayload struct {
	Type     string            `json:"type"`
	Detail   string            `json:"detail,omitempty"`
	Position *PositionResponse `json:"position,omitempty"`
	SentAt   int64             `json:"sent_at_ms"`
}

// Notify delivers the event to the webhook.
func (n *WebhookNotifier) Notify(ctx context.Context, ev engine.Event) {
	payload := webhookPayload{
		Type:   ev.Type,
		Detail: ev.Detail,
		SentAt: time.Now().UnixMilli(),
	}
	if ev.Position != nil {
		p := positionResponse(ev.Position)
		payload.Position = &p
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Printf("Webhook marshal failed: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Printf("Webhook request failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Printf("Webhook delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Printf("Webhook delivery failed: status %d", resp.StatusCode)
	}
}
