package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/errkind"
	"github.com/csmblade/panfm-go-rewrite/internal/models"
)

// WebhookChannel POSTs a JSON payload to an operator-configured URL.
type WebhookChannel struct {
	id     string
	url    string
	token  string
	client *http.Client
}

func NewWebhookChannel(id, url, token string) *WebhookChannel {
	return &WebhookChannel{id: id, url: url, token: token, client: &http.Client{Timeout: 10 * time.Second}}
}

func (c *WebhookChannel) ID() string   { return c.id }
func (c *WebhookChannel) Kind() string { return "webhook" }

type webhookPayload struct {
	DeviceID    string  `json:"deviceId"`
	Metric      string  `json:"metric"`
	Severity    string  `json:"severity"`
	Actual      float64 `json:"actual"`
	Threshold   float64 `json:"threshold"`
	Message     string  `json:"message"`
	TriggerTime string  `json:"triggerTime"`
}

func (c *WebhookChannel) Send(ctx context.Context, trigger models.Trigger, history models.AlertHistory) error {
	return withRetry(ctx, c.id, func(ctx context.Context) error {
		return c.send(ctx, history)
	})
}

func (c *WebhookChannel) send(ctx context.Context, history models.AlertHistory) error {
	payload := webhookPayload{
		DeviceID:    history.DeviceID.String(),
		Metric:      history.Metric,
		Severity:    string(history.Severity),
		Actual:      history.Actual,
		Threshold:   history.Threshold,
		Message:     history.Message,
		TriggerTime: history.TriggerTime.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errkind.New(errkind.Validation, "notify.webhook.marshal", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errkind.New(errkind.Validation, "notify.webhook.request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errkind.New(errkind.Transient, "notify.webhook.send", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return errkind.New(errkind.Transient, "notify.webhook.send", fmt.Errorf("webhook returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return errkind.New(errkind.Upstream, "notify.webhook.send", fmt.Errorf("webhook returned %d", resp.StatusCode))
	}
	return nil
}
