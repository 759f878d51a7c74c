// Package notify implements delivery channels for dashboard alerts.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"kilowatch/internal/alerts"
	"kilowatch/internal/observability/metrics"
)

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// WebhookChannel posts alerts to a webhook endpoint using a
// DingTalk/WeCom-compatible text payload.
type WebhookChannel struct {
	url    string
	client *http.Client
}

// WebhookOption configures the webhook channel.
type WebhookOption func(*WebhookChannel)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(ch *WebhookChannel) {
		if client != nil {
			ch.client = client
		}
	}
}

// NewWebhookChannel constructs a webhook channel.
func NewWebhookChannel(url string, opts ...WebhookOption) (*WebhookChannel, error) {
	if url == "" {
		return nil, errors.New("webhook channel: empty url")
	}
	channel := &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(channel)
	}
	return channel, nil
}

// Notify implements alerts.Notifier.
func (w *WebhookChannel) Notify(ctx context.Context, alert alerts.Alert) error {
	if w == nil || w.url == "" {
		return errors.New("webhook channel: empty url")
	}
	err := w.send(ctx, alert)
	if err != nil {
		metrics.IncAlertPublished("webhook", metrics.ResultError)
		return err
	}
	metrics.IncAlertPublished("webhook", metrics.ResultSuccess)
	return nil
}

func (w *WebhookChannel) send(ctx context.Context, alert alerts.Alert) error {
	payload := webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: FormatAlert(alert)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook channel: non-2xx response %d", resp.StatusCode)
	}
	return nil
}

// FormatAlert renders the plain-text body shared by all channels.
func FormatAlert(alert alerts.Alert) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "[Energy Alert: %s]\n", alertLabel(alert.Kind))
	fmt.Fprintf(&b, "%s\n", alert.Message)
	if alert.EquipmentName != "" {
		fmt.Fprintf(&b, "Equipment: %s\n", alert.EquipmentName)
	}
	if alert.BuildingName != "" {
		fmt.Fprintf(&b, "Building: %s\n", alert.BuildingName)
	}
	if alert.EnergyKWh > 0 {
		fmt.Fprintf(&b, "Energy: %.2f kWh\n", alert.EnergyKWh)
	}
	if !alert.RaisedAt.IsZero() {
		fmt.Fprintf(&b, "Raised: %s", alert.RaisedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}

func alertLabel(kind alerts.Kind) string {
	switch kind {
	case alerts.KindAnomaly:
		return "Consumption Anomaly"
	case alerts.KindWaste:
		return "Energy Waste"
	case alerts.KindOutageConsumption:
		return "Consumption During Outage"
	default:
		return string(kind)
	}
}
