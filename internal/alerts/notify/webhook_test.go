package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"kilowatch/internal/alerts"
)

func sampleAlert() alerts.Alert {
	return alerts.Alert{
		Kind:          alerts.KindAnomaly,
		Message:       "abnormally high consumption of 8.00 kWh by Amphi A (Campus Nord) on 2025-01-10 17:00",
		EquipmentID:   4,
		EquipmentName: "Amphi A",
		BuildingName:  "Campus Nord",
		EnergyKWh:     8,
		RaisedAt:      time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC),
	}
}

func TestWebhookChannelSend(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("NewWebhookChannel: %v", err)
	}
	if err := channel.Notify(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 {
		t.Fatalf("got %d requests, want 1", len(bodies))
	}
	var payload struct {
		MsgType string `json:"msgtype"`
		Text    struct {
			Content string `json:"content"`
		} `json:"text"`
	}
	if err := json.Unmarshal([]byte(bodies[0]), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.MsgType != "text" {
		t.Errorf("msgtype = %q, want text", payload.MsgType)
	}
	if !strings.Contains(payload.Text.Content, "Amphi A") {
		t.Errorf("content missing equipment name: %q", payload.Text.Content)
	}
	if !strings.Contains(payload.Text.Content, "Consumption Anomaly") {
		t.Errorf("content missing alert label: %q", payload.Text.Content)
	}
}

func TestWebhookChannelNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("NewWebhookChannel: %v", err)
	}
	if err := channel.Notify(context.Background(), sampleAlert()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestWebhookChannelEmptyURL(t *testing.T) {
	if _, err := NewWebhookChannel(""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestFormatAlertOmitsEmptyFields(t *testing.T) {
	content := FormatAlert(alerts.Alert{Kind: alerts.KindWaste, Message: "over budget"})
	if strings.Contains(content, "Equipment:") || strings.Contains(content, "Building:") {
		t.Errorf("empty fields should be omitted: %q", content)
	}
	if !strings.Contains(content, "Energy Waste") {
		t.Errorf("label missing: %q", content)
	}
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, alerts.Alert) error {
	return errors.New("boom")
}

type countingNotifier struct {
	n int
}

func (c *countingNotifier) Notify(context.Context, alerts.Alert) error {
	c.n++
	return nil
}

func TestMultiDeliversToAllChannels(t *testing.T) {
	first := &countingNotifier{}
	second := &countingNotifier{}
	multi := NewMulti(first, failingNotifier{}, second)

	err := multi.Notify(context.Background(), sampleAlert())
	if err == nil {
		t.Fatal("expected joined error from failing channel")
	}
	if first.n != 1 || second.n != 1 {
		t.Errorf("all channels should receive the alert: %d / %d", first.n, second.n)
	}
}
