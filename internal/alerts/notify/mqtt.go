package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"kilowatch/internal/alerts"
	"kilowatch/internal/observability/metrics"
)

const defaultPublishTimeout = 10 * time.Second

// MQTTChannel publishes alerts as JSON to an MQTT topic, one subtopic per
// alert kind.
type MQTTChannel struct {
	client      mqtt.Client
	topicPrefix string
}

// MQTTConfig holds broker settings for the alert channel.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// NewMQTTChannel connects to the broker and returns a channel.
func NewMQTTChannel(cfg MQTTConfig) (*MQTTChannel, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt channel: empty broker address")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "kilowatch"
	}
	topicPrefix := cfg.TopicPrefix
	if topicPrefix == "" {
		topicPrefix = "kilowatch/alerts"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}
	return &MQTTChannel{client: client, topicPrefix: topicPrefix}, nil
}

// Notify implements alerts.Notifier.
func (m *MQTTChannel) Notify(ctx context.Context, alert alerts.Alert) error {
	if m == nil || m.client == nil {
		return errors.New("mqtt channel: not connected")
	}
	err := m.publish(alert)
	if err != nil {
		metrics.IncAlertPublished("mqtt", metrics.ResultError)
		return err
	}
	metrics.IncAlertPublished("mqtt", metrics.ResultSuccess)
	return nil
}

func (m *MQTTChannel) publish(alert alerts.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}
	topic := fmt.Sprintf("%s/%s", m.topicPrefix, alert.Kind)
	token := m.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return errors.New("mqtt channel: publish timed out")
	}
	if token.Error() != nil {
		return fmt.Errorf("publishing alert: %w", token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTTChannel) Close() {
	if m != nil && m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
	}
}
