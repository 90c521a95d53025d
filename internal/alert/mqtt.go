package alert

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"sentinel1090/internal/clock"
)

// MQTTConfig names one MQTT broker delivery interface (spec §3 Channel
// Interface "mqtt"). TopicPrefix/Region/ClientID compose into the per-channel
// publish topic the way mqtt_interface.py's get_topic_for_channel does.
type MQTTConfig struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string
	Region      string
	Username    string
	Password    string
	QoS         byte
}

// mqttEnvelope is the JSON wrapper every published message carries,
// grounded on format_outgoing_message's standardized message_data shape.
type mqttEnvelope struct {
	Timestamp string `json:"timestamp"`
	Channel   string `json:"channel"`
	Source    string `json:"source"`
	Type      string `json:"message_type"`
	Data      string `json:"data"`
}

// MQTTInterface publishes outbound alerts to a broker over paho.
type MQTTInterface struct {
	cfg   MQTTConfig
	clock clock.Clock

	mu      sync.Mutex
	client  mqtt.Client
	healthy bool
}

func NewMQTTInterface(cfg MQTTConfig, clk clock.Clock) *MQTTInterface {
	return &MQTTInterface{cfg: cfg, clock: clk}
}

// Connect establishes (or reuses) the broker connection.
func (m *MQTTInterface) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil && m.client.IsConnected() {
		return nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(m.cfg.BrokerURL).
		SetClientID(m.cfg.ClientID).
		SetAutoReconnect(false).
		SetConnectTimeout(10 * time.Second)
	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
		opts.SetPassword(m.cfg.Password)
	}
	opts.SetConnectionLostHandler(func(mqtt.Client, error) {
		m.mu.Lock()
		m.healthy = false
		m.mu.Unlock()
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("alert: mqtt connect timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("alert: mqtt connect: %w", err)
	}

	m.client = client
	m.healthy = true
	return nil
}

// topicForChannel mirrors mqtt_interface.py's get_topic_for_channel:
// <topic_prefix>/<region>/c/<channel_name>/<client_id>.
func (m *MQTTInterface) topicForChannel(channel string) string {
	return fmt.Sprintf("%s/%s/c/%s/%s", m.cfg.TopicPrefix, m.cfg.Region, channel, m.cfg.ClientID)
}

// Send publishes payload (already rendered, and already AES-CTR encrypted
// upstream if the channel has a PSK) to the channel's topic wrapped in the
// standard envelope.
func (m *MQTTInterface) Send(channel string, payload []byte) error {
	if err := m.Connect(); err != nil {
		return err
	}

	env := mqttEnvelope{
		Timestamp: m.clock.Now().UTC().Format(time.RFC3339),
		Channel:   channel,
		Source:    "sentinel1090",
		Type:      "aircraft_alert",
		Data:      string(payload),
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("alert: marshal mqtt envelope: %w", err)
	}

	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	token := client.Publish(m.topicForChannel(channel), m.cfg.QoS, false, body)
	if !token.WaitTimeout(10 * time.Second) {
		m.mu.Lock()
		m.healthy = false
		m.mu.Unlock()
		return fmt.Errorf("alert: mqtt publish timed out")
	}
	if err := token.Error(); err != nil {
		m.mu.Lock()
		m.healthy = false
		m.mu.Unlock()
		return fmt.Errorf("alert: mqtt publish: %w", err)
	}
	return nil
}

func (m *MQTTInterface) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy && m.client != nil && m.client.IsConnected()
}

func (m *MQTTInterface) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Disconnect(250)
		m.client = nil
	}
	m.healthy = false
	return nil
}
