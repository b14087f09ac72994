package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/mindreader/internal/log"
)

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// MQTTConfig configures the MQTT publisher.
type MQTTConfig struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Topic    string
	Timeout  time.Duration
}

// mqttClient is the part of mqtt.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes a JSON update to a retained topic whenever the
// state changes.
type MQTTPublisher struct {
	client  mqttClient
	topic   string
	timeout time.Duration
	sent    bool
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("mqtt connection lost", "broker", cfg.Broker, "error", err)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	log.Info("connected to mqtt broker", "broker", cfg.Broker, "topic", cfg.Topic)

	return newMQTTPublisher(client, cfg.Topic, cfg.Timeout), nil
}

func newMQTTPublisher(client mqttClient, topic string, timeout time.Duration) *MQTTPublisher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &MQTTPublisher{client: client, topic: topic, timeout: timeout}
}

// Publish sends u when the state changed, and always for the first update.
func (p *MQTTPublisher) Publish(u Update) error {
	if p.sent && !u.Changed() {
		return nil
	}

	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	token := p.client.Publish(p.topic, 0, true, payload)
	if !token.WaitTimeout(p.timeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	p.sent = true
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
