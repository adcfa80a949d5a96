package monitor

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig selects the broker and topic.
type MQTTConfig struct {
	Broker   string // tcp://host:1883
	ClientID string
	Topic    string
	Device   string // copied into every payload
}

// MQTTPublisher publishes events to an MQTT broker.
type MQTTPublisher struct {
	client paho.Client
	topic  string
	device string
	now    func() time.Time
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "pal-monitor"
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &MQTTPublisher{
		client: client,
		topic:  cfg.Topic,
		device: cfg.Device,
		now:    time.Now,
	}, nil
}

// Publish sends evt with QoS 0, not retained.
func (p *MQTTPublisher) Publish(evt Event) error {
	payload, err := FormatPayload(p.device, p.now(), evt)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
