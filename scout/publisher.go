package scout

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 2 * time.Second

// ConnectMQTT connects to the broker in the config. It returns nil
// with no error when no broker is configured, which disables telemetry.
// Connection retries after the initial connect are handled by the
// client's auto-reconnect.
func ConnectMQTT(cfg MQTTConfig) (mqtt.Client, error) {
	if cfg.Broker == "" {
		return nil, nil
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("gridscout-%d", time.Now().Unix())
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Printf("[MQTT] connected to %s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		log.Printf("[MQTT] connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connect to %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	return client, nil
}

// Publisher sends exploration telemetry over MQTT. It implements the
// controller's Telemetry interface: one retained pose message per
// cycle plus a completion event.
type Publisher struct {
	client mqtt.Client
	prefix string
	qos    byte
	retain bool
}

// NewPublisher wraps a connected client. An empty prefix defaults to
// "gridscout".
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = "gridscout"
	}
	return &Publisher{
		client: client,
		prefix: prefix,
		qos:    0,
		retain: true,
	}
}

// poseMessage is the per-cycle telemetry payload.
type poseMessage struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Heading    float64 `json:"heading"`
	Confidence float64 `json:"confidence"`
	CellCount  int     `json:"cellCount"`
	Timestamp  int64   `json:"timestamp"`
}

// statusMessage is published when a run ends.
type statusMessage struct {
	Status    string `json:"status"`
	Reason    string `json:"reason"`
	CellCount int    `json:"cellCount"`
	Timestamp int64  `json:"timestamp"`
}

// CycleUpdate publishes the current pose and map stats.
func (p *Publisher) CycleUpdate(pose Pose, confidence float64, cellCount int) error {
	msg := poseMessage{
		X:          pose.X,
		Y:          pose.Y,
		Heading:    pose.Heading,
		Confidence: confidence,
		CellCount:  cellCount,
		Timestamp:  time.Now().UnixMilli(),
	}
	return p.publish(p.prefix+"/pose", msg)
}

// RunComplete publishes the end-of-run event.
func (p *Publisher) RunComplete(reason string, cellCount int) error {
	msg := statusMessage{
		Status:    "complete",
		Reason:    reason,
		CellCount: cellCount,
		Timestamp: time.Now().UnixMilli(),
	}
	return p.publish(p.prefix+"/status", msg)
}

func (p *Publisher) publish(topic string, payload interface{}) error {
	if p.client == nil {
		return fmt.Errorf("publish %s: no client", topic)
	}
	if !p.client.IsConnected() {
		return fmt.Errorf("publish %s: not connected", topic)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
