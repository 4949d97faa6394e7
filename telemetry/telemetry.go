// Package telemetry mirrors tracker reports to an MQTT broker.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"i4.energy/across/gpstracker/tracker"
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("telemetry: broker did not acknowledge")

type Config struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
	Retained bool
	// Timeout bounds connecting and each publish.
	Timeout time.Duration

	// CommandTopic, when set together with OnCommand, is subscribed to on
	// every (re)connect; each message payload is an operator line.
	CommandTopic string
	OnCommand    func(line string) bool
}

func (c *Config) setDefaults() {
	if c.ClientID == "" {
		c.ClientID = "gpstracker"
	}
	if c.Topic == "" {
		c.Topic = "gpstracker/fix"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
}

// client is the part of mqtt.Client the publisher needs.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher implements tracker.Reporter on top of an MQTT client.
type Publisher struct {
	client client
	config Config
	logger *slog.Logger
}

var _ tracker.Reporter = (*Publisher)(nil)

// Connect opens a client connection to the configured broker.
func Connect(config Config, logger *slog.Logger) (*Publisher, error) {
	if config.Broker == "" {
		return nil, errors.New("telemetry: broker is required")
	}
	config.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(config.Broker).
		SetClientID(config.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(config.Timeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "broker", config.Broker, "error", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		logger.Info("MQTT connected", "broker", config.Broker, "topic", config.Topic)
		if config.CommandTopic == "" || config.OnCommand == nil {
			return
		}
		token := c.Subscribe(config.CommandTopic, 1, commandHandler(config.OnCommand, logger))
		if token.WaitTimeout(config.Timeout) && token.Error() != nil {
			logger.Error("MQTT subscribe", "topic", config.CommandTopic, "error", token.Error())
		}
	})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(config.Timeout) {
		return nil, fmt.Errorf("connect %s: %w", config.Broker, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", config.Broker, err)
	}
	return newPublisher(c, config, logger), nil
}

func newPublisher(c client, config Config, logger *slog.Logger) *Publisher {
	config.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: c, config: config, logger: logger}
}

// Report publishes r as JSON and waits for the broker's acknowledgement,
// the publish timeout or ctx, whichever comes first.
func (p *Publisher) Report(ctx context.Context, r tracker.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("telemetry: marshal report: %w", err)
	}

	token := p.client.Publish(p.config.Topic, p.config.QoS, p.config.Retained, payload)
	timer := time.NewTimer(p.config.Timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("telemetry: publish to %s: %w", p.config.Topic, err)
	}
	p.logger.Debug("report published", "topic", p.config.Topic, "bytes", len(payload))
	return nil
}

// commandHandler forwards operator lines received over MQTT.
func commandHandler(submit func(string) bool, logger *slog.Logger) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		line := strings.TrimSpace(string(msg.Payload()))
		if line == "" {
			return
		}
		if !submit(line) {
			logger.Warn("operator command dropped", "topic", msg.Topic(), "command", line)
			return
		}
		logger.Info("operator command queued", "topic", msg.Topic(), "command", line)
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
