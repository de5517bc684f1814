// internal/publish/mqtt.go
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/tamzrod/portenta-gateway/internal/gateway"
)

// Publisher republishes poll updates to an MQTT broker, one retained topic
// per channel: {prefix}/{channel}. Delivery is best-effort; a broker outage
// never disturbs polling.
type Publisher struct {
	cli     paho.Client
	prefix  string
	timeout time.Duration
	log     *zap.Logger
}

type Config struct {
	BrokerURL   string
	TopicPrefix string
	ClientID    string
	Timeout     time.Duration
}

// New connects to the broker. Callers skip construction entirely when no
// broker is configured.
func New(cfg Config, log *zap.Logger) (*Publisher, error) {
	if cfg.BrokerURL == "" {
		return nil, errors.New("publish: broker url required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(cfg.Timeout).
		SetAutoReconnect(true)

	cli := paho.NewClient(opts)
	token := cli.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("publish: connect to %s timed out", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("publish: connect to %s: %w", cfg.BrokerURL, err)
	}

	return &Publisher{cli: cli, prefix: cfg.TopicPrefix, timeout: cfg.Timeout, log: log}, nil
}

// update is the published payload.
type update struct {
	Value  float64   `json:"value"`
	At     time.Time `json:"at"`
	Health string    `json:"health"`
}

// Update publishes one poll update. Registered as a gateway subscriber.
func (p *Publisher) Update(u gateway.Update) {
	payload, err := json.Marshal(update{
		Value:  u.Sample.Value,
		At:     u.Sample.At,
		Health: u.Sample.Health.String(),
	})
	if err != nil {
		return
	}

	topic := p.prefix + "/" + u.Channel
	token := p.cli.Publish(topic, 0, true, payload)

	// Fire-and-forget; surface failures asynchronously in the log. The wait is
	// bounded so a stalled broker cannot accumulate blocked goroutines.
	go func() {
		if !token.WaitTimeout(p.timeout) {
			p.log.Warn("publish timed out", zap.String("topic", topic))
			return
		}
		if err := token.Error(); err != nil {
			p.log.Warn("publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.cli.Disconnect(250)
}
