package mqttclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Options configures the broker connection.
type Options struct {
	BrokerURL string // tcp://host:port
	ClientID  string
	Username  string
	Password  string
	QoS       byte
	Retain    bool
}

// Client wraps paho with auto-reconnect, credentials and fire-and-forget publishing.
type Client struct {
	client    mqtt.Client
	opts      Options
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClient(o Options, logger *slog.Logger) *Client {
	c := &Client{
		opts:   o,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.BrokerURL)
	opts.SetClientID(o.ClientID)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	// Session settings
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Callbacks keep internal state accurate
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", o.BrokerURL, "client_id", o.ClientID)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect waits for the initial connection, and respects ctx and Disconnect().
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}

	if c.IsConnected() {
		return nil
	}

	// With ConnectRetry(true) paho keeps retrying internally until it succeeds.
	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

// Publish queues payload for topic and returns immediately. Delivery errors
// are logged once the token completes; the caller never waits for them.
// Until the first connection succeeds payloads are dropped.
func (c *Client) Publish(topic string, payload []byte) {
	if !c.IsConnected() {
		c.logger.Debug("mqtt not connected, dropping", "topic", topic)
		return
	}
	token := c.client.Publish(topic, c.opts.QoS, c.opts.Retain, payload)
	go func() {
		select {
		case <-token.Done():
		case <-c.stopCh:
			return
		}
		if err := token.Error(); err != nil {
			c.logger.Warn("mqtt publish failed", "topic", topic, "error", err)
			return
		}
		c.logger.Debug("published", "topic", topic, "payload", string(payload))
	}()
}

// Subscribe registers handler for topic and waits for the broker's ack.
func (c *Client) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := c.client.Subscribe(topic, c.opts.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	c.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", c.opts.QoS)
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the MQTT connection.
// Idempotent; after Disconnect, Connect returns "client stopped".
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		// Paho quiesces in-flight work for the given ms.
		c.client.Disconnect(250)
		c.setConnected(false)
		c.logger.Info("mqtt disconnected")
	})
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
