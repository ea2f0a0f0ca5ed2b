package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/dingz-bridge/internal/infrastructure/config"
)

// Client is the service's connection to the broker.
//
// Beyond the paho client it remembers subscriptions so they survive a
// reconnect, and it keeps dingz-bridge/status current: online after every
// connect, a graceful offline on Close and the LWT offline on a crash.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	connected atomic.Bool

	subMu         sync.RWMutex
	subscriptions map[string]subscription

	hookMu       sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)

	logger atomic.Pointer[loggerBox]
}

// Logger is the logging interface used by the client. *logging.Logger
// satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// loggerBox lets an interface value live in an atomic.Pointer.
type loggerBox struct{ Logger }

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler receives one message. paho calls it on its own
// goroutine with wildcards already expanded in topic. A returned error is
// logged and otherwise ignored.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker described by cfg and waits for the first
// connection.
//
// The LWT is registered before dialling. paho reconnects on its own after
// that; every successful (re)connect replays subscriptions and republishes
// the online status.
//
// Parameters:
//   - cfg: Broker, auth, QoS and reconnect settings
//
// Returns:
//   - *Client: Connected client
//   - error: ErrConnectionFailed if the broker cannot be reached in time
func Connect(cfg config.MQTTConfig) (*Client, error) {
	cfg.Broker.ClientID = resolveClientID(cfg.Broker.ClientID)
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleConnectionLost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.getLogger().Warn("MQTT reconnecting", "client_id", cfg.Broker.ClientID)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: no answer from %s:%d within %v", ErrConnectionFailed, cfg.Broker.Host, cfg.Broker.Port, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously; mark the client usable now
	// so the caller can subscribe straight away.
	c.connected.Store(true)
	return c, nil
}

func (c *Client) handleConnect() {
	c.connected.Store(true)
	c.restoreSubscriptions()

	status := serviceStatus(StatusOnline, c.cfg.Broker.ClientID, "")
	if err := wait(c.client.Publish(Topics{}.ServiceStatus(), byte(c.cfg.QoS), true, status.Payload())); err != nil {
		c.getLogger().Warn("publishing online status failed", "error", err)
	}

	c.hookMu.RLock()
	hook := c.onConnect
	c.hookMu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) handleConnectionLost(err error) {
	c.connected.Store(false)

	c.hookMu.RLock()
	hook := c.onDisconnect
	c.hookMu.RUnlock()
	if hook != nil {
		hook(err)
	}
}

// Close publishes the graceful offline status and disconnects. It is safe
// to call on a client that never connected.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		status := serviceStatus(StatusOffline, c.cfg.Broker.ClientID, ReasonShutdown)
		c.client.Publish(Topics{}.ServiceStatus(), byte(c.cfg.QoS), true, status.Payload()).WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the broker link is up.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client != nil && c.client.IsConnected()
}

// SetOnConnect sets a hook run after every (re)connect, once subscriptions
// are restored.
func (c *Client) SetOnConnect(hook func()) {
	c.hookMu.Lock()
	c.onConnect = hook
	c.hookMu.Unlock()
}

// SetOnDisconnect sets a hook run when the connection is lost.
func (c *Client) SetOnDisconnect(hook func(err error)) {
	c.hookMu.Lock()
	c.onDisconnect = hook
	c.hookMu.Unlock()
}

// SetLogger sets the logger. A nil logger silences the client.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		c.logger.Store(nil)
		return
	}
	c.logger.Store(&loggerBox{logger})
}

func (c *Client) getLogger() Logger {
	if b := c.logger.Load(); b != nil {
		return b.Logger
	}
	return noopLogger{}
}

// wrapHandler adapts handler to paho, logging returned errors and
// recovering panics so one bad message cannot kill paho's router.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.getLogger().Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.getLogger().Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}

// wait blocks on token for at most defaultPublishTimeout.
func wait(token pahomqtt.Token) error {
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("timeout after %v", defaultPublishTimeout)
	}
	return token.Error()
}
