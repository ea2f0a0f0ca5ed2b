package bridge

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// DefaultQoS is used when Options.QoS is zero.
const DefaultQoS byte = 1

// MQTTClient is the subset of broker operations the bridge needs.
// cmd/dingzbridge adapts *mqtt.Client to it.
type MQTTClient interface {
	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error
}

// Dispatcher receives decoded notifications. *notify.Bus implements it.
type Dispatcher interface {
	Dispatch(n notify.Notification)
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds configuration for creating a bridge.
type Options struct {
	// Client is the MQTT client. Required.
	Client MQTTClient

	// Bus receives every decoded notification. Required.
	Bus Dispatcher

	// QoS for subscriptions. Zero means DefaultQoS.
	QoS byte

	// Logger is optional.
	Logger Logger
}

// Bridge subscribes to one device's MQTT namespace and dispatches decoded
// notifications.
//
// Thread Safety: All methods are safe for concurrent use. Message handlers
// may run concurrently on paho goroutines.
type Bridge struct {
	client MQTTClient
	bus    Dispatcher
	qos    byte

	// mu guards the subscription state below. Subscribe can block on the
	// broker, so handlers never take mu; they read active instead.
	mu         sync.Mutex
	deviceID   string
	subscribed []string
	stopped    bool

	// active is the id whose messages are dispatched, empty once stopped.
	active atomic.Pointer[string]

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a bridge. No topics are subscribed until SetDeviceID.
func New(opts Options) (*Bridge, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("bridge: MQTT client is required")
	}
	if opts.Bus == nil {
		return nil, fmt.Errorf("bridge: dispatcher is required")
	}

	b := &Bridge{
		client: opts.Client,
		bus:    opts.Bus,
		qos:    opts.QoS,
		logger: noopLogger{},
	}
	if b.qos == 0 {
		b.qos = DefaultQoS
	}
	if opts.Logger != nil {
		b.logger = opts.Logger
	}
	return b, nil
}

// SetLogger replaces the bridge logger.
func (b *Bridge) SetLogger(l Logger) {
	if l == nil {
		return
	}
	b.loggerMu.Lock()
	b.logger = l
	b.loggerMu.Unlock()
}

// DeviceID returns the id whose namespace is currently subscribed.
func (b *Bridge) DeviceID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deviceID
}

// SetDeviceID points the bridge at the namespace of id.
//
// An empty id is a no-op. When the id changes the previous patterns are
// unsubscribed first. Every pattern of id that is not yet subscribed is
// then subscribed, so calling again with the same id retries the patterns
// that failed last time. An unchanged id with every pattern active does
// nothing.
//
// Returns:
//   - ErrStopped after Stop
//   - ErrSubscribeFailed wrapping every failed subscription; patterns that
//     did subscribe stay active and are removed by Stop
func (b *Bridge) SetDeviceID(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return ErrStopped
	}
	if id == "" {
		return nil
	}

	if id != b.deviceID {
		if b.deviceID != "" {
			b.logInfo("device id changed, resubscribing", "old_id", b.deviceID, "new_id", id)
			b.unsubscribeLocked()
		}
		b.deviceID = id
		b.active.Store(&id)
	}

	patterns := Topics(id)
	var errs []error
	added := 0
	for _, category := range categories {
		topic := patterns[category]
		if b.isSubscribedLocked(topic) {
			continue
		}
		if err := b.client.Subscribe(topic, b.qos, b.handler(id, category)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", topic, err))
			continue
		}
		b.subscribed = append(b.subscribed, topic)
		added++
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, errors.Join(errs...))
	}

	if added > 0 {
		b.logInfo("subscribed to device topics", "device_id", id, "topics", len(b.subscribed))
	}
	return nil
}

// Pending reports whether some pattern of the current id is not subscribed.
func (b *Bridge) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deviceID != "" && !b.stopped && len(b.subscribed) < len(categories)
}

func (b *Bridge) isSubscribedLocked(topic string) bool {
	for _, t := range b.subscribed {
		if t == topic {
			return true
		}
	}
	return false
}

// Stop unsubscribes every pattern. It is safe to call more than once.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}
	b.stopped = true
	b.active.Store(nil)
	b.unsubscribeLocked()
	b.logInfo("bridge stopped", "device_id", b.deviceID)
}

func (b *Bridge) unsubscribeLocked() {
	for _, topic := range b.subscribed {
		if err := b.client.Unsubscribe(topic); err != nil {
			b.logError("unsubscribe failed", err, "topic", topic)
		}
	}
	b.subscribed = nil
}

// handler returns the message callback for one category of device id.
func (b *Bridge) handler(id, category string) func(topic string, payload []byte) {
	decode := decoders[category]
	return func(topic string, payload []byte) {
		if !b.accepts(id) {
			b.logDebug("dropping message for previous device id", "topic", topic)
			return
		}

		n, err := decode(topic, payload)
		if err != nil {
			b.logWarn("dropping undecodable message",
				"topic", topic,
				"category", category,
				"payload", truncate(payload),
				"error", err,
			)
			return
		}

		b.bus.Dispatch(n)
	}
}

// accepts reports whether messages for id should still be dispatched.
func (b *Bridge) accepts(id string) bool {
	cur := b.active.Load()
	return cur != nil && *cur == id
}

// maxLoggedPayload bounds how much of a bad payload ends up in the log.
const maxLoggedPayload = 128

func truncate(payload []byte) string {
	s := strings.ToValidUTF8(string(payload), "?")
	if len(s) > maxLoggedPayload {
		return s[:maxLoggedPayload] + "..."
	}
	return s
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logDebug(msg string, args ...any) { b.getLogger().Debug(msg, args...) }
func (b *Bridge) logInfo(msg string, args ...any)  { b.getLogger().Info(msg, args...) }
func (b *Bridge) logWarn(msg string, args ...any)  { b.getLogger().Warn(msg, args...) }

func (b *Bridge) logError(msg string, err error, args ...any) {
	b.getLogger().Error(msg, append([]any{"error", err}, args...)...)
}
