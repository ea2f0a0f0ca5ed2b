package notify

import (
	"fmt"
	"sync"
)

// Logger is the logging interface used by the bus.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Bus fans notifications out to subscribers.
//
// Thread Safety: All methods are safe for concurrent use.
type Bus struct {
	listeners Listeners[Notification]

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{logger: noopLogger{}}
}

// SetLogger sets the logger used to report panicking listeners.
func (b *Bus) SetLogger(l Logger) {
	if l == nil {
		return
	}
	b.loggerMu.Lock()
	defer b.loggerMu.Unlock()
	b.logger = l
}

// Subscribe registers fn for future notifications.
func (b *Bus) Subscribe(fn func(Notification)) Unsubscribe {
	return b.listeners.Add(fn)
}

// Dispatch delivers n synchronously to every listener registered when
// Dispatch was entered. A panicking listener is logged and does not stop
// delivery to the others.
func (b *Bus) Dispatch(n Notification) {
	for _, fn := range b.listeners.Snapshot() {
		b.deliver(fn, n)
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	return b.listeners.Len()
}

func (b *Bus) deliver(fn func(Notification), n Notification) {
	defer func() {
		if r := recover(); r != nil {
			b.logError("notification listener panicked", fmt.Errorf("%v", r), "kind", n.Kind())
		}
	}()
	fn(n)
}

func (b *Bus) logError(msg string, err error, args ...any) {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	b.logger.Error(msg, append([]any{"error", err}, args...)...)
}
