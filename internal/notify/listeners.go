package notify

import (
	"sort"
	"sync"
)

// Unsubscribe removes a registration. Calling it more than once is a no-op.
type Unsubscribe func()

// Listeners is a token-keyed set of callbacks.
//
// Thread Safety: All methods are safe for concurrent use. Callbacks run
// outside the lock and may add or remove listeners.
type Listeners[T any] struct {
	mu      sync.Mutex
	next    uint64
	entries map[uint64]func(T)
}

// Add registers fn and returns its Unsubscribe func.
func (l *Listeners[T]) Add(fn func(T)) Unsubscribe {
	l.mu.Lock()
	if l.entries == nil {
		l.entries = make(map[uint64]func(T))
	}
	l.next++
	token := l.next
	l.entries[token] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.entries, token)
			l.mu.Unlock()
		})
	}
}

// Snapshot returns the registered callbacks in registration order.
func (l *Listeners[T]) Snapshot() []func(T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tokens := make([]uint64, 0, len(l.entries))
	for token := range l.entries {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })

	fns := make([]func(T), len(tokens))
	for i, token := range tokens {
		fns[i] = l.entries[token]
	}
	return fns
}

// Notify calls every callback registered when Notify was entered.
// Registrations added or removed by a callback take effect from the next
// call.
func (l *Listeners[T]) Notify(v T) {
	for _, fn := range l.Snapshot() {
		fn(v)
	}
}

// Len returns the number of registered callbacks.
func (l *Listeners[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
