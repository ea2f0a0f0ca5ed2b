package entity

import (
	"context"
	"time"

	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// MotionSnapshot is the serialisable state of a motion sensor.
type MotionSnapshot struct {
	Index       int        `json:"index"`
	Enabled     *bool      `json:"enabled,omitempty"`
	Motion      *bool      `json:"motion,omitempty"`
	Mode        string     `json:"mode,omitempty"`
	OnTime      *int       `json:"on_time,omitempty"`
	LastEvent   string     `json:"last_event,omitempty"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
}

// Motion is one PIR sensor. Motion comes from the state; push events are
// kept as the last event.
type Motion struct {
	base
	cmd    Commander
	onTime *int

	enabled     *bool
	motion      *bool
	mode        string
	lastEvent   notify.PIREventType
	lastEventAt time.Time
}

// NewMotion creates the view of PIR index. onTime is the configured
// light-on time in seconds, nil when unknown.
func NewMotion(cmd Commander, index int, onTime *int) *Motion {
	return &Motion{base: base{index: index}, cmd: cmd, onTime: copyInt(onTime)}
}

func (m *Motion) Kind() string { return KindMotion }

// ApplyState takes the PIR slot of the state, in either firmware layout.
func (m *Motion) ApplyState(s *dingz.State) {
	if s == nil {
		return
	}
	pirs := s.Sensors.PIRs()
	if m.index >= len(pirs) || pirs[m.index] == nil {
		return
	}
	p := pirs[m.index]

	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Enabled != nil {
		m.enabled = copyBool(p.Enabled)
	}
	if p.Motion != nil {
		m.motion = copyBool(p.Motion)
	}
	if p.Mode != nil {
		m.mode = *p.Mode
	}
}

// HandleNotification records a PIREvent for this index.
func (m *Motion) HandleNotification(n notify.Notification) {
	ev, ok := n.(notify.PIREvent)
	if !ok || ev.Index != m.index {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastEvent = ev.Event
	m.lastEventAt = time.Now()
}

// LastEvent returns the most recent push event, empty if none arrived.
func (m *Motion) LastEvent() notify.PIREventType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastEvent
}

func (m *Motion) Snapshot() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := MotionSnapshot{
		Index:     m.index,
		Enabled:   copyBool(m.enabled),
		Motion:    copyBool(m.motion),
		Mode:      m.mode,
		OnTime:    copyInt(m.onTime),
		LastEvent: string(m.lastEvent),
	}
	if !m.lastEventAt.IsZero() {
		at := m.lastEventAt
		snap.LastEventAt = &at
	}
	return snap
}

// ResetTime restarts the sensor's light-off timer.
func (m *Motion) ResetTime(ctx context.Context) error {
	if err := m.cmd.Client().ResetPIRTime(ctx, m.index); err != nil {
		return err
	}
	settle(ctx, m.cmd)
	return nil
}

// ButtonSnapshot is the serialisable state of a button.
type ButtonSnapshot struct {
	Index       int        `json:"index"`
	Name        string     `json:"name,omitempty"`
	LastEvent   string     `json:"last_event,omitempty"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
}

// Button is one physical button. It only has push events.
type Button struct {
	base

	lastEvent   notify.ButtonEventType
	lastEventAt time.Time
}

// NewButton creates the view of button index.
func NewButton(index int, name string) *Button {
	return &Button{base: base{index: index, name: name}}
}

func (b *Button) Kind() string { return KindButton }

// ApplyState is a no-op; buttons are not part of the state payload.
func (b *Button) ApplyState(*dingz.State) {}

// HandleNotification records a ButtonEvent for this index.
func (b *Button) HandleNotification(n notify.Notification) {
	ev, ok := n.(notify.ButtonEvent)
	if !ok || ev.Index != b.index {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastEvent = ev.Event
	b.lastEventAt = time.Now()
}

// LastEvent returns the most recent event, empty if none arrived.
func (b *Button) LastEvent() notify.ButtonEventType {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastEvent
}

func (b *Button) Snapshot() any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap := ButtonSnapshot{Index: b.index, Name: b.name, LastEvent: string(b.lastEvent)}
	if !b.lastEventAt.IsZero() {
		at := b.lastEventAt
		snap.LastEventAt = &at
	}
	return snap
}
