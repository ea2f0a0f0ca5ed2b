package entity

import (
	"context"
	"sync"

	"github.com/nerrad567/dingz-bridge/internal/coordinator"
	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// View kinds.
const (
	KindDimmer     = "dimmer"
	KindCover      = "cover"
	KindMotion     = "motion"
	KindButton     = "button"
	KindSensor     = "sensor"
	KindLED        = "led"
	KindThermostat = "thermostat"
	KindDDI        = "ddi"
)

// Named identifies a component within its kind.
type Named interface {
	Index() int
	Name() string
}

// NotificationHandler consumes push notifications.
type NotificationHandler interface {
	HandleNotification(n notify.Notification)
}

// StateApplier consumes state snapshots.
type StateApplier interface {
	ApplyState(s *dingz.State)
}

// Refresher asks for a state refresh after the device had time to settle.
type Refresher interface {
	DelayedRequestRefresh(ctx context.Context) error
}

// Commander is what commanding views need from a device.
type Commander interface {
	Client() *dingz.Client
	Refresher
}

// Source feeds views. *shared.Shared implements it.
type Source interface {
	AddListener(fn func(notify.Notification)) notify.Unsubscribe
	State() *coordinator.Coordinator[dingz.State]
}

// Device is everything Discover needs. *shared.Shared implements it.
type Device interface {
	Source
	Commander
	Config() *coordinator.Coordinator[dingz.FullDeviceConfig]
}

// View is one component of a device.
type View interface {
	Named
	NotificationHandler
	StateApplier

	// Kind returns one of the Kind constants.
	Kind() string

	// Snapshot returns a JSON-serialisable copy of the current values.
	Snapshot() any
}

// Unbind detaches a view from its source. Calling it more than once is a
// no-op.
type Unbind func()

// Bind applies the current state to v and subscribes it to future state
// snapshots and notifications.
func Bind(v View, src Source) Unbind {
	if s := src.State().Data(); s != nil {
		v.ApplyState(s)
	}
	unsubBus := src.AddListener(v.HandleNotification)
	unsubState := src.State().AddListener(v.ApplyState)
	return func() {
		unsubBus()
		unsubState()
	}
}

// BindAll binds every view and returns one Unbind for all of them.
func BindAll(views []View, src Source) Unbind {
	unbinds := make([]Unbind, 0, len(views))
	for _, v := range views {
		unbinds = append(unbinds, Bind(v, src))
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, u := range unbinds {
				u()
			}
		})
	}
}

// base holds what every view has.
type base struct {
	index int
	name  string
	mu    sync.RWMutex
}

func (b *base) Index() int   { return b.index }
func (b *base) Name() string { return b.name }

// settle schedules a refresh for when the device has applied a command and
// returns at once. The refresh outlives ctx; its failures are recorded by
// the coordinator.
func settle(ctx context.Context, r Refresher) {
	bg := context.WithoutCancel(ctx)
	go func() { _ = r.DelayedRequestRefresh(bg) }()
}

// brightnessFromPercent converts a 0-100 value to the 0-255 scale.
func brightnessFromPercent(p int) int { return 255 * p / 100 }

// percentFromBrightness converts a 0-255 value to the 0-100 scale.
func percentFromBrightness(b int) int { return 100 * b / 255 }
