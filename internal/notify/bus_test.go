package notify

import (
	"sync"
	"testing"
)

// collector records notifications it receives.
type collector struct {
	mu  sync.Mutex
	got []Notification
}

func (c *collector) handle(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, n)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func TestBus_Dispatch(t *testing.T) {
	bus := NewBus()
	a, b := &collector{}, &collector{}
	bus.Subscribe(a.handle)
	bus.Subscribe(b.handle)

	bus.Dispatch(PIREvent{Index: 0, Event: PIRMotionStart})

	if a.count() != 1 || b.count() != 1 {
		t.Fatalf("counts = %d, %d, want 1, 1", a.count(), b.count())
	}
	if got, ok := a.got[0].(PIREvent); !ok || got.Event != PIRMotionStart {
		t.Errorf("received %#v, want PIREvent s", a.got[0])
	}
}

func TestBus_NoReplay(t *testing.T) {
	bus := NewBus()
	bus.Dispatch(MQTTOnline{Online: true})

	c := &collector{}
	bus.Subscribe(c.handle)

	if c.count() != 0 {
		t.Errorf("late subscriber received %d notifications, want 0", c.count())
	}
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBus()
	c := &collector{}
	unsubscribe := bus.Subscribe(c.handle)
	other := &collector{}
	bus.Subscribe(other.handle)

	unsubscribe()
	unsubscribe()

	if bus.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", bus.Len())
	}

	bus.Dispatch(MQTTOnline{Online: false})
	if c.count() != 0 {
		t.Errorf("unsubscribed listener received %d notifications", c.count())
	}
	if other.count() != 1 {
		t.Errorf("remaining listener received %d notifications, want 1", other.count())
	}
}

func TestBus_SameCallbackRegisteredTwice(t *testing.T) {
	bus := NewBus()
	c := &collector{}
	first := bus.Subscribe(c.handle)
	bus.Subscribe(c.handle)

	first()
	bus.Dispatch(SensorState{Sensor: SensorLight, Value: 12})

	if c.count() != 1 {
		t.Errorf("count = %d, want 1 (second registration survives)", c.count())
	}
}

func TestBus_MutationDuringDispatch(t *testing.T) {
	bus := NewBus()

	late := &collector{}
	victim := &collector{}
	var unsubscribeVictim Unsubscribe

	var calls int
	bus.Subscribe(func(n Notification) {
		calls++
		// Both mutations apply from the next dispatch onwards.
		bus.Subscribe(late.handle)
		unsubscribeVictim()
	})
	unsubscribeVictim = bus.Subscribe(victim.handle)

	bus.Dispatch(ButtonEvent{Index: 1, Event: ButtonPress})

	if victim.count() != 1 {
		t.Errorf("victim count = %d, want 1 (snapshot taken before removal)", victim.count())
	}
	if late.count() != 0 {
		t.Errorf("late count = %d, want 0 (added during dispatch)", late.count())
	}

	bus.Dispatch(ButtonEvent{Index: 1, Event: ButtonRelease})

	if victim.count() != 1 {
		t.Errorf("victim count after second dispatch = %d, want 1", victim.count())
	}
	if late.count() != 1 {
		t.Errorf("late count after second dispatch = %d, want 1", late.count())
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestBus_UnsubscribeSelfDuringDispatch(t *testing.T) {
	bus := NewBus()
	var unsubscribe Unsubscribe
	var calls int
	unsubscribe = bus.Subscribe(func(Notification) {
		calls++
		unsubscribe()
		unsubscribe()
	})

	bus.Dispatch(MQTTOnline{Online: true})
	bus.Dispatch(MQTTOnline{Online: true})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBus_PanickingListener(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(func(Notification) { panic("boom") })
	c := &collector{}
	bus.Subscribe(c.handle)

	bus.Dispatch(MQTTOnline{Online: true})

	if c.count() != 1 {
		t.Errorf("count = %d, want 1 after a panicking listener", c.count())
	}
}

func TestBus_ConcurrentSubscribeAndDispatch(t *testing.T) {
	bus := NewBus()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				unsubscribe := bus.Subscribe(func(Notification) {})
				unsubscribe()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Dispatch(SensorState{Sensor: SensorTemperature, Value: 21})
			}
		}()
	}
	wg.Wait()

	if bus.Len() != 0 {
		t.Errorf("Len() = %d, want 0", bus.Len())
	}
}

func TestMotorMotion_String(t *testing.T) {
	tests := []struct {
		motion MotorMotion
		want   string
		valid  bool
	}{
		{MotorStopped, "stopped", true},
		{MotorClosing, "closing", true},
		{MotorCalibrating, "calibrating", true},
		{MotorMotion(7), "motion(7)", false},
	}
	for _, tt := range tests {
		if got := tt.motion.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		if got := tt.motion.Valid(); got != tt.valid {
			t.Errorf("%v.Valid() = %v, want %v", tt.motion, got, tt.valid)
		}
	}
}
