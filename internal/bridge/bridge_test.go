package bridge

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/dingz-bridge/internal/notify"
)

const testID = "ABCDEFA81XYZ"

// fakeClient records subscriptions and lets tests deliver messages to the
// handler whose pattern matches a topic.
type fakeClient struct {
	mu            sync.Mutex
	handlers      map[string]func(string, []byte)
	subscribes    []string
	unsubscribes  []string
	failSubscribe map[string]error
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]func(string, []byte))}
}

func (c *fakeClient) Subscribe(topic string, _ byte, h func(string, []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failSubscribe[topic]; err != nil {
		return err
	}
	c.handlers[topic] = h
	c.subscribes = append(c.subscribes, topic)
	return nil
}

func (c *fakeClient) Unsubscribe(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, topic)
	c.unsubscribes = append(c.unsubscribes, topic)
	return nil
}

func (c *fakeClient) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers)
}

// deliver invokes every handler whose pattern matches topic and returns how
// many matched.
func (c *fakeClient) deliver(topic, payload string) int {
	c.mu.Lock()
	var hs []func(string, []byte)
	for pattern, h := range c.handlers {
		if topicMatches(pattern, topic) {
			hs = append(hs, h)
		}
	}
	c.mu.Unlock()

	for _, h := range hs {
		h(topic, []byte(payload))
	}
	return len(hs)
}

func topicMatches(pattern, topic string) bool {
	p := strings.Split(pattern, "/")
	t := strings.Split(topic, "/")
	for i, seg := range p {
		if seg == "#" {
			return true
		}
		if i >= len(t) {
			return false
		}
		if seg != "+" && seg != t[i] {
			return false
		}
	}
	return len(p) == len(t)
}

type fakeBus struct {
	mu   sync.Mutex
	seen []notify.Notification
}

func (b *fakeBus) Dispatch(n notify.Notification) {
	b.mu.Lock()
	b.seen = append(b.seen, n)
	b.mu.Unlock()
}

func (b *fakeBus) all() []notify.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]notify.Notification(nil), b.seen...)
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func newTestBridge(t *testing.T) (*Bridge, *fakeClient, *fakeBus, *recordingLogger) {
	t.Helper()
	client := newFakeClient()
	bus := &fakeBus{}
	logger := &recordingLogger{}
	b, err := New(Options{Client: client, Bus: bus, Logger: logger})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.SetDeviceID(testID); err != nil {
		t.Fatalf("SetDeviceID() error = %v", err)
	}
	return b, client, bus, logger
}

func intPtr(v int) *int { return &v }

// =============================================================================
// Construction & Subscription
// =============================================================================

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Options{Bus: &fakeBus{}}); err == nil {
		t.Error("New() without client should fail")
	}
	if _, err := New(Options{Client: newFakeClient()}); err == nil {
		t.Error("New() without bus should fail")
	}
}

func TestSetDeviceID_SubscribesAllPatterns(t *testing.T) {
	_, client, _, _ := newTestBridge(t)

	if got := client.active(); got != len(categories) {
		t.Fatalf("active subscriptions = %d, want %d", got, len(categories))
	}
	for _, pattern := range Topics(testID) {
		if _, ok := client.handlers[pattern]; !ok {
			t.Errorf("pattern %s not subscribed", pattern)
		}
	}
}

func TestSetDeviceID_EmptyAndUnchangedAreNoops(t *testing.T) {
	b, client, _, _ := newTestBridge(t)

	if err := b.SetDeviceID(""); err != nil {
		t.Errorf("SetDeviceID(\"\") error = %v", err)
	}
	if err := b.SetDeviceID(testID); err != nil {
		t.Errorf("SetDeviceID(same) error = %v", err)
	}

	if len(client.subscribes) != len(categories) {
		t.Errorf("subscribes = %d, want %d", len(client.subscribes), len(categories))
	}
	if len(client.unsubscribes) != 0 {
		t.Errorf("unsubscribes = %v, want none", client.unsubscribes)
	}
	if b.DeviceID() != testID {
		t.Errorf("DeviceID() = %q", b.DeviceID())
	}
}

func TestSetDeviceID_ChangeResubscribes(t *testing.T) {
	b, client, bus, _ := newTestBridge(t)

	if err := b.SetDeviceID("NEWID"); err != nil {
		t.Fatalf("SetDeviceID(NEWID) error = %v", err)
	}

	if len(client.unsubscribes) != len(categories) {
		t.Errorf("unsubscribes = %d, want %d", len(client.unsubscribes), len(categories))
	}
	if client.active() != len(categories) {
		t.Errorf("active = %d, want %d", client.active(), len(categories))
	}

	if n := client.deliver("dingz/"+testID+"/online", "true"); n != 0 {
		t.Errorf("old namespace still matched %d handlers", n)
	}
	client.deliver("dingz/NEWID/online", "true")
	if got := len(bus.all()); got != 1 {
		t.Errorf("dispatched = %d, want 1", got)
	}
}

func TestHandler_DropsMessagesForPreviousID(t *testing.T) {
	b, client, bus, _ := newTestBridge(t)

	client.mu.Lock()
	stale := client.handlers[Topics(testID)[CategoryOnline]]
	client.mu.Unlock()

	if err := b.SetDeviceID("NEWID"); err != nil {
		t.Fatalf("SetDeviceID() error = %v", err)
	}

	// A message already routed to the old handler before the unsubscribe.
	stale("dingz/"+testID+"/online", []byte("true"))

	if got := len(bus.all()); got != 0 {
		t.Errorf("dispatched = %d for stale id, want 0", got)
	}
}

func TestSetDeviceID_SubscribeFailure(t *testing.T) {
	client := newFakeClient()
	client.failSubscribe = map[string]error{
		Topics(testID)[CategoryMotor]: errors.New("not authorised"),
	}
	b, err := New(Options{Client: client, Bus: &fakeBus{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = b.SetDeviceID(testID)
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Fatalf("SetDeviceID() error = %v, want ErrSubscribeFailed", err)
	}
	if client.active() != len(categories)-1 {
		t.Errorf("active = %d, want %d", client.active(), len(categories)-1)
	}

	b.Stop()
	if client.active() != 0 {
		t.Errorf("active after Stop = %d, want 0", client.active())
	}
}

func TestSetDeviceID_SameIDRetriesFailedPatterns(t *testing.T) {
	motor := Topics(testID)[CategoryMotor]
	client := newFakeClient()
	client.failSubscribe = map[string]error{motor: errors.New("not connected")}
	bus := &fakeBus{}
	b, err := New(Options{Client: client, Bus: bus})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := b.SetDeviceID(testID); !errors.Is(err, ErrSubscribeFailed) {
		t.Fatalf("SetDeviceID() error = %v, want ErrSubscribeFailed", err)
	}
	if !b.Pending() {
		t.Error("Pending() = false after a failed pattern")
	}

	client.mu.Lock()
	client.failSubscribe = nil
	client.mu.Unlock()

	if err := b.SetDeviceID(testID); err != nil {
		t.Fatalf("SetDeviceID(retry) error = %v", err)
	}
	if b.Pending() {
		t.Error("Pending() = true after retry")
	}
	if got := len(client.subscribes); got != len(categories) {
		t.Errorf("subscribes = %d, want %d (no duplicates)", got, len(categories))
	}

	n := client.deliver("dingz/"+testID+"/shade/state/motor/0", `{"position": 10, "lamella": 0, "motion": 0}`)
	if n != 1 {
		t.Fatalf("motor handlers matched = %d, want 1", n)
	}
	if got := len(bus.all()); got != 1 {
		t.Errorf("dispatched = %d, want 1", got)
	}
}

func TestStop_Idempotent(t *testing.T) {
	b, client, bus, _ := newTestBridge(t)

	b.Stop()
	b.Stop()

	if len(client.unsubscribes) != len(categories) {
		t.Errorf("unsubscribes = %d, want %d", len(client.unsubscribes), len(categories))
	}
	if err := b.SetDeviceID("OTHER"); !errors.Is(err, ErrStopped) {
		t.Errorf("SetDeviceID after Stop error = %v, want ErrStopped", err)
	}
	if len(bus.all()) != 0 {
		t.Error("Stop dispatched notifications")
	}
}

// =============================================================================
// Decoding
// =============================================================================

func TestDecode_ValidMessages(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    notify.Notification
	}{
		{"online true", "dingz/%s/online", "true", notify.MQTTOnline{Online: true}},
		{"online false", "dingz/%s/online", "false", notify.MQTTOnline{Online: false}},
		{"pir start", "dingz/%s/x/event/pir/0", "s", notify.PIREvent{Index: 0, Event: notify.PIRMotionStart}},
		{"pir stop", "dingz/%s/x/event/pir/0", "ss", notify.PIREvent{Index: 0, Event: notify.PIRMotionStop}},
		{"button press", "dingz/%s/x/event/button/3", "p", notify.ButtonEvent{Index: 3, Event: notify.ButtonPress}},
		{"button multi", "dingz/%s/x/event/button/1", "m5", notify.ButtonEvent{Index: 1, Event: notify.ButtonM5}},
		{"sensor temperature", "dingz/%s/x/sensor/temperature", "21.75", notify.SensorState{Sensor: notify.SensorTemperature, Value: 21.75}},
		{"sensor light", "dingz/%s/x/sensor/light", "340", notify.SensorState{Sensor: notify.SensorLight, Value: 340}},
		{"light", "dingz/%s/x/state/light/2", `{"turn":"on","brightness":80}`, notify.LightState{Index: 2, Turn: notify.LightOn, Brightness: 80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client, bus, logger := newTestBridge(t)

			topic := strings.Replace(tt.topic, "%s", testID, 1)
			if n := client.deliver(topic, tt.payload); n != 1 {
				t.Fatalf("topic %s matched %d handlers, want 1", topic, n)
			}

			got := bus.all()
			if len(got) != 1 {
				t.Fatalf("dispatched = %d, want 1 (warnings %d)", len(got), logger.count())
			}
			if got[0] != tt.want {
				t.Errorf("dispatched %#v, want %#v", got[0], tt.want)
			}
		})
	}
}

func TestDecode_Motor(t *testing.T) {
	_, client, bus, _ := newTestBridge(t)

	client.deliver("dingz/"+testID+"/x/state/motor/1", `{"position":40,"goal":60,"lamella":10,"motion":1,"extra":true}`)
	client.deliver("dingz/"+testID+"/x/state/motor/0", `{"position":0,"lamella":0,"motion":0}`)

	got := bus.all()
	if len(got) != 2 {
		t.Fatalf("dispatched = %d, want 2", len(got))
	}

	m, ok := got[0].(notify.MotorState)
	if !ok {
		t.Fatalf("dispatched %T, want MotorState", got[0])
	}
	if m.Index != 1 || m.Position != 40 || m.Lamella != 10 || m.Motion != notify.MotorOpening {
		t.Errorf("motor = %+v", m)
	}
	if m.Goal == nil || *m.Goal != 60 {
		t.Errorf("goal = %v, want 60", m.Goal)
	}

	stopped := got[1].(notify.MotorState)
	if stopped.Goal != nil {
		t.Errorf("goal = %v, want nil when absent", *stopped.Goal)
	}
	if stopped.Motion != notify.MotorStopped {
		t.Errorf("motion = %v, want stopped", stopped.Motion)
	}
}

func TestDecode_MalformedPayloadsNeverDispatch(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"online garbage", "dingz/%s/online", "maybe"},
		{"online empty", "dingz/%s/online", ""},
		{"pir unknown code", "dingz/%s/x/event/pir/0", "x"},
		{"pir bad index", "dingz/%s/x/event/pir/left", "s"},
		{"button unknown code", "dingz/%s/x/event/button/1", "m6"},
		{"button negative index", "dingz/%s/x/event/button/-1", "p"},
		{"motor not json", "dingz/%s/x/state/motor/0", "{position:"},
		{"motor not object", "dingz/%s/x/state/motor/0", "42"},
		{"motor null", "dingz/%s/x/state/motor/0", "null"},
		{"motor missing lamella", "dingz/%s/x/state/motor/0", `{"position":1,"motion":0}`},
		{"motor motion out of range", "dingz/%s/x/state/motor/0", `{"position":1,"lamella":0,"motion":7}`},
		{"motor wrong field type", "dingz/%s/x/state/motor/0", `{"position":"high","lamella":0,"motion":0}`},
		{"sensor not number", "dingz/%s/x/sensor/temperature", "warm"},
		{"sensor unknown", "dingz/%s/x/sensor/humidity", "40"},
		{"light not json", "dingz/%s/x/state/light/0", "on"},
		{"light missing brightness", "dingz/%s/x/state/light/0", `{"turn":"on"}`},
		{"light bad turn", "dingz/%s/x/state/light/0", `{"turn":"dim","brightness":3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client, bus, logger := newTestBridge(t)

			topic := strings.Replace(tt.topic, "%s", testID, 1)
			if n := client.deliver(topic, tt.payload); n != 1 {
				t.Fatalf("topic %s matched %d handlers, want 1", topic, n)
			}

			if got := len(bus.all()); got != 0 {
				t.Errorf("dispatched = %d, want 0", got)
			}
			if logger.count() != 1 {
				t.Errorf("warnings = %d, want 1", logger.count())
			}
		})
	}
}

func TestDecoders_ReportMalformedKind(t *testing.T) {
	_, err := decodeMotor("dingz/A/x/state/motor/0", []byte("{"))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("syntax error = %v, want ErrMalformedPayload", err)
	}

	_, err = decodeMotor("dingz/A/x/state/motor/0", []byte(`[1,2]`))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("shape error = %v, want ErrMalformedPayload", err)
	}

	n, err := decodeMotor("dingz/A/x/state/motor/4", []byte(`{"position":5,"lamella":6,"motion":3,"goal":9}`))
	if err != nil {
		t.Fatalf("decodeMotor() error = %v", err)
	}
	want := notify.MotorState{Index: 4, Position: 5, Lamella: 6, Motion: notify.MotorCalibrating, Goal: intPtr(9)}
	got := n.(notify.MotorState)
	if got.Index != want.Index || got.Position != want.Position || *got.Goal != *want.Goal || got.Motion != want.Motion {
		t.Errorf("decodeMotor() = %+v, want %+v", got, want)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", maxLoggedPayload+10)
	if got := truncate([]byte(long)); len(got) != maxLoggedPayload+3 {
		t.Errorf("truncate() length = %d", len(got))
	}
	if got := truncate([]byte{0xff, 'x'}); got != "?x" {
		t.Errorf("truncate() = %q, want ?x", got)
	}
}
