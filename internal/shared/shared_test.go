package shared

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/dingz-bridge/internal/coordinator"
	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/dingz/dingztest"
	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// fakeMQTT records subscriptions and delivers messages to them.
type fakeMQTT struct {
	mu       sync.Mutex
	handlers map[string]func(string, []byte)
	offline  bool
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{handlers: make(map[string]func(string, []byte))}
}

func (m *fakeMQTT) Subscribe(topic string, _ byte, h func(string, []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return errors.New("not connected")
	}
	m.handlers[topic] = h
	return nil
}

func (m *fakeMQTT) setOffline(v bool) {
	m.mu.Lock()
	m.offline = v
	m.mu.Unlock()
}

func (m *fakeMQTT) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	return nil
}

func (m *fakeMQTT) topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.handlers))
	for t := range m.handlers {
		out = append(out, t)
	}
	return out
}

func (m *fakeMQTT) publish(pattern, topic, payload string) bool {
	m.mu.Lock()
	h, ok := m.handlers[pattern]
	m.mu.Unlock()
	if ok {
		h(topic, []byte(payload))
	}
	return ok
}

func fastOptions(mqtt *fakeMQTT) Options {
	fast := dingz.RetryPolicy{Attempts: 2, Delay: time.Millisecond}
	opts := Options{
		Name: "hallway",
		ClientOptions: []dingz.Option{
			dingz.WithReadPolicy(fast),
			dingz.WithWritePolicy(fast),
			dingz.WithMinInterval(0),
		},
		SettleDelay: 5 * time.Millisecond,
	}
	if mqtt != nil {
		opts.MQTT = mqtt
	}
	return opts
}

type recorder struct {
	mu      sync.Mutex
	results []coordinator.RefreshResult
}

func (r *recorder) RecordRefresh(_ context.Context, res coordinator.RefreshResult) error {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
	return nil
}

// =============================================================================
// Startup
// =============================================================================

func TestStart_EstablishesIdentity(t *testing.T) {
	dev := dingztest.NewServer(t, nil)
	rec := &recorder{}
	opts := fastOptions(nil)
	opts.Recorder = rec

	s, err := Start(context.Background(), dev.URL, opts)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	id, ok := s.Identity()
	if !ok {
		t.Fatal("Identity() not set after Start")
	}
	want := Identity{
		Name:             "hallway",
		ID:               dingztest.DeviceID,
		MAC:              "ab:cd:ef:a8:1x:yz",
		DisplayName:      "Hallway",
		Room:             "Hall",
		Manufacturer:     Manufacturer,
		Model:            "DZ1B-4CH",
		SWVersion:        "1.4.5",
		HWVersion:        "1.1.2",
		ConfigurationURL: s.Client().BaseURL(),
	}
	if id != want {
		t.Errorf("Identity() = %+v\nwant %+v", id, want)
	}
	if s.MACAddr() != want.MAC {
		t.Errorf("MACAddr() = %q", s.MACAddr())
	}
	if s.State().Data() == nil || s.Config().Data() == nil {
		t.Error("snapshots missing after Start")
	}

	// State must be fetched before config.
	reqs := dev.Requests()
	if len(reqs) == 0 || reqs[0].Path != "/api/v1/state" {
		t.Errorf("first request = %+v, want state", reqs)
	}

	rec.mu.Lock()
	kinds := []string{}
	for _, r := range rec.results {
		kinds = append(kinds, r.Kind)
	}
	rec.mu.Unlock()
	if strings.Join(kinds, ",") != "state,config" {
		t.Errorf("recorded refreshes = %v, want [state config]", kinds)
	}
}

func TestStart_StateFailure(t *testing.T) {
	dev := dingztest.NewServer(t, dingztest.Routes{
		"GET /api/v1/state": dingztest.Status(500),
	})

	_, err := Start(context.Background(), dev.URL, fastOptions(nil))
	if !errors.Is(err, ErrStartupFailed) {
		t.Fatalf("Start() error = %v, want ErrStartupFailed", err)
	}
	if !errors.Is(err, coordinator.ErrFirstRefreshFailed) || !errors.Is(err, dingz.ErrRequestFailed) {
		t.Errorf("Start() error = %v, want first refresh and request failure in chain", err)
	}
	if dev.Count("GET", "/api/v1/system_config") != 0 {
		t.Error("config fetched although state failed")
	}
}

func TestStart_ConfigFailure(t *testing.T) {
	dev := dingztest.NewServer(t, dingztest.Routes{
		"GET /api/v1/button_config": dingztest.Status(503),
	})

	if _, err := Start(context.Background(), dev.URL, fastOptions(nil)); !errors.Is(err, ErrStartupFailed) {
		t.Fatalf("Start() error = %v, want ErrStartupFailed", err)
	}
}

func TestStart_InvalidBaseURL(t *testing.T) {
	if _, err := Start(context.Background(), "ftp://dingz", fastOptions(nil)); !errors.Is(err, dingz.ErrInvalidBaseURL) {
		t.Fatalf("Start() error = %v, want ErrInvalidBaseURL", err)
	}
}

func TestNew_DefaultName(t *testing.T) {
	s, err := New("10.0.3.39", Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.Name() != s.Client().BaseURL() {
		t.Errorf("Name() = %q, want base URL %q", s.Name(), s.Client().BaseURL())
	}
	if _, ok := s.Identity(); ok {
		t.Error("Identity() set before FirstRefresh")
	}
	if s.MACAddr() != "" {
		t.Error("MACAddr() non-empty before FirstRefresh")
	}
}

// =============================================================================
// MQTT
// =============================================================================

func TestFirstRefresh_StartsBridge(t *testing.T) {
	dev := dingztest.NewServer(t, nil)
	mqtt := newFakeMQTT()

	s, err := Start(context.Background(), dev.URL, fastOptions(mqtt))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if got := len(mqtt.topics()); got != 6 {
		t.Fatalf("subscribed %d topics, want 6", got)
	}
	if s.MQTTDeviceID() != dingztest.DeviceID {
		t.Errorf("MQTTDeviceID() = %q", s.MQTTDeviceID())
	}

	var got []notify.Notification
	s.AddListener(func(n notify.Notification) { got = append(got, n) })

	pattern := "dingz/" + dingztest.DeviceID + "/+/event/pir/+"
	if !mqtt.publish(pattern, "dingz/"+dingztest.DeviceID+"/x/event/pir/0", "s") {
		t.Fatalf("no handler for %s", pattern)
	}

	if len(got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got))
	}
	if pir, ok := got[0].(notify.PIREvent); !ok || pir.Event != notify.PIRMotionStart {
		t.Errorf("notification = %#v", got[0])
	}
}

func TestConfigRefresh_MovesBridgeToNewID(t *testing.T) {
	dev := dingztest.NewServer(t, nil)
	mqtt := newFakeMQTT()

	s, err := Start(context.Background(), dev.URL, fastOptions(mqtt))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	dev.SetJSON("/api/v1/system_config", `{"id": "NEWSYSTEMID1", "dingz_name": "Renamed"}`)
	if err := s.Config().RequestRefresh(context.Background()); err != nil {
		t.Fatalf("RequestRefresh() error = %v", err)
	}

	if s.MQTTDeviceID() != "NEWSYSTEMID1" {
		t.Errorf("MQTTDeviceID() = %q, want NEWSYSTEMID1", s.MQTTDeviceID())
	}
	for _, topic := range mqtt.topics() {
		if !strings.HasPrefix(topic, "dingz/NEWSYSTEMID1/") {
			t.Errorf("stale subscription %s", topic)
		}
	}

	// Identity is fixed at startup.
	id, _ := s.Identity()
	if id.ID != dingztest.DeviceID || id.DisplayName != "Hallway" {
		t.Errorf("Identity() changed to %+v", id)
	}
}

func TestResubscribeMQTT_RecoversAfterBrokerOutage(t *testing.T) {
	dev := dingztest.NewServer(t, nil)
	mqtt := newFakeMQTT()

	s, err := Start(context.Background(), dev.URL, fastOptions(mqtt))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	// The id changes while the broker is unreachable.
	mqtt.setOffline(true)
	dev.SetJSON("/api/v1/system_config", `{"id": "NEWSYSTEMID1"}`)
	if err := s.Config().RequestRefresh(context.Background()); err != nil {
		t.Fatalf("RequestRefresh() error = %v", err)
	}
	if got := len(mqtt.topics()); got != 0 {
		t.Fatalf("subscriptions during outage = %d, want 0", got)
	}

	mqtt.setOffline(false)
	if err := s.ResubscribeMQTT(); err != nil {
		t.Fatalf("ResubscribeMQTT() error = %v", err)
	}

	topics := mqtt.topics()
	if len(topics) != 6 {
		t.Fatalf("subscriptions after reconnect = %d, want 6", len(topics))
	}
	for _, topic := range topics {
		if !strings.HasPrefix(topic, "dingz/NEWSYSTEMID1/") {
			t.Errorf("subscription %s not in new namespace", topic)
		}
	}

	// Nothing left to retry.
	if err := s.ResubscribeMQTT(); err != nil {
		t.Errorf("second ResubscribeMQTT() error = %v", err)
	}
}

func TestResubscribeMQTT_BeforeStart(t *testing.T) {
	dev := dingztest.NewServer(t, nil)

	s, err := New(dev.URL, fastOptions(newFakeMQTT()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.ResubscribeMQTT(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("ResubscribeMQTT() error = %v, want ErrNotStarted", err)
	}
}

func TestStop_UnsubscribesAndIsIdempotent(t *testing.T) {
	dev := dingztest.NewServer(t, nil)
	mqtt := newFakeMQTT()

	s, err := Start(context.Background(), dev.URL, fastOptions(mqtt))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	s.Stop()
	s.Teardown()

	if got := len(mqtt.topics()); got != 0 {
		t.Errorf("subscriptions after Stop = %d, want 0", got)
	}

	// Config listener is gone: a refresh must not resubscribe.
	dev.SetJSON("/api/v1/system_config", `{"id": "OTHER"}`)
	_ = s.Config().RequestRefresh(context.Background())
	if got := len(mqtt.topics()); got != 0 {
		t.Errorf("subscriptions after refresh = %d, want 0", got)
	}
}

// =============================================================================
// Refresh & Run
// =============================================================================

func TestRequestRefresh_RefreshesBoth(t *testing.T) {
	dev := dingztest.NewServer(t, nil)

	s, err := Start(context.Background(), dev.URL, fastOptions(nil))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if err := s.RequestRefresh(context.Background()); err != nil {
		t.Fatalf("RequestRefresh() error = %v", err)
	}
	if got := dev.Count("GET", "/api/v1/state"); got != 2 {
		t.Errorf("state fetches = %d, want 2", got)
	}
	if got := dev.Count("GET", "/api/v1/system_config"); got != 2 {
		t.Errorf("config fetches = %d, want 2", got)
	}

	if err := s.DelayedRequestRefresh(context.Background()); err != nil {
		t.Fatalf("DelayedRequestRefresh() error = %v", err)
	}
	if got := dev.Count("GET", "/api/v1/state"); got != 3 {
		t.Errorf("state fetches = %d, want 3", got)
	}
}

func TestRun_StopsOnStop(t *testing.T) {
	dev := dingztest.NewServer(t, nil)
	opts := fastOptions(nil)
	opts.StateInterval = 5 * time.Millisecond
	opts.ConfigInterval = time.Hour

	s, err := Start(context.Background(), dev.URL, opts)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for dev.Count("GET", "/api/v1/state") < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if dev.Count("GET", "/api/v1/state") < 3 {
		t.Error("Run did not poll state")
	}
}

func TestRun_AfterStopReturnsImmediately(t *testing.T) {
	s, err := New("10.0.3.39", Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.Stop()

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run blocked after Stop")
	}
}

// =============================================================================
// MAC formatting
// =============================================================================

func TestFormatMAC(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ABCDEF012345", "ab:cd:ef:01:23:45"},
		{"AB:CD:EF:01:23:45", "ab:cd:ef:01:23:45"},
		{"AB-CD-EF-01-23-45", "ab:cd:ef:01:23:45"},
		{"abcd.ef01.2345", "ab:cd:ef:01:23:45"},
		{"not-a-mac", "not-a-mac"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := FormatMAC(tt.in); got != tt.want {
			t.Errorf("FormatMAC(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
