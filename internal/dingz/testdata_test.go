package dingz

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// sampleState is a state payload captured from a dingz running 1.3.25.
const sampleState = `{
  "dimmers": [
    {"on": false, "output": 0, "ramp": 0, "readonly": true, "index": {"relative": 0, "absolute": 0}},
    {"on": false, "output": 0, "ramp": 0, "readonly": true, "index": {"relative": 1, "absolute": 1}},
    {"on": true, "output": 50, "ramp": 0, "readonly": false, "index": {"relative": 2, "absolute": 2}},
    {"on": false, "output": 0, "ramp": 0, "readonly": true, "index": {"relative": 3, "absolute": 3}}
  ],
  "blinds": [],
  "led": {"on": false, "hsv": "0;100;40", "rgb": "FFFFFF", "mode": "hsv", "ramp": 25},
  "sensors": {
    "brightness": 1,
    "light_state": "night",
    "room_temperature": 21.5,
    "uncompensated_temperature": 38.875,
    "temp_offset": 0.8,
    "cpu_temperature": 55.56,
    "puck_temperature": 40,
    "fet_temperature": 41.6,
    "input_state": false,
    "person_present": 0,
    "light_off_timer": 0,
    "suspend_timer": 0,
    "power_outputs": [{"value": 0}, {"value": 0}, {"value": 0}, {"value": 0}]
  },
  "thermostat": {
    "active": false, "out": 0, "on": false, "enabled": true, "target_temp": 21,
    "mode": "heating", "temp": 21.5, "min_target_temp": 17, "max_target_temp": 31
  },
  "wifi": {
    "version": "1.3.25", "mac": "ABCDEFA81XYZ", "ssid": "...", "ip": "10.0.3.39",
    "mask": "255.255.240.0", "gateway": "10.0.0.1", "dns": "10.0.0.1",
    "static": false, "connected": true
  },
  "time": "2021-09-23 22:07:09",
  "config": {"timestamp": 1628872687}
}`

const sampleDevice = `{
  "ABCDEFA81XYZ": {
    "type": "dingz", "battery": false, "reachable": true, "meshroot": true,
    "fw_version": "1.3.25", "hw_version": "1.1.2",
    "puck_production_date": {"year": 20, "month": 4, "day": 29},
    "dip_config": 3, "puck_hw_model": "DZ1B-4CH", "front_hw_model": "dz1f-pir",
    "has_pir": true, "hash": "db4f36f7"
  }
}`

const sampleSystemConfig = `{
  "id": "ABCDEFA81XYZ",
  "allow_reset": true, "allow_reboot": true, "broadcast_period": 5,
  "dingz_name": "dingz", "room_name": "Hell", "temp_offset": 0.8,
  "groups": [false, false], "system_status": "OK"
}`

// fakeDevice is an httptest server answering like a dingz.
type fakeDevice struct {
	*httptest.Server
}

// routes maps "METHOD /path" to a handler.
type routes map[string]http.HandlerFunc

// newFakeDevice serves the sample payloads on the read endpoints. Entries
// in overrides replace or extend the defaults.
func newFakeDevice(t *testing.T, overrides routes) *fakeDevice {
	t.Helper()

	all := routes{
		"GET /api/v1/state":           jsonHandler(sampleState),
		"GET /api/v1/device":          jsonHandler(sampleDevice),
		"GET /api/v1/system_config":   jsonHandler(sampleSystemConfig),
		"GET /api/v1/services_config": jsonHandler(`{"mqtt": {"enable": true, "uri": "mqtt://broker:1883"}}`),
		"GET /api/v1/input_config":    jsonHandler(`{"inputs": [{"active": true, "input": {"type": "pir", "invert": false}}]}`),
		"GET /api/v1/output_config":   jsonHandler(`{"outputs": [{"active": true, "type": "light", "name": "Ceiling", "light": {"dimmable": true}}]}`),
		"GET /api/v1/button_config":   jsonHandler(`{"buttons": [{"name": "Top"}, {"name": "Bottom"}]}`),
		"GET /api/v1/dimmer_config":   jsonHandler(`{"dimmers": [{"output": "halogen", "name": "Ceiling"}]}`),
		"GET /api/v1/blind_config":    jsonHandler(`{"blinds": [{"active": true, "name": "Terrace", "type": "lamella_90"}, {"active": false}]}`),
		"GET /api/v1/pir_config":      jsonHandler(`{"enabled": true, "on_time": 120, "off_time": 10}`),
	}
	for k, h := range overrides {
		all[k] = h
	}

	r := chi.NewRouter()
	for k, h := range all {
		method, pattern, _ := strings.Cut(k, " ")
		r.Method(method, pattern, h)
	}

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &fakeDevice{Server: srv}
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

// newTestClient builds a client with fast retries and no throttle.
func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()

	fast := RetryPolicy{Attempts: 3, Delay: time.Millisecond}
	all := append([]Option{
		WithReadPolicy(fast),
		WithWritePolicy(fast),
		WithMinInterval(0),
	}, opts...)

	c, err := NewClient(baseURL, all...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

// fakeClock advances only when Sleep is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// recordingLogger captures warnings.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}
