// Package dingztest provides an in-process dingz HTTP API for tests.
//
// The server answers every read endpoint with a canned payload, accepts any
// POST under /api/v1/ and records each request so tests can assert on the
// commands a component sent.
//
//	dev := dingztest.NewServer(t, nil)
//	client, _ := dingz.NewClient(dev.URL, dingz.WithMinInterval(0))
//	...
//	if dev.Count("POST", "/api/v1/dimmer/2/on") != 1 { ... }
package dingztest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// DeviceID is the system id and MAC used by the canned payloads.
const DeviceID = "ABCDEFA81XYZ"

// State has four dimmers (only index 2 on, at 50%), one blind, the v2 PIR
// shape, a front LED and an active thermostat heating to 21 °C.
const State = `{
  "dimmers": [
    {"on": false, "output": 0, "ramp": 0, "readonly": true, "index": {"relative": 0, "absolute": 0}},
    {"on": false, "output": 0, "ramp": 0, "readonly": true, "index": {"relative": 1, "absolute": 1}},
    {"on": true, "output": 50, "ramp": 0, "readonly": false, "index": {"relative": 2, "absolute": 2}},
    {"on": false, "output": 0, "ramp": 0, "readonly": false, "index": {"relative": 3, "absolute": 3}}
  ],
  "blinds": [
    {"moving": "stop", "position": 30, "lamella": 50, "readonly": false, "index": {"relative": 0, "absolute": 0}}
  ],
  "led": {"on": true, "hsv": "120;100;40", "rgb": "00FF00", "mode": "hsv", "ramp": 25},
  "sensors": {
    "brightness": 120,
    "light_state": "day",
    "room_temperature": 21.5,
    "uncompensated_temperature": 38.875,
    "temp_offset": 0.8,
    "cpu_temperature": 55.56,
    "pirs": [{"enabled": true, "motion": false, "mode": "auto"}],
    "power_outputs": [{"value": 0}, {"value": 0}, {"value": 12.5}, {"value": 0}]
  },
  "thermostat": {"active": true, "out": 0, "on": false, "enabled": true, "target_temp": 21, "mode": "heating", "temp": 21.5, "min_target_temp": 5, "max_target_temp": 30},
  "wifi": {"version": "1.4.5", "mac": "ABCDEFA81XYZ", "ip": "10.0.3.39", "connected": true},
  "time": "2026-03-01 12:00:00",
  "config": {"timestamp": 1772366400}
}`

// Device is a single-entry /api/v1/device payload.
const Device = `{
  "ABCDEFA81XYZ": {
    "type": "dingz", "fw_version": "1.4.5", "hw_version": "1.1.2",
    "puck_hw_model": "DZ1B-4CH", "front_hw_model": "dz1f-pir", "has_pir": true
  }
}`

// SystemConfig carries DeviceID and a name and room.
const SystemConfig = `{
  "id": "ABCDEFA81XYZ",
  "dingz_name": "Hallway", "room_name": "Hall", "temp_offset": 0.8,
  "system_status": "OK"
}`

// ServicesConfig has MQTT enabled.
const ServicesConfig = `{"mqtt": {"enable": true, "uri": "mqtt://broker:1883"}}`

// InputConfig has one PIR input.
const InputConfig = `{"inputs": [{"active": true, "input": {"type": "pir", "invert": false}}]}`

// OutputConfig wires outputs 2 and 3 to lights; 0 and 1 drive the blind.
const OutputConfig = `{"outputs": [
  {"active": false, "type": "light", "name": "Blind up"},
  {"active": false, "type": "light", "name": "Blind down"},
  {"active": true, "type": "light", "name": "Ceiling", "light": {"dimmable": true}},
  {"active": true, "type": "light", "name": "Spots", "light": {"dimmable": true}}
]}`

// ButtonConfig has four named buttons, the last one inactive.
const ButtonConfig = `{"buttons": [
  {"active": true, "name": "B1"},
  {"active": true, "name": "B2"},
  {"active": true, "name": "B3"},
  {"active": false, "name": "B4"}
]}`

// DimmerConfig names the two light dimmers.
const DimmerConfig = `{"dimmers": [
  {"output": "halogen", "name": ""},
  {"output": "halogen", "name": ""},
  {"output": "led", "name": "Ceiling"},
  {"output": "led", "name": "Spots"}
]}`

// BlindConfig has one active, named blind.
const BlindConfig = `{"blinds": [{"active": true, "name": "Terrace", "type": "lamella_90", "min_value": 0, "max_value": 100}]}`

// PIRConfig enables the motion sensor with a two minute light-on time.
const PIRConfig = `{"enabled": true, "on_time": 120, "off_time": 10, "pir_output": 2}`

// Routes maps "METHOD /path" to a handler.
type Routes map[string]http.HandlerFunc

// Request is one request seen by the server.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// Server is a fake dingz.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	bodies   map[string]string
	requests []Request
}

// NewServer starts a fake device serving the canned payloads. Entries in
// overrides replace or extend the default routes. The server is closed
// when the test ends.
func NewServer(t testing.TB, overrides Routes) *Server {
	t.Helper()

	s := &Server{
		bodies: map[string]string{
			"/api/v1/state":           State,
			"/api/v1/device":          Device,
			"/api/v1/system_config":   SystemConfig,
			"/api/v1/services_config": ServicesConfig,
			"/api/v1/input_config":    InputConfig,
			"/api/v1/output_config":   OutputConfig,
			"/api/v1/button_config":   ButtonConfig,
			"/api/v1/dimmer_config":   DimmerConfig,
			"/api/v1/blind_config":    BlindConfig,
			"/api/v1/pir_config":      PIRConfig,
			"/api/v1/info":            `{"version": "1.4.5", "mac": "ABCDEFA81XYZ", "ip": "10.0.3.39"}`,
		},
	}

	r := chi.NewRouter()
	r.Use(s.record)

	s.mu.Lock()
	for p := range s.bodies {
		key := "GET " + p
		if _, ok := overrides[key]; !ok {
			r.Get(p, s.serveBody(p))
		}
	}
	s.mu.Unlock()

	if _, ok := overrides["POST /api/v1/*"]; !ok {
		r.Post("/api/v1/*", JSON(`{}`))
	}
	for k, h := range overrides {
		method, pattern, _ := strings.Cut(k, " ")
		r.Method(method, pattern, h)
	}

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// SetJSON replaces the payload served on a default GET path.
func (s *Server) SetJSON(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[path] = body
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests matched method and path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, req := range s.Requests() {
		if req.Method == method && req.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent request for method and path.
func (s *Server) Last(method, path string) (Request, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Request{}, false
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) serveBody(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		body := s.bodies[path]
		s.mu.Unlock()
		JSON(body)(w, r)
	}
}

// JSON returns a handler answering 200 with body.
func JSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

// Status returns a handler answering with code and an empty body.
func Status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
}
