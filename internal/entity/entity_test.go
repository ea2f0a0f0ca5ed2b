package entity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/dingz/dingztest"
	"github.com/nerrad567/dingz-bridge/internal/notify"
	"github.com/nerrad567/dingz-bridge/internal/shared"
)

// startDevice starts a Shared against a fake device. setup runs before the
// first refresh so it can change the canned payloads.
func startDevice(t *testing.T, setup ...func(*dingztest.Server)) (*shared.Shared, *dingztest.Server) {
	t.Helper()
	dev := dingztest.NewServer(t, nil)
	for _, fn := range setup {
		fn(dev)
	}

	fast := dingz.RetryPolicy{Attempts: 1, Delay: time.Millisecond}
	s, err := shared.Start(context.Background(), dev.URL, shared.Options{
		Name:          "hallway",
		ClientOptions: []dingz.Option{dingz.WithReadPolicy(fast), dingz.WithWritePolicy(fast), dingz.WithMinInterval(0)},
		SettleDelay:   time.Millisecond,
	})
	if err != nil {
		t.Fatalf("shared.Start() error = %v", err)
	}
	t.Cleanup(s.Stop)
	return s, dev
}

func intPtr(v int) *int { return &v }

// waitFor polls cond until it holds; commands refresh in the background.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// =============================================================================
// Discovery
// =============================================================================

func TestDiscover(t *testing.T) {
	s, _ := startDevice(t)
	views := Discover(s)

	counts := map[string]int{}
	for _, v := range views {
		counts[v.Kind()]++
	}

	want := map[string]int{
		KindLED:        1,
		KindDimmer:     2, // outputs 2 and 3
		KindCover:      1,
		KindMotion:     1,
		KindButton:     3, // B4 inactive
		KindSensor:     2,
		KindThermostat: 1,
		KindDDI:        0,
	}
	for kind, n := range want {
		if counts[kind] != n {
			t.Errorf("%s views = %d, want %d", kind, counts[kind], n)
		}
	}

	v, ok := Find(views, KindDimmer, 2)
	if !ok {
		t.Fatal("dimmer 2 not discovered")
	}
	if v.Name() != "Ceiling" {
		t.Errorf("dimmer 2 name = %q, want Ceiling", v.Name())
	}
	if _, ok := Find(views, KindDimmer, 0); ok {
		t.Error("inactive output 0 discovered as dimmer")
	}

	if v, ok := Find(views, KindCover, 0); !ok || v.Name() != "Terrace" {
		t.Errorf("cover 0 = %v, %v; want named Terrace from blind_config", v, ok)
	}
	v, ok = Find(views, KindMotion, 0)
	if !ok {
		t.Fatal("motion 0 not discovered")
	}
	if snap := v.Snapshot().(MotionSnapshot); snap.OnTime == nil || *snap.OnTime != 120 {
		t.Errorf("motion on_time = %v, want 120 from pir_config", snap.OnTime)
	}
}

func TestDiscover_ConfigOverrides(t *testing.T) {
	s, _ := startDevice(t, func(dev *dingztest.Server) {
		dev.SetJSON("/api/v1/output_config", `{"outputs": [
			{"active": false}, {"active": false},
			{"active": true, "type": "light", "name": "Ceiling"},
			{"active": true, "type": "light"}
		]}`)
		dev.SetJSON("/api/v1/blind_config", `{"blinds": [{"active": false, "name": "Terrace"}]}`)
		dev.SetJSON("/api/v1/pir_config", `{"enabled": false}`)
		dev.SetJSON("/api/v1/state", strings.Replace(dingztest.State, `"active": true`, `"active": false`, 1))
	})
	views := Discover(s)

	if v, ok := Find(views, KindDimmer, 3); !ok || v.Name() != "Spots" {
		t.Errorf("dimmer 3 = %v, %v; want name Spots from dimmer_config", v, ok)
	}
	for _, kind := range []string{KindCover, KindMotion, KindThermostat} {
		if _, ok := Find(views, kind, 0); ok {
			t.Errorf("%s discovered although disabled", kind)
		}
	}
}

// =============================================================================
// Dimmer
// =============================================================================

func TestDimmer_UnrelatedNotificationsLeaveItUnchanged(t *testing.T) {
	s, _ := startDevice(t)
	d := NewDimmer(s, 2, "Ceiling", true)
	unbind := Bind(d, s)
	defer unbind()

	on, ok := d.IsOn()
	if !ok || !on {
		t.Fatalf("IsOn() = %v, %v; want on", on, ok)
	}
	before, _ := d.Brightness()
	if before != 127 {
		t.Fatalf("Brightness() = %d, want 127 for output 50", before)
	}

	s.Bus().Dispatch(notify.MotorState{Index: 2, Position: 10, Lamella: 0, Motion: notify.MotorClosing})
	s.Bus().Dispatch(notify.ButtonEvent{Index: 2, Event: notify.ButtonPress})
	s.Bus().Dispatch(notify.LightState{Index: 1, Turn: notify.LightOff, Brightness: 0})

	on, _ = d.IsOn()
	after, _ := d.Brightness()
	if !on || after != before {
		t.Errorf("dimmer changed to on=%v brightness=%d", on, after)
	}
}

func TestDimmer_LightStateAndSnapshotsAlternate(t *testing.T) {
	s, dev := startDevice(t)
	d := NewDimmer(s, 2, "Ceiling", true)
	defer Bind(d, s)()

	s.Bus().Dispatch(notify.LightState{Index: 2, Turn: notify.LightOff, Brightness: 20})
	if on, _ := d.IsOn(); on {
		t.Error("IsOn() = true after off notification")
	}
	if b, _ := d.Brightness(); b != 51 {
		t.Errorf("Brightness() = %d, want 51", b)
	}

	// A newer snapshot wins again.
	dev.SetJSON("/api/v1/state", strings.Replace(dingztest.State, `"on": true, "output": 50`, `"on": true, "output": 100`, 1))
	if err := s.State().RequestRefresh(context.Background()); err != nil {
		t.Fatalf("RequestRefresh() error = %v", err)
	}
	if b, _ := d.Brightness(); b != 255 {
		t.Errorf("Brightness() = %d, want 255 after snapshot", b)
	}
}

func TestDimmer_Commands(t *testing.T) {
	s, dev := startDevice(t)
	d := NewDimmer(s, 2, "Ceiling", true)
	ctx := context.Background()

	if err := d.TurnOn(ctx, intPtr(255), intPtr(2)); err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	req, ok := dev.Last("POST", "/api/v1/dimmer/2/on")
	if !ok {
		t.Fatal("no dimmer on request")
	}
	if req.Query != "ramp=2&value=100" {
		t.Errorf("query = %q, want ramp=2&value=100", req.Query)
	}

	if err := d.TurnOff(ctx, nil); err != nil {
		t.Fatalf("TurnOff() error = %v", err)
	}
	if dev.Count("POST", "/api/v1/dimmer/2/off") != 1 {
		t.Error("no dimmer off request")
	}

	// Commands return before the follow-up refresh, which may coalesce.
	waitFor(t, "state refresh after commands", func() bool {
		return dev.Count("GET", "/api/v1/state") >= 2
	})

	if err := d.Switch(ctx, dingz.DimmerOn, dingz.DimmerOptions{Value: intPtr(150)}); !errors.Is(err, dingz.ErrInvalidArgument) {
		t.Errorf("Switch(value=150) error = %v, want ErrInvalidArgument", err)
	}
	if err := d.TurnOn(ctx, intPtr(256), nil); !errors.Is(err, dingz.ErrInvalidArgument) {
		t.Errorf("TurnOn(brightness=256) error = %v, want ErrInvalidArgument", err)
	}
}

func TestDimmer_UnknownBeforeState(t *testing.T) {
	d := NewDimmer(nil, 0, "", false)
	if _, ok := d.IsOn(); ok {
		t.Error("IsOn() known without data")
	}
	d.ApplyState(&dingz.State{})
	if _, ok := d.Brightness(); ok {
		t.Error("Brightness() known from empty state")
	}
	snap := d.Snapshot().(DimmerSnapshot)
	if snap.On != nil || snap.Brightness != nil {
		t.Errorf("Snapshot() = %+v, want unknown fields nil", snap)
	}
}

// =============================================================================
// Cover
// =============================================================================

func TestCover(t *testing.T) {
	s, dev := startDevice(t)
	c := NewCover(s, 0, "")
	defer Bind(c, s)()

	snap := c.Snapshot().(CoverSnapshot)
	if snap.Position == nil || *snap.Position != 30 || snap.Moving != "stopped" {
		t.Fatalf("Snapshot() = %+v, want position 30, stopped", snap)
	}

	goal := 0
	s.Bus().Dispatch(notify.MotorState{Index: 0, Position: 0, Goal: &goal, Lamella: 0, Motion: notify.MotorClosing})
	if closed, ok := c.IsClosed(); !ok || !closed {
		t.Errorf("IsClosed() = %v, %v", closed, ok)
	}
	snap = c.Snapshot().(CoverSnapshot)
	if snap.Moving != "closing" || snap.Goal == nil || *snap.Goal != 0 {
		t.Errorf("Snapshot() = %+v", snap)
	}

	// Mutating the notification's goal afterwards must not leak in.
	goal = 99
	if snap := c.Snapshot().(CoverSnapshot); *snap.Goal != 0 {
		t.Error("goal aliased notification memory")
	}

	// A poll reports the same vocabulary and clears the pushed goal.
	dev.SetJSON("/api/v1/state", strings.Replace(dingztest.State, `"moving": "stop"`, `"moving": "down"`, 1))
	if err := s.State().RequestRefresh(context.Background()); err != nil {
		t.Fatalf("RequestRefresh() error = %v", err)
	}
	snap = c.Snapshot().(CoverSnapshot)
	if snap.Moving != "closing" || snap.Goal != nil {
		t.Errorf("Snapshot() after poll = %+v, want closing without goal", snap)
	}
	if m, ok := c.Motion(); !ok || m != notify.MotorClosing {
		t.Errorf("Motion() = %v, %v", m, ok)
	}

	ctx := context.Background()
	if err := c.Open(ctx); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := c.SetPosition(ctx, intPtr(40), nil); err != nil {
		t.Fatalf("SetPosition() error = %v", err)
	}
	if dev.Count("POST", "/api/v1/shade/0/up") != 1 {
		t.Error("no shade up request")
	}
	req, ok := dev.Last("POST", "/api/v1/shade/0")
	if !ok || req.Query != "blind=40" {
		t.Errorf("position request = %+v", req)
	}
}

// =============================================================================
// Motion, Button, Sensor, LED
// =============================================================================

func TestMotionAndButton(t *testing.T) {
	s, dev := startDevice(t)
	m := NewMotion(s, 0, nil)
	b := NewButton(1, "B2")
	unbind := BindAll([]View{m, b}, s)
	defer unbind()

	snap := m.Snapshot().(MotionSnapshot)
	if snap.Enabled == nil || !*snap.Enabled || snap.Motion == nil || *snap.Motion {
		t.Errorf("Motion snapshot = %+v", snap)
	}

	s.Bus().Dispatch(notify.PIREvent{Index: 0, Event: notify.PIRMotionStart})
	s.Bus().Dispatch(notify.ButtonEvent{Index: 1, Event: notify.ButtonHold})
	s.Bus().Dispatch(notify.ButtonEvent{Index: 0, Event: notify.ButtonPress})

	if m.LastEvent() != notify.PIRMotionStart {
		t.Errorf("Motion.LastEvent() = %q", m.LastEvent())
	}
	if b.LastEvent() != notify.ButtonHold {
		t.Errorf("Button.LastEvent() = %q", b.LastEvent())
	}

	if err := m.ResetTime(context.Background()); err != nil {
		t.Fatalf("ResetTime() error = %v", err)
	}
	if dev.Count("POST", "/api/v1/pir/0/reset_time") != 1 {
		t.Error("no reset_time request")
	}

	unbind()
	unbind()
	s.Bus().Dispatch(notify.ButtonEvent{Index: 1, Event: notify.ButtonRelease})
	if b.LastEvent() != notify.ButtonHold {
		t.Error("unbound button still updated")
	}
}

func TestSensor(t *testing.T) {
	s, _ := startDevice(t)
	temp := NewSensor(notify.SensorTemperature)
	light := NewSensor(notify.SensorLight)
	defer BindAll([]View{temp, light}, s)()

	if v, ok := temp.Value(); !ok || v != 21.5 {
		t.Errorf("temperature = %v, %v; want 21.5", v, ok)
	}
	if v, ok := light.Value(); !ok || v != 120 {
		t.Errorf("brightness = %v, %v; want 120", v, ok)
	}

	s.Bus().Dispatch(notify.SensorState{Sensor: notify.SensorTemperature, Value: 22.25})
	if v, _ := temp.Value(); v != 22.25 {
		t.Errorf("temperature = %v after push, want 22.25", v)
	}
	if v, _ := light.Value(); v != 120 {
		t.Errorf("brightness changed by temperature push: %v", v)
	}
	if temp.Unit() != "°C" || light.Unit() != "lx" {
		t.Errorf("units = %q, %q", temp.Unit(), light.Unit())
	}
}

func TestFrontLED(t *testing.T) {
	s, dev := startDevice(t)
	led := NewFrontLED(s)
	defer Bind(led, s)()

	snap := led.Snapshot().(LEDSnapshot)
	if snap.On == nil || !*snap.On || snap.HSV != "120;100;40" {
		t.Errorf("Snapshot() = %+v", snap)
	}

	if err := led.SetColor(context.Background(), "240;100;50", intPtr(100)); err != nil {
		t.Fatalf("SetColor() error = %v", err)
	}
	req, ok := dev.Last("POST", "/api/v1/led/set")
	if !ok {
		t.Fatal("no led request")
	}
	if req.Body != "action=on&color=240;100;50&mode=hsv&ramp=100" {
		t.Errorf("body = %q", req.Body)
	}

	if err := led.Set(context.Background(), dingz.LEDCommand{Action: dingz.DimmerOn, Color: "FF0000", Mode: "rgb"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	req, _ = dev.Last("POST", "/api/v1/led/set")
	if req.Body != "action=on&color=FF0000&mode=rgb" {
		t.Errorf("body = %q", req.Body)
	}
}

// =============================================================================
// Thermostat, DDI
// =============================================================================

func TestThermostat(t *testing.T) {
	s, dev := startDevice(t)
	th := NewThermostat(s)
	defer Bind(th, s)()

	if mode, ok := th.Mode(); !ok || mode != dingz.ThermostatHeating {
		t.Errorf("Mode() = %q, %v; want heating", mode, ok)
	}
	snap := th.Snapshot().(ThermostatSnapshot)
	if snap.TargetTemperature == nil || *snap.TargetTemperature != 21 || snap.MinTemperature != 5 || snap.MaxTemperature != 30 {
		t.Errorf("Snapshot() = %+v", snap)
	}

	ctx := context.Background()
	if err := th.SetTargetTemperature(ctx, 22.5); err != nil {
		t.Fatalf("SetTargetTemperature() error = %v", err)
	}
	req, ok := dev.Last("POST", "/api/v1/thermostat_config")
	if !ok || req.Body != `{"target_temp":22.5}` {
		t.Errorf("target request = %+v", req)
	}

	if err := th.SetTargetTemperature(ctx, 31); !errors.Is(err, dingz.ErrInvalidArgument) {
		t.Errorf("SetTargetTemperature(31) error = %v, want ErrInvalidArgument", err)
	}

	if err := th.SetMode(ctx, dingz.ThermostatOff); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	req, _ = dev.Last("POST", "/api/v1/thermostat_config")
	if req.Body != `{"enable":false,"free_cooling":false,"cooling":false}` {
		t.Errorf("mode body = %q", req.Body)
	}

	// A disabled thermostat reads as off.
	dev.SetJSON("/api/v1/state", strings.Replace(dingztest.State, `"enabled": true, "target_temp"`, `"enabled": false, "target_temp"`, 1))
	waitFor(t, "thermostat off", func() bool {
		_ = s.State().RequestRefresh(ctx)
		mode, _ := th.Mode()
		return mode == dingz.ThermostatOff
	})
}

func TestDDI(t *testing.T) {
	withDDI := func(dev *dingztest.Server) {
		dev.SetJSON("/api/v1/device", `{"ABCDEFA81XYZ": {"fw_version": "1.4.5", "has_pir": false, "ddi_base": true}}`)
		dev.SetJSON("/api/v1/state", strings.Replace(dingztest.State, `"time":`,
			`"ddi_channels": [{"on": true, "brightness": 40, "color_temperature": 3000}, {"on": false}], "time":`, 1))
	}
	s, dev := startDevice(t, withDDI)
	views := Discover(s)
	defer BindAll(views, s)()

	if _, ok := Find(views, KindDDI, 1); !ok {
		t.Fatal("ddi channel 1 not discovered")
	}
	v, ok := Find(views, KindDDI, 0)
	if !ok {
		t.Fatal("ddi channel 0 not discovered")
	}
	ddi := v.(*DDI)

	snap := ddi.Snapshot().(DDISnapshot)
	if snap.Brightness == nil || *snap.Brightness != 102 || snap.ColorTemperature == nil || *snap.ColorTemperature != 3000 {
		t.Errorf("Snapshot() = %+v, want brightness 102 and 3000 K", snap)
	}

	ctx := context.Background()
	// Colour temperature alone resends the current brightness.
	if err := ddi.TurnOn(ctx, nil, intPtr(4000), nil); err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	req, ok := dev.Last("POST", "/api/v1/ddi/0/on")
	if !ok || req.Query != "brightness=40&color_temperature=4000" {
		t.Errorf("on request = %+v", req)
	}

	if err := ddi.TurnOff(ctx, intPtr(3)); err != nil {
		t.Fatalf("TurnOff() error = %v", err)
	}
	req, ok = dev.Last("POST", "/api/v1/ddi/0/off")
	if !ok || req.Query != "time=3" {
		t.Errorf("off request = %+v", req)
	}

	if err := ddi.TurnOn(ctx, nil, intPtr(9000), nil); !errors.Is(err, dingz.ErrInvalidArgument) {
		t.Errorf("TurnOn(9000 K) error = %v, want ErrInvalidArgument", err)
	}
}
