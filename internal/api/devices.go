package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/dingz-bridge/internal/coordinator"
	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/entity"
	"github.com/nerrad567/dingz-bridge/internal/history"
	"github.com/nerrad567/dingz-bridge/internal/shared"
)

// =============================================================================
// Response types
// =============================================================================

// StatusView is the JSON form of a coordinator status.
type StatusView struct {
	LastAttempt         *time.Time `json:"last_attempt,omitempty"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Refreshes           int        `json:"refreshes"`
}

// DeviceView is one device in the device list.
type DeviceView struct {
	Name     string           `json:"name"`
	Identity *shared.Identity `json:"identity,omitempty"`
	State    StatusView       `json:"state"`
	Config   StatusView       `json:"config"`
}

// EntityView is one component view with its current values.
type EntityView struct {
	Kind  string `json:"kind"`
	Index int    `json:"index"`
	Name  string `json:"name,omitempty"`
	State any    `json:"state"`
}

// HistoryView is the history of one device.
type HistoryView struct {
	Refreshes     []history.RefreshEntry      `json:"refreshes"`
	Notifications []history.NotificationEntry `json:"notifications"`
}

func statusView(st coordinator.Status) StatusView {
	v := StatusView{ConsecutiveFailures: st.ConsecutiveFailures, Refreshes: st.Refreshes}
	if !st.LastAttempt.IsZero() {
		t := st.LastAttempt
		v.LastAttempt = &t
	}
	if !st.LastSuccess.IsZero() {
		t := st.LastSuccess
		v.LastSuccess = &t
	}
	if st.LastError != nil {
		v.LastError = st.LastError.Error()
	}
	return v
}

func deviceView(d Device) DeviceView {
	v := DeviceView{
		Name:   d.Name(),
		State:  statusView(d.State().Status()),
		Config: statusView(d.Config().Status()),
	}
	if id, ok := d.Identity(); ok {
		v.Identity = &id
	}
	return v
}

// =============================================================================
// Reads
// =============================================================================

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	views := make([]DeviceView, 0, len(s.order))
	for _, name := range s.order {
		views = append(views, deviceView(s.devices[name].Device))
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": views, "count": len(views)})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, deviceView(deviceFrom(r).Device))
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	st := deviceFrom(r).Device.State().Data()
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "no state snapshot yet")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := deviceFrom(r).Device.Config().Data()
	if cfg == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "no config snapshot yet")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	entry := deviceFrom(r)
	views := make([]EntityView, 0, len(entry.Views))
	for _, v := range entry.Views {
		views = append(views, EntityView{Kind: v.Kind(), Index: v.Index(), Name: v.Name(), State: v.Snapshot()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": views, "count": len(views)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "history is disabled")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	name := deviceFrom(r).Device.Name()
	refreshes, err := s.history.ListRefreshes(r.Context(), name, limit)
	if err != nil {
		s.logger.Error("listing refresh history failed", "device", name, "error", err)
		writeInternalError(w, "history query failed")
		return
	}
	notes, err := s.history.ListNotifications(r.Context(), name, limit)
	if err != nil {
		s.logger.Error("listing notification history failed", "device", name, "error", err)
		writeInternalError(w, "history query failed")
		return
	}
	writeJSON(w, http.StatusOK, HistoryView{Refreshes: refreshes, Notifications: notes})
}

// =============================================================================
// Commands
// =============================================================================

// Component commands resolve their view and call it; the view schedules
// the follow-up refresh. Device-level commands go through command.

type dimmerRequest struct {
	Value *int `json:"value"`
	Ramp  *int `json:"ramp"`
}

type shadePositionRequest struct {
	Blind   *int `json:"blind"`
	Lamella *int `json:"lamella"`
}

type ledRequest struct {
	Action string `json:"action"`
	Color  string `json:"color"`
	Mode   string `json:"mode"`
	Ramp   *int   `json:"ramp"`
}

type thermostatRequest struct {
	TargetTemperature *float64 `json:"target_temperature"`
	Mode              *string  `json:"mode"`
}

type ddiRequest struct {
	Value            *int `json:"value"`
	ColorTemperature *int `json:"color_temperature"`
	Ramp             *int `json:"ramp"`
}

type tempOffsetRequest struct {
	Offset *float64 `json:"offset"`
}

type mqttServiceRequest struct {
	Enable *bool   `json:"enable"`
	URI    *string `json:"uri"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	dev := deviceFrom(r).Device
	if err := dev.RequestRefresh(r.Context()); err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deviceView(dev))
}

func (s *Server) handleDimmer(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	action := dingz.DimmerAction(chi.URLParam(r, "action"))
	switch action {
	case dingz.DimmerOn, dingz.DimmerOff, dingz.DimmerToggle:
	default:
		writeBadRequest(w, fmt.Sprintf("unknown dimmer action %q", action))
		return
	}
	var req dimmerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, ok := findView[*entity.Dimmer](w, r, entity.KindDimmer, index)
	if !ok {
		return
	}

	accept(w, d.Switch(r.Context(), action, dingz.DimmerOptions{Value: req.Value, Ramp: req.Ramp}))
}

func (s *Server) handleShade(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	action := dingz.ShadeAction(chi.URLParam(r, "action"))
	var move func(*entity.Cover, context.Context) error
	switch action {
	case dingz.ShadeUp:
		move = (*entity.Cover).Open
	case dingz.ShadeDown:
		move = (*entity.Cover).Close
	case dingz.ShadeStop:
		move = (*entity.Cover).Stop
	default:
		writeBadRequest(w, fmt.Sprintf("unknown shade action %q", action))
		return
	}
	c, ok := findView[*entity.Cover](w, r, entity.KindCover, index)
	if !ok {
		return
	}

	accept(w, move(c, r.Context()))
}

func (s *Server) handleShadePosition(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req shadePositionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Blind == nil && req.Lamella == nil {
		writeBadRequest(w, "blind or lamella is required")
		return
	}
	c, ok := findView[*entity.Cover](w, r, entity.KindCover, index)
	if !ok {
		return
	}

	accept(w, c.SetPosition(r.Context(), req.Blind, req.Lamella))
}

func (s *Server) handleLED(w http.ResponseWriter, r *http.Request) {
	var req ledRequest
	if !decodeBody(w, r, &req) {
		return
	}
	action := dingz.DimmerAction(req.Action)
	switch action {
	case dingz.DimmerOn, dingz.DimmerOff, dingz.DimmerToggle:
	default:
		writeBadRequest(w, fmt.Sprintf("unknown led action %q", req.Action))
		return
	}
	if req.Mode != "" && req.Mode != "hsv" && req.Mode != "rgb" {
		writeBadRequest(w, "mode must be hsv or rgb")
		return
	}
	led, ok := findView[*entity.FrontLED](w, r, entity.KindLED, 0)
	if !ok {
		return
	}

	accept(w, led.Set(r.Context(), dingz.LEDCommand{Action: action, Color: req.Color, Mode: req.Mode, Ramp: req.Ramp}))
}

func (s *Server) handlePIRReset(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	m, ok := findView[*entity.Motion](w, r, entity.KindMotion, index)
	if !ok {
		return
	}

	accept(w, m.ResetTime(r.Context()))
}

func (s *Server) handleThermostat(w http.ResponseWriter, r *http.Request) {
	var req thermostatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TargetTemperature == nil && req.Mode == nil {
		writeBadRequest(w, "target_temperature or mode is required")
		return
	}
	th, ok := findView[*entity.Thermostat](w, r, entity.KindThermostat, 0)
	if !ok {
		return
	}

	if req.Mode != nil {
		if err := th.SetMode(r.Context(), dingz.ThermostatMode(*req.Mode)); err != nil {
			writeDeviceError(w, err)
			return
		}
	}
	if req.TargetTemperature != nil {
		if err := th.SetTargetTemperature(r.Context(), *req.TargetTemperature); err != nil {
			writeDeviceError(w, err)
			return
		}
	}
	accept(w, nil)
}

func (s *Server) handleDDI(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	action := dingz.DimmerAction(chi.URLParam(r, "action"))
	if action != dingz.DimmerOn && action != dingz.DimmerOff {
		writeBadRequest(w, fmt.Sprintf("unknown ddi action %q", action))
		return
	}
	var req ddiRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, ok := findView[*entity.DDI](w, r, entity.KindDDI, index)
	if !ok {
		return
	}

	accept(w, d.Switch(r.Context(), dingz.DDIChannelCommand{
		Action:           action,
		Brightness:       req.Value,
		ColorTemperature: req.ColorTemperature,
		Time:             req.Ramp,
	}))
}

func (s *Server) handleTempOffset(w http.ResponseWriter, r *http.Request) {
	var req tempOffsetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Offset == nil {
		writeBadRequest(w, "offset is required")
		return
	}

	s.command(w, r, true, func(ctx context.Context, c *dingz.Client) error {
		return c.SetTempOffset(ctx, *req.Offset)
	})
}

func (s *Server) handleMQTTService(w http.ResponseWriter, r *http.Request) {
	var req mqttServiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enable == nil {
		writeBadRequest(w, "enable is required")
		return
	}

	s.command(w, r, true, func(ctx context.Context, c *dingz.Client) error {
		return c.UpdateMQTTServiceConfig(ctx, dingz.ServicesConfigMQTT{Enable: req.Enable, URI: req.URI})
	})
}

func (s *Server) handleSaveDefaultConfig(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, false, func(ctx context.Context, c *dingz.Client) error {
		return c.SaveDefaultConfig(ctx)
	})
}

func (s *Server) handleReboot(w http.ResponseWriter, r *http.Request) {
	dev := deviceFrom(r).Device
	if err := dev.Client().Reboot(r.Context()); err != nil {
		writeDeviceError(w, err)
		return
	}
	s.logger.Info("device reboot requested", "device", dev.Name(), "request_id", r.Context().Value(ctxKeyRequestID))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "rebooting"})
}

// command runs a device-level fn against the client and, on success,
// schedules a delayed refresh: the state snapshot, preceded by the config
// snapshot when withConfig is set.
func (s *Server) command(w http.ResponseWriter, r *http.Request, withConfig bool, fn func(ctx context.Context, c *dingz.Client) error) {
	dev := deviceFrom(r).Device
	if err := fn(r.Context(), dev.Client()); err != nil {
		writeDeviceError(w, err)
		return
	}

	refreshCtx := context.WithoutCancel(r.Context())
	go func() {
		if withConfig {
			if err := dev.Config().DelayedRequestRefresh(refreshCtx); err != nil {
				s.logger.Debug("post-command config refresh failed", "device", dev.Name(), "error", err)
			}
		}
		if err := dev.DelayedRequestRefresh(refreshCtx); err != nil {
			s.logger.Debug("post-command refresh failed", "device", dev.Name(), "error", err)
		}
	}()
	accept(w, nil)
}

// accept answers 202 when err is nil and maps err otherwise.
func accept(w http.ResponseWriter, err error) {
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// findView resolves the view of kind at index on the request's device. It
// answers 404 when the device has no such component.
func findView[T entity.View](w http.ResponseWriter, r *http.Request, kind string, index int) (T, bool) {
	var zero T
	v, ok := entity.Find(deviceFrom(r).Views, kind, index)
	if !ok {
		writeNotFound(w, fmt.Sprintf("device has no %s %d", kind, index))
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		writeInternalError(w, fmt.Sprintf("%s %d has an unexpected view type", kind, index))
		return zero, false
	}
	return t, true
}

// =============================================================================
// Helpers
// =============================================================================

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "index")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeBadRequest(w, fmt.Sprintf("invalid index %q", raw))
		return 0, false
	}
	return n, true
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// unchanged.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
