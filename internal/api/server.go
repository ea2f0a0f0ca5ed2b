package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/dingz-bridge/internal/coordinator"
	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/entity"
	"github.com/nerrad567/dingz-bridge/internal/history"
	"github.com/nerrad567/dingz-bridge/internal/infrastructure/config"
	"github.com/nerrad567/dingz-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/dingz-bridge/internal/notify"
	"github.com/nerrad567/dingz-bridge/internal/shared"
)

// gracefulShutdownTimeout bounds Close.
const gracefulShutdownTimeout = 10 * time.Second

// Device is what the API needs from a device. *shared.Shared implements it.
type Device interface {
	Name() string
	Identity() (shared.Identity, bool)
	Client() *dingz.Client
	State() *coordinator.Coordinator[dingz.State]
	Config() *coordinator.Coordinator[dingz.FullDeviceConfig]
	AddListener(fn func(notify.Notification)) notify.Unsubscribe
	RequestRefresh(ctx context.Context) error
	DelayedRequestRefresh(ctx context.Context) error
}

// DeviceEntry is one served device with its bound views.
type DeviceEntry struct {
	Device Device
	Views  []entity.View
}

// HistoryReader serves the history endpoint. *history.Repository
// implements it.
type HistoryReader interface {
	ListRefreshes(ctx context.Context, device string, limit int) ([]history.RefreshEntry, error)
	ListNotifications(ctx context.Context, device string, limit int) ([]history.NotificationEntry, error)
}

// Deps holds what the server is built from.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Devices []DeviceEntry
	History HistoryReader // optional
	Version string
}

// Server is the HTTP API server.
//
// Thread Safety: All methods are safe for concurrent use.
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	history HistoryReader
	version string

	devices map[string]DeviceEntry
	order   []string

	hub *Hub

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
	unsubs   []notify.Unsubscribe
}

// New creates the server. Nothing listens until Start.
//
// Returns:
//   - *Server: Configured server
//   - error: If the logger is missing or two devices share a name
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	s := &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		logger:  deps.Logger,
		history: deps.History,
		version: deps.Version,
		devices: make(map[string]DeviceEntry, len(deps.Devices)),
	}
	for _, d := range deps.Devices {
		name := d.Device.Name()
		if _, dup := s.devices[name]; dup {
			return nil, fmt.Errorf("duplicate device name %q", name)
		}
		s.devices[name] = d
		s.order = append(s.order, name)
	}
	s.hub = NewHub(s.wsCfg, s.logger)

	return s, nil
}

// Handler returns the router. It is usable without Start, e.g. in
// httptest servers.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start relays device notifications and snapshots to the hub and starts
// listening on cfg.Host:cfg.Port in the background.
//
// Returns:
//   - error: If the address cannot be bound
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)
	s.unsubs = s.relayDevices()

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	srv := s.server
	go func() {
		s.logger.Info("API server listening", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close stops relaying, disconnects WebSocket clients and shuts the
// listener down, waiting up to 10 seconds for in-flight requests.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	cancel := s.cancel
	unsubs := s.unsubs
	s.server, s.cancel, s.unsubs = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	for _, u := range unsubs {
		u()
	}
	cancel()

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// relayDevices forwards every device's notifications and snapshots to the
// hub.
func (s *Server) relayDevices() []notify.Unsubscribe {
	unsubs := make([]notify.Unsubscribe, 0, 2*len(s.order))
	for _, name := range s.order {
		dev := s.devices[name].Device
		unsubs = append(unsubs,
			dev.AddListener(func(n notify.Notification) {
				s.hub.BroadcastNotification(name, n)
			}),
			dev.State().AddListener(func(st *dingz.State) {
				s.hub.BroadcastState(name, st)
			}),
		)
	}
	return unsubs
}

func (s *Server) device(name string) (DeviceEntry, bool) {
	d, ok := s.devices[name]
	return d, ok
}
