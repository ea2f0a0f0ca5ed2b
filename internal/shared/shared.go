package shared

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/dingz-bridge/internal/bridge"
	"github.com/nerrad567/dingz-bridge/internal/coordinator"
	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// Polling defaults.
const (
	DefaultStateInterval  = 30 * time.Second
	DefaultConfigInterval = 5 * time.Minute
)

// Coordinator resource names, used in logs and refresh history.
const (
	ResourceState  = "state"
	ResourceConfig = "config"
)

// Logger is the logging interface used by a device and everything it owns.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a device.
type Options struct {
	// Name identifies the device in this service (logs, API, history).
	// Defaults to the base URL.
	Name string

	// ClientOptions are passed to dingz.NewClient.
	ClientOptions []dingz.Option

	// StateInterval and ConfigInterval are the polling periods.
	StateInterval  time.Duration
	ConfigInterval time.Duration

	// SettleDelay is the wait before a delayed refresh.
	SettleDelay time.Duration

	// MQTT enables the push bridge when set.
	MQTT    bridge.MQTTClient
	MQTTQoS byte

	// Recorder receives every refresh result. Optional.
	Recorder coordinator.Recorder

	// Logger is optional.
	Logger Logger
}

// Shared is the per-device composition root.
//
// Thread Safety: All methods are safe for concurrent use.
type Shared struct {
	name    string
	client  *dingz.Client
	state   *coordinator.Coordinator[dingz.State]
	config  *coordinator.Coordinator[dingz.FullDeviceConfig]
	bus     *notify.Bus
	mqtt    bridge.MQTTClient
	mqttQoS byte
	logger  Logger

	identity atomic.Pointer[Identity]

	// mu guards the bridge and the run state.
	mu          sync.Mutex
	bridge      *bridge.Bridge
	unsubConfig notify.Unsubscribe
	runCancel   context.CancelFunc

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New builds the client, coordinators and bus for the device at baseURL.
// Nothing is fetched until FirstRefresh.
func New(baseURL string, opts Options) (*Shared, error) {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	clientOpts := append([]dingz.Option{dingz.WithLogger(logger)}, opts.ClientOptions...)
	client, err := dingz.NewClient(baseURL, clientOpts...)
	if err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = client.BaseURL()
	}

	stateInterval := opts.StateInterval
	if stateInterval <= 0 {
		stateInterval = DefaultStateInterval
	}
	configInterval := opts.ConfigInterval
	if configInterval <= 0 {
		configInterval = DefaultConfigInterval
	}

	bus := notify.NewBus()
	bus.SetLogger(logger)

	s := &Shared{
		name:    name,
		client:  client,
		bus:     bus,
		mqtt:    opts.MQTT,
		mqttQoS: opts.MQTTQoS,
		logger:  logger,
		done:    make(chan struct{}),
	}

	s.state = coordinator.New[dingz.State](client.GetState, coordinator.Options{
		Name:        ResourceState,
		Device:      name,
		Interval:    stateInterval,
		SettleDelay: opts.SettleDelay,
		Logger:      logger,
		Recorder:    opts.Recorder,
	})
	s.config = coordinator.New[dingz.FullDeviceConfig](client.GetFullDeviceConfig, coordinator.Options{
		Name:        ResourceConfig,
		Device:      name,
		Interval:    configInterval,
		SettleDelay: opts.SettleDelay,
		Logger:      logger,
		Recorder:    opts.Recorder,
	})

	return s, nil
}

// Start is New followed by FirstRefresh. On failure everything created so
// far is stopped.
func Start(ctx context.Context, baseURL string, opts Options) (*Shared, error) {
	s, err := New(baseURL, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStartupFailed, err)
	}
	if err := s.FirstRefresh(ctx); err != nil {
		s.Stop()
		return nil, err
	}
	return s, nil
}

// FirstRefresh loads state and config, fixes the identity and starts the
// MQTT bridge when configured.
//
// Returns:
//   - ErrStartupFailed wrapping coordinator.ErrFirstRefreshFailed when
//     either first refresh fails
//   - ErrStartupFailed wrapping the bridge error when subscribing fails
func (s *Shared) FirstRefresh(ctx context.Context) error {
	if err := s.state.FirstRefresh(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStartupFailed, s.name, err)
	}

	mac, ok := s.state.Data().MAC()
	if ok {
		mac = FormatMAC(mac)
	} else {
		s.logger.Warn("state has no wifi MAC address", "device", s.name)
	}

	if err := s.config.FirstRefresh(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStartupFailed, s.name, err)
	}

	cfg := s.config.Data()
	id := newIdentity(s.name, s.client.BaseURL(), mac, cfg)
	if !s.identity.CompareAndSwap(nil, &id) {
		s.logger.Debug("identity already established", "device", s.name)
	}

	if s.mqtt != nil {
		if err := s.startBridge(cfg.SystemID()); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrStartupFailed, s.name, err)
		}
	}

	s.logger.Info("device ready",
		"device", s.name,
		"id", id.ID,
		"mac", id.MAC,
		"model", id.Model,
		"firmware", id.SWVersion,
		"mqtt", s.mqtt != nil,
	)
	return nil
}

func (s *Shared) startBridge(systemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bridge != nil {
		return nil
	}

	b, err := bridge.New(bridge.Options{
		Client: s.mqtt,
		Bus:    s.bus,
		QoS:    s.mqttQoS,
		Logger: s.logger,
	})
	if err != nil {
		return err
	}

	if systemID == "" {
		s.logger.Warn("config has no system id, MQTT bridge idle until one appears", "device", s.name)
	}
	if err := b.SetDeviceID(systemID); err != nil {
		b.Stop()
		return err
	}

	s.bridge = b
	s.unsubConfig = s.config.AddListener(func(cfg *dingz.FullDeviceConfig) {
		if err := b.SetDeviceID(cfg.SystemID()); err != nil && !errors.Is(err, bridge.ErrStopped) {
			s.logger.Error("moving MQTT subscriptions failed", "device", s.name, "error", err)
		}
	})
	return nil
}

// Run polls state and config until ctx is done or Stop is called.
func (s *Shared) Run(ctx context.Context) {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return
	default:
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.runCancel = cancel
	s.wg.Add(2)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.state.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.config.Run(runCtx)
	}()

	<-runCtx.Done()
	s.wg.Wait()
}

// Stop stops polling, the bridge and the config listener. It is safe to
// call more than once.
func (s *Shared) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		if s.runCancel != nil {
			s.runCancel()
		}
		if s.unsubConfig != nil {
			s.unsubConfig()
		}
		if s.bridge != nil {
			s.bridge.Stop()
		}
		s.mu.Unlock()

		s.wg.Wait()
		s.logger.Info("device stopped", "device", s.name)
	})
}

// Teardown is Stop.
func (s *Shared) Teardown() { s.Stop() }

// =============================================================================
// Accessors
// =============================================================================

// Name returns the configured device name.
func (s *Shared) Name() string { return s.name }

// Client returns the device's HTTP client for issuing commands.
func (s *Shared) Client() *dingz.Client { return s.client }

// State returns the state coordinator.
func (s *Shared) State() *coordinator.Coordinator[dingz.State] { return s.state }

// Config returns the config coordinator.
func (s *Shared) Config() *coordinator.Coordinator[dingz.FullDeviceConfig] { return s.config }

// Bus returns the notification bus.
func (s *Shared) Bus() *notify.Bus { return s.bus }

// AddListener subscribes fn to the device's notifications.
func (s *Shared) AddListener(fn func(notify.Notification)) notify.Unsubscribe {
	return s.bus.Subscribe(fn)
}

// Identity returns the identity fixed by FirstRefresh.
func (s *Shared) Identity() (Identity, bool) {
	id := s.identity.Load()
	if id == nil {
		return Identity{}, false
	}
	return *id, true
}

// MACAddr returns the formatted MAC address, empty before FirstRefresh or
// when the device did not report one.
func (s *Shared) MACAddr() string {
	id, _ := s.Identity()
	return id.MAC
}

// MQTTDeviceID returns the id the bridge currently listens on, empty when
// MQTT is not configured.
func (s *Shared) MQTTDeviceID() string {
	s.mu.Lock()
	b := s.bridge
	s.mu.Unlock()
	if b == nil {
		return ""
	}
	return b.DeviceID()
}

// ResubscribeMQTT retries bridge patterns that failed to subscribe, for
// example while the broker was unreachable. The MQTT client only replays
// subscriptions that succeeded, so cmd/dingzbridge calls this from the
// client's connect hook. Without MQTT it does nothing.
//
// Returns ErrNotStarted before FirstRefresh.
func (s *Shared) ResubscribeMQTT() error {
	if _, ok := s.Identity(); !ok {
		return ErrNotStarted
	}
	s.mu.Lock()
	b := s.bridge
	s.mu.Unlock()
	if b == nil || !b.Pending() {
		return nil
	}
	return b.SetDeviceID(b.DeviceID())
}

// RequestRefresh refreshes state and config together.
func (s *Shared) RequestRefresh(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.state.RequestRefresh(gctx) })
	g.Go(func() error { return s.config.RequestRefresh(gctx) })
	return g.Wait()
}

// DelayedRequestRefresh refreshes state after the settle delay. Commands
// call it so the device has applied the change before it is re-read.
func (s *Shared) DelayedRequestRefresh(ctx context.Context) error {
	return s.state.DelayedRequestRefresh(ctx)
}
