// dingz-bridge keeps live models of dingz smart-building controllers.
//
// Every configured device is polled over its local HTTP API, push events
// arrive over MQTT, and the combined view is served over REST/WebSocket,
// recorded to SQLite and written to InfluxDB.
//
// Usage:
//
//	dingzbridge -config configs/config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/dingz-bridge/internal/api"
	"github.com/nerrad567/dingz-bridge/internal/coordinator"
	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/entity"
	"github.com/nerrad567/dingz-bridge/internal/history"
	"github.com/nerrad567/dingz-bridge/internal/infrastructure/config"
	"github.com/nerrad567/dingz-bridge/internal/infrastructure/database"
	"github.com/nerrad567/dingz-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/dingz-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/dingz-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/dingz-bridge/internal/notify"
	"github.com/nerrad567/dingz-bridge/internal/shared"
	"github.com/nerrad567/dingz-bridge/internal/telemetry"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

// pruneInterval is how often expired history is deleted.
const pruneInterval = time.Hour

func main() {
	configPath := flag.String("config", getConfigPath(), "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dingz-bridge %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application, separated from main for testability.
//
// Parameters:
//   - ctx: Cancelled on shutdown signals
//   - configPath: YAML configuration file
//
// Returns:
//   - error: nil on clean shutdown, or the startup failure
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting dingz-bridge", "version", version, "commit", commit, "build_date", date)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "devices", len(cfg.Devices))

	// History (optional)
	var (
		db   *database.DB
		hist *history.Repository
	)
	if cfg.Database.Enabled {
		db, err = database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		hist, err = history.New(ctx, db, history.WithLogger(log.ForComponent("history")))
		if err != nil {
			return fmt.Errorf("initialising history: %w", err)
		}
		log.Info("history enabled", "path", cfg.Database.Path, "retention", cfg.Database.HistoryRetention)
	} else {
		log.Info("history disabled")
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.ForComponent("mqtt"))
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected", "broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port))
	} else {
		log.Info("MQTT disabled, devices are polled only")
	}

	// InfluxDB (optional)
	var (
		influxClient *influxdb.Client
		sink         *telemetry.Sink
	)
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		sink = telemetry.New(influxClient)
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	// Devices
	devices, err := startDevices(ctx, cfg, hist, mqttClient, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, d := range devices {
			d.Stop()
		}
	}()

	var unsubs []notify.Unsubscribe
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	// runCtx ends the poll and prune loops on any return path.
	runCtx, stopRun := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		stopRun()
		wg.Wait()
	}()

	entries := make([]api.DeviceEntry, 0, len(devices))
	for _, d := range devices {
		name := d.Name()
		if hist != nil {
			unsubs = append(unsubs, hist.Attach(name, d.AddListener))
		}
		if sink != nil {
			unsubs = append(unsubs, sink.AttachBus(name, d.AddListener), sink.AttachState(name, d.State()))
		}

		views := entity.Discover(d)
		unsubs = append(unsubs, notify.Unsubscribe(entity.BindAll(views, d)))
		entries = append(entries, api.DeviceEntry{Device: d, Views: views})

		if mqttClient != nil {
			publishDeviceStatus(mqttClient, d, mqtt.StatusOnline, log)
			defer publishDeviceStatus(mqttClient, d, mqtt.StatusOffline, log)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Run(runCtx)
		}()
		log.Info("device ready", "device", name, "entities", len(views), "mqtt_id", d.MQTTDeviceID())
	}

	if mqttClient != nil {
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
			for _, d := range devices {
				if err := d.ResubscribeMQTT(); err != nil {
					log.Error("retrying MQTT subscriptions failed", "device", d.Name(), "error", err)
				}
			}
		})
	}

	// API (optional)
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log.ForComponent("api"),
			Devices: entries,
			Version: version,
		}
		if hist != nil {
			deps.History = hist
		}
		server, err := api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
		log.Info("API server listening", "addr", server.Addr())
	}

	if hist != nil && cfg.Database.HistoryRetention > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runPrune(runCtx, hist, cfg.Database.HistoryRetention, log)
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// getConfigPath returns the default configuration path, taken from
// DINGZ_CONFIG when set.
func getConfigPath() string {
	if path := os.Getenv("DINGZ_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startDevices starts every configured device concurrently. If any device
// fails its first refresh the ones already started are stopped and the
// error is returned.
func startDevices(ctx context.Context, cfg *config.Config, hist *history.Repository, mqttClient *mqtt.Client, log *logging.Logger) ([]*shared.Shared, error) {
	var recorder coordinator.Recorder
	if hist != nil {
		recorder = hist
	}
	var mqttAdapter *mqttBridgeAdapter
	if mqttClient != nil {
		mqttAdapter = &mqttBridgeAdapter{client: mqttClient}
	}

	clientOpts := []dingz.Option{
		dingz.WithHTTPClient(&http.Client{Timeout: cfg.Client.RequestTimeout}),
		dingz.WithReadPolicy(dingz.RetryPolicy{Attempts: cfg.Client.ReadAttempts, Delay: cfg.Client.ReadRetryDelay}),
		dingz.WithWritePolicy(dingz.RetryPolicy{Attempts: cfg.Client.WriteAttempts, Delay: cfg.Client.WriteRetryDelay}),
		dingz.WithMinInterval(cfg.Client.MinInterval),
	}

	devices := make([]*shared.Shared, len(cfg.Devices))
	g, gctx := errgroup.WithContext(ctx)
	for i, dc := range cfg.Devices {
		g.Go(func() error {
			opts := shared.Options{
				Name:           dc.Name,
				ClientOptions:  clientOpts,
				StateInterval:  cfg.Polling.StateInterval,
				ConfigInterval: cfg.Polling.ConfigInterval,
				SettleDelay:    cfg.Polling.SettleDelay,
				MQTTQoS:        byte(cfg.MQTT.QoS),
				Recorder:       recorder,
				Logger:         log.ForDevice(dc.Name),
			}
			if mqttAdapter != nil {
				opts.MQTT = mqttAdapter
			}

			d, err := shared.Start(gctx, dc.BaseURL, opts)
			if err != nil {
				return fmt.Errorf("starting device %s: %w", dc.Name, err)
			}
			devices[i] = d
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, d := range devices {
			if d != nil {
				d.Stop()
			}
		}
		return nil, err
	}
	return devices, nil
}

// runPrune deletes history older than retention once at start and then
// every pruneInterval until ctx is done.
func runPrune(ctx context.Context, hist *history.Repository, retention time.Duration, log *logging.Logger) {
	prune := func() {
		n, err := hist.Prune(ctx, retention)
		switch {
		case errors.Is(err, context.Canceled):
		case err != nil:
			log.Warn("pruning history failed", "error", err)
		case n > 0:
			log.Info("history pruned", "rows", n)
		}
	}

	prune()
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// publishDeviceStatus announces one device's availability on its retained
// dingz-bridge/devices/{name}/status topic.
func publishDeviceStatus(client *mqtt.Client, d *shared.Shared, status string, log *logging.Logger) {
	id, _ := d.Identity()
	msg := mqtt.NewStatus(status)
	msg.DeviceID = id.ID
	msg.MAC = id.MAC
	if err := client.PublishStatus(mqtt.Topics{}.ServiceDevice(d.Name()), msg); err != nil {
		log.Warn("publishing device status failed", "device", d.Name(), "status", status, "error", err)
	}
}

// healthCheck verifies the enabled infrastructure connections.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database to check (nil if history is disabled)
//   - mqttClient: MQTT client to check (nil if disabled)
//   - influxClient: InfluxDB client to check (nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to
// bridge.MQTTClient. Bridge handlers do not return errors; malformed
// payloads are logged by the bridge itself.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Subscribe implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// Unsubscribe implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Unsubscribe(topic string) error {
	return a.client.Unsubscribe(topic)
}
