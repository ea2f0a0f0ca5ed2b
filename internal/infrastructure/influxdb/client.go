package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/dingz-bridge/internal/infrastructure/config"
)

// connectWindow bounds the start-up ping retries.
var connectWindow = 30 * time.Second

const (
	pingTimeout = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Client is a batched, non-blocking writer for one InfluxDB bucket.
//
// Thread Safety: All methods are safe for concurrent use. Write failures
// happen on the library's flush goroutine and are reported through the
// SetOnError callback.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	mu      sync.RWMutex
	open    bool
	onError func(err error)
}

// Connect builds the client and waits until the server answers a ping,
// retrying with exponential backoff for up to connectWindow so the bridge
// can start alongside a database that is still booting.
//
// Parameters:
//   - cfg: InfluxDB section of the configuration
//
// Returns:
//   - *Client: Connected client with the batched write API running
//   - error: ErrDisabled when cfg.Enabled is false, ErrConnectionFailed when
//     the server never became healthy
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batchSize = uint(cfg.BatchSize)
	}
	flushInterval := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flushInterval = time.Duration(cfg.FlushInterval) * time.Second
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(batchSize).
			SetFlushInterval(uint(flushInterval.Milliseconds())))

	ctx, cancel := context.WithTimeout(context.Background(), connectWindow)
	defer cancel()
	if err := pingUntilHealthy(ctx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		open:     true,
	}
	go c.forwardErrors(c.writeAPI.Errors())
	return c, nil
}

func pingUntilHealthy(ctx context.Context, client influxdb2.Client) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		healthy, err := client.Ping(pctx)
		if err != nil {
			return struct{}{}, err
		}
		if !healthy {
			return struct{}{}, errUnhealthy
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(connectWindow),
	)
	return err
}

func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()

		if callback != nil {
			callback(err)
		}
	}
}

// SetOnError sets the callback for asynchronous write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// IsConnected reports whether Close has not been called yet. It does not
// contact the server; use HealthCheck for that.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(ctx)
	if err == nil && !healthy {
		err = errUnhealthy
	}
	if err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Flush sends buffered points now. It is a no-op after Close.
func (c *Client) Flush() {
	if c.writeAPI == nil || !c.IsConnected() {
		return
	}
	c.writeAPI.Flush()
}

// Close flushes pending points and closes the client. Closing a zero or
// already closed Client is a no-op.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.mu.Lock()
	wasOpen := c.open
	c.open = false
	c.mu.Unlock()

	if !wasOpen {
		return nil
	}
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
