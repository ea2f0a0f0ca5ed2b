package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/dingz-bridge/internal/dingz/dingztest"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config failure", err)
	}
}

// TestRun_NoDevices verifies validation rejects an empty device list.
func TestRun_NoDevices(t *testing.T) {
	path := writeConfig(t, `
devices: []
logging:
  level: error
  format: text
`)
	err := run(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "at least one device") {
		t.Fatalf("run() error = %v, want device validation failure", err)
	}
}

// TestRun_DeviceUnreachable verifies a device that never answers aborts
// startup.
func TestRun_DeviceUnreachable(t *testing.T) {
	path := writeConfig(t, fmt.Sprintf(`
devices:
  - name: hallway
    base_url: "http://127.0.0.1:%d"
client:
  read_attempts: 1
  read_retry_delay: 1ms
  min_interval: 0s
  request_timeout: 1s
database:
  enabled: false
api:
  enabled: false
logging:
  level: error
  format: text
`, freePort(t)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := run(ctx, path)
	if err == nil || !strings.Contains(err.Error(), "starting device hallway") {
		t.Fatalf("run() error = %v, want device startup failure", err)
	}
}

// TestRun_Lifecycle starts the service against a fake device, waits for the
// API and shuts it down.
func TestRun_Lifecycle(t *testing.T) {
	dev := dingztest.NewServer(t, nil)
	port := freePort(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")

	path := writeConfig(t, fmt.Sprintf(`
devices:
  - name: hallway
    base_url: %q
client:
  read_attempts: 1
  min_interval: 0s
polling:
  settle_delay: 1ms
database:
  enabled: true
  path: %q
  history_retention: 24h
api:
  host: 127.0.0.1
  port: %d
logging:
  level: error
  format: text
`, dev.URL, dbPath, port))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, path) }()

	base := fmt.Sprintf("http://127.0.0.1:%d/api/v1", port)
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(base + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		select {
		case err := <-done:
			cancel()
			t.Fatalf("run() exited early: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("API did not come up")
		}
		time.Sleep(20 * time.Millisecond)
	}

	resp, err := http.Get(base + "/devices/hallway/history")
	if err != nil {
		cancel()
		t.Fatalf("GET history error = %v", err)
	}
	var hist struct {
		Refreshes []struct {
			Kind string `json:"kind"`
		} `json:"refreshes"`
	}
	err = json.NewDecoder(resp.Body).Decode(&hist)
	resp.Body.Close()
	if err != nil {
		cancel()
		t.Fatalf("decoding history: %v", err)
	}
	if len(hist.Refreshes) < 2 {
		t.Errorf("refresh history = %+v, want the startup refreshes", hist.Refreshes)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancel")
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("DINGZ_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("DINGZ_CONFIG", "/etc/dingz/config.yaml")
	if got := getConfigPath(); got != "/etc/dingz/config.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}
