package influxdb

import "time"

// SetConnectWindow shortens the start-up retry window for tests.
func SetConnectWindow(d time.Duration) (restore func()) {
	old := connectWindow
	connectWindow = d
	return func() { connectWindow = old }
}
