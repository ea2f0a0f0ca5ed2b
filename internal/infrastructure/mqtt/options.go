package mqtt

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/dingz-bridge/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout bounds every publish, subscribe and
	// unsubscribe acknowledgement.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is in milliseconds, as paho expects.
	defaultDisconnectQuiesce = 1000

	defaultKeepAlive = 60 * time.Second
	maxQoS           = 2
	tlsMinVersion    = tls.VersionTLS12

	// Generated client ids are clientIDPrefix plus clientIDSuffixLen hex
	// characters.
	clientIDPrefix    = "dingz-bridge-"
	clientIDSuffixLen = 8
)

// resolveClientID returns id, or a random id when id is empty. Two bridges
// sharing a client id would keep kicking each other off the broker.
func resolveClientID(id string) string {
	if id != "" {
		return id
	}
	return clientIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:clientIDSuffixLen]
}

// buildClientOptions maps the service config onto paho options.
//
// Sessions are clean: the bridge replays its own subscriptions after a
// reconnect and only cares about live events. Reconnect and connect retry
// both use the configured delays; paho doubles the delay up to MaxDelay.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(defaultConnectTimeout).
		SetKeepAlive(defaultKeepAlive)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}
	return opts
}

// configureLWT registers the offline status the broker publishes on
// dingz-bridge/status if the connection drops without Close.
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	will := serviceStatus(StatusOffline, clientID, ReasonUnexpected)
	opts.SetBinaryWill(Topics{}.ServiceStatus(), will.Payload(), 1, true)
}
