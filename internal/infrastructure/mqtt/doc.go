// Package mqtt provides MQTT client connectivity for dingz-bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Topic subscriptions with wildcard support, restored after reconnect
//   - Retained availability Status messages, with a Last Will and
//     Testament (LWT) for offline detection of the bridge
//   - Topic builders for the dingz device namespace
//
// # Architecture
//
// Each dingz publishes its push events (motion, buttons, motor and light
// state, sensor readings, link state) to a broker once its MQTT service is
// enabled. The bridge subscribes to those topics through this package and
// turns the payloads into typed notifications.
//
//	dingz device → MQTT Broker → dingz-bridge
//
// # Topic Layout
//
//	dingz/{id}/online                   "true" or "false"
//	dingz/{id}/{x}/event/pir/{n}        "s", "ss", "n"
//	dingz/{id}/{x}/event/button/{n}     "p", "r", "h", "m1".."m5"
//	dingz/{id}/{x}/state/motor/{n}      {"position":..,"lamella":..,"motion":..}
//	dingz/{id}/{x}/state/light/{n}      {"turn":"on","brightness":..}
//	dingz/{id}/{x}/sensor/{name}        decimal number
//	dingz-bridge/status                 bridge availability (retained, LWT)
//	dingz-bridge/devices/{name}/status  per-device availability (retained)
//
// # Security Considerations
//
//   - TLS should be enabled when the broker is not on localhost
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.DeviceSensor(id), 1,
//	    func(topic string, payload []byte) error {
//	        return nil
//	    })
package mqtt
