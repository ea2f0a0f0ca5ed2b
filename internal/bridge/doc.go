// Package bridge turns a dingz device's MQTT push messages into typed
// notifications on a notify.Bus.
//
// A dingz with its MQTT service enabled publishes under dingz/{id}/..., where
// id is the system id reported by /api/v1/system_config. The bridge
// subscribes to six topic patterns for that id and decodes each message
// according to the pattern it arrived on.
//
// # Decoding
//
// Every decoded message results in exactly one Dispatch. Payloads that
// cannot be decoded are logged at warn level and dropped; nothing is
// dispatched and the handler never panics. Both malformed JSON and JSON of
// the wrong shape are reported as ErrMalformedPayload, wrapping the cause.
//
// # Device ID Changes
//
// The id may change at runtime (the system config is re-polled). SetDeviceID
// moves the subscriptions over to the new namespace; messages still in
// flight for the old id are dropped.
//
// # Usage
//
//	b, err := bridge.New(bridge.Options{Client: mqttAdapter, Bus: bus})
//	if err != nil {
//	    return err
//	}
//	defer b.Stop()
//	if err := b.SetDeviceID(cfg.System.ID); err != nil {
//	    return err
//	}
package bridge
