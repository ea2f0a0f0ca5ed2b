// Package shared composes everything that belongs to one dingz device: the
// HTTP client, the state and config coordinators, the notification bus and,
// when a broker is available, the MQTT bridge.
//
// # Startup
//
// FirstRefresh loads the state (to learn the MAC address), then the
// configuration (to learn the system id and names), records the device
// identity and finally subscribes the bridge to the device's MQTT
// namespace. A failure in either first refresh is a startup failure.
//
// The identity is fixed after startup. The MQTT namespace is not: when a
// later config refresh reports a different system id the bridge moves its
// subscriptions.
//
// # Lifecycle
//
//	dev, err := shared.Start(ctx, "http://10.0.3.39", shared.Options{Name: "hallway"})
//	if err != nil {
//	    return err
//	}
//	defer dev.Stop()
//	go dev.Run(ctx)
package shared
