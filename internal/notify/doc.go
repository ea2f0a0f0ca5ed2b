// Package notify distributes push notifications from a dingz device to
// in-process listeners.
//
// Notifications are decoded from the device's MQTT stream by the bridge
// package and dispatched synchronously to every listener registered when
// the dispatch started. They are not retained: a listener only sees
// notifications dispatched after it subscribed.
//
// Subscribing returns an Unsubscribe func owned by the subscriber. The
// registry is keyed by an internal token, so the same callback may be
// registered twice and each registration removed on its own.
package notify
