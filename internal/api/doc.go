// Package api serves the dingz-bridge REST API and WebSocket feed.
//
// Routes live under /api/v1. Device reads come from the polling
// coordinators' snapshots and never touch the device. Component commands
// (dimmers, shades, led, pirs, thermostat, ddi) go through the device's
// entity views; device-level commands (temp_offset, mqtt_service,
// save_default_config, reboot) use the client directly. Both answer 202
// and refresh the snapshots in the background.
//
// Errors use one JSON shape:
//
//	{"status": 502, "code": "device_error", "message": "..."}
//
// An unknown device or component is 404, a rejected argument 400 and a
// failed device request 502.
//
// The WebSocket at /api/v1/ws pushes every notification and every state
// snapshot of every device:
//
//	{"type": "notification", "device": "hallway", "kind": "pir", "timestamp": "...", "payload": {...}}
//	{"type": "state", "device": "hallway", "timestamp": "...", "payload": {...}}
//
// A client may narrow the feed with {"type": "subscribe", "payload": {"devices": ["hallway"]}}.
package api
