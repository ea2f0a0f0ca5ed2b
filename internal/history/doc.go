// Package history keeps a SQLite log of coordinator refreshes and push
// notifications per device.
//
// Repository implements coordinator.Recorder, so passing it as
// shared.Options.Recorder logs every poll. Notifications are logged by
// subscribing RecordNotification to a device's bus, see Repository.Attach.
// Old rows are removed with Prune, which cmd/dingzbridge runs on a ticker.
package history
