// Package logging builds the structured logger shared by every component.
//
// Records are written by log/slog as JSON (the default) or logfmt-style
// text, and always carry service=dingz-bridge and the build version.
// Components get child loggers tagged with their name or the device they
// belong to:
//
//	log := logging.New(cfg.Logging, version)
//	devLog := log.ForDevice("hallway")
//	devLog.Warn("state refresh failed", "error", err)
//	// {"level":"WARN","msg":"state refresh failed","service":"dingz-bridge","version":"1.0.0","device":"hallway","error":"..."}
//
// Configured in the logging section:
//
//	logging:
//	  level: info     # debug, info, warn, error
//	  format: json    # json, text
//	  output: stdout  # stdout, stderr
//
// MQTT and InfluxDB credentials are never passed to the logger.
package logging
