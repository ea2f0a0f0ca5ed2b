package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ws", s.handleWebSocket)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(s.deviceMiddleware)

				r.Get("/", s.handleGetDevice)
				r.Get("/state", s.handleGetState)
				r.Get("/config", s.handleGetConfig)
				r.Get("/entities", s.handleListEntities)
				r.Get("/history", s.handleHistory)
				r.Post("/refresh", s.handleRefresh)

				r.Post("/dimmers/{index}/{action}", s.handleDimmer)
				r.Post("/shades/{index}/{action}", s.handleShade)
				r.Put("/shades/{index}", s.handleShadePosition)
				r.Post("/led", s.handleLED)
				r.Post("/pirs/{index}/reset_time", s.handlePIRReset)
				r.Post("/thermostat", s.handleThermostat)
				r.Post("/ddi/{index}/{action}", s.handleDDI)
				r.Put("/temp_offset", s.handleTempOffset)
				r.Put("/mqtt_service", s.handleMQTTService)
				r.Post("/save_default_config", s.handleSaveDefaultConfig)
				r.Post("/reboot", s.handleReboot)
			})
		})
	})

	return r
}

// handleHealth returns the server status and the number of devices.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"devices":   len(s.order),
		"ws_client": s.hub.ClientCount(),
	})
}
