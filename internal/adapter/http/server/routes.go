package server

import (
	"net/http"

	"github.com/Temutjin2k/ride-coordination/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// setupRoutes - setups http routes
func setupRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	// System Health
	mux.HandleFunc("/health", routes.health.HealthCheck)

	setupSwaggerRoutes(mux)
	setupMetricsRoute(mux)

	setupRideRoutes(mux, routes, m)
	setupSOSRoutes(mux, routes, m)
	setupDriverRoutes(mux, routes, m)

	// Realtime channel. The gateway rejects anonymous users itself so the
	// handshake can answer 401 before the upgrade.
	mux.HandleFunc("GET /ws", routes.gateway.HandleWS)
}

// setupRideRoutes setups ride lifecycle routes
func setupRideRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /rides", m.RequireRoles(routes.ride.Create, types.PassengerRole))                                   // Create a new ride request
	mux.Handle("GET /rides/{ride_id}", m.RequireRoles(routes.ride.Get))                                                  // Get current ride state
	mux.Handle("POST /rides/{ride_id}/accept", m.RequireRoles(routes.ride.Accept, types.DriverRole))                     // Driver accepts the ride
	mux.Handle("POST /rides/{ride_id}/start", m.RequireRoles(routes.ride.Start, types.DriverRole))                       // Assigned driver starts the ride
	mux.Handle("POST /rides/{ride_id}/complete", m.RequireRoles(routes.ride.Complete, types.DriverRole))                 // Assigned driver completes the ride
	mux.Handle("POST /rides/{ride_id}/cancel", m.RequireRoles(routes.ride.Cancel, types.PassengerRole, types.DriverRole)) // Cancel a ride
	mux.Handle("POST /rides/{ride_id}/rate", m.RequireRoles(routes.ride.Rate, types.PassengerRole))                      // Rate a completed ride
	mux.Handle("GET /riders/{rider_id}/rides", m.RequireRoles(routes.ride.RiderHistory, types.PassengerRole, types.AdminRole))
	mux.Handle("GET /drivers/{driver_id}/rides", m.RequireRoles(routes.ride.DriverHistory, types.DriverRole, types.AdminRole))
}

// setupSOSRoutes setups emergency escalation routes
func setupSOSRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /rides/{ride_id}/sos", m.RequireRoles(routes.sos.Trigger, types.PassengerRole)) // Trigger SOS on an active ride
	mux.Handle("GET /rides/{ride_id}/sos", m.RequireRoles(routes.sos.ByRide, types.AdminRole))       // List incidents of a ride
	mux.Handle("GET /sos/{incident_id}", m.RequireRoles(routes.sos.Get, types.AdminRole))            // Get incident
	mux.Handle("POST /sos/{incident_id}/resolve", m.RequireRoles(routes.sos.Resolve, types.AdminRole))
}

// setupDriverRoutes setups driver presence routes
func setupDriverRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /drivers/{driver_id}/online", m.RequireRoles(routes.driver.Online, types.DriverRole))   // Driver goes online
	mux.Handle("POST /drivers/{driver_id}/offline", m.RequireRoles(routes.driver.Offline, types.DriverRole)) // Driver goes offline
}

// setupSwaggerRoutes configures Swagger UI endpoint
func setupSwaggerRoutes(mux *http.ServeMux) {
	swaggerURL := httpSwagger.InstanceName("coordinator")
	mux.HandleFunc("/swagger/", httpSwagger.Handler(swaggerURL))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
