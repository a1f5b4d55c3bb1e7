package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-coordination/config"
	"github.com/Temutjin2k/ride-coordination/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-coordination/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-coordination/internal/adapter/http/ws"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
)

const serverIPAddress = "%s:%s"

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	ride    *handler.Ride
	sos     *handler.SOS
	driver  *handler.Driver
	health  *handler.Health
	gateway *ws.Gateway
}

func New(
	cfg config.Config,
	rideService handler.RideService,
	sosService handler.SOSService,
	presence handler.PresenceService,
	gateway *ws.Gateway,
	tokens middleware.TokenVerifier,
	log logger.Logger,
) (*API, error) {
	if tokens == nil {
		return nil, errors.New("token verifier is required")
	}

	addr := fmt.Sprintf(serverIPAddress, cfg.Server.Host, cfg.Server.Port)

	routes := &handlers{
		ride:    handler.NewRide(rideService, log),
		sos:     handler.NewSOS(sosService, log),
		driver:  handler.NewDriver(presence, log),
		health:  handler.NewHealth(cfg.Log.ServiceName, log),
		gateway: gateway,
	}

	mid := middleware.NewMiddleware(tokens, log)

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		m:      mid,
		addr:   addr,
		cfg:    cfg,
		log:    log,
	}

	api.server = &http.Server{
		Addr:    api.addr,
		Handler: api.withMiddleware(),
	}

	setupRoutes(api.mux, routes, mid)

	return api, nil
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Metrics(a.m.Logging(a.m.Auth(a.mux)))))
}
