// Package restserver exposes the rover's query and command surface over
// HTTP: current state, the event log, mining commands, frame submission,
// and the websocket gateway upgrade endpoint.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/remoterover/internal/eventlog"
	"github.com/chrissnell/remoterover/internal/gateway"
	"github.com/chrissnell/remoterover/internal/log"
	"github.com/chrissnell/remoterover/internal/mining"
	"github.com/chrissnell/remoterover/internal/state"
	"github.com/chrissnell/remoterover/pkg/config"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Services bundles the rover subsystems the REST surface reads from and
// commands. The controller never owns these; the app wires them in.
type Services struct {
	State        *state.RoverState
	Events       *eventlog.Log
	Orchestrator *mining.Orchestrator
	Hub          *gateway.Hub
	Frames       gateway.FrameSink
}

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	config     *config.ConfigData
	restConfig config.RESTServerData
	Server     http.Server
	services   Services
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, rc *config.RESTServerData, services Services, logger *zap.SugaredLogger) (*Controller, error) {
	if rc == nil {
		return nil, fmt.Errorf("restserver controller has no rest configuration")
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		config:     cfg,
		restConfig: *rc,
		services:   services,
		logger:     logger,
	}

	if ctrl.services.State == nil || ctrl.services.Events == nil || ctrl.services.Orchestrator == nil {
		return nil, fmt.Errorf("restserver controller is missing required services")
	}

	// If a listen address was not provided, listen on all interfaces
	if ctrl.restConfig.ListenAddr == "" {
		logger.Info("rest.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		ctrl.restConfig.ListenAddr = "0.0.0.0"
	}

	// Set default HTTP port if not specified
	if ctrl.restConfig.Port == 0 {
		logger.Info("rest.port not provided; defaulting to 8080")
		ctrl.restConfig.Port = 8080
	}

	// Create handlers
	ctrl.handlers = NewHandlers(ctrl)

	// Set up router
	router := ctrl.setupRouter()
	ctrl.Server.Addr = fmt.Sprintf("%v:%v", ctrl.restConfig.ListenAddr, ctrl.restConfig.Port)
	ctrl.Server.Handler = log.HTTPHandler(ctrl.wrapCORS(router))
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Info("Starting REST server controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.restConfig.Cert != "" && c.restConfig.Key != "" {
			if err := c.Server.ListenAndServeTLS(c.restConfig.Cert, c.restConfig.Key); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/status", c.handlers.GetStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/distance", c.handlers.GetDistance).Methods(http.MethodGet)
	router.HandleFunc("/api/detection", c.handlers.GetDetection).Methods(http.MethodGet)
	router.HandleFunc("/api/logs", c.handlers.GetLogs).Methods(http.MethodGet)
	router.HandleFunc("/api/logs/stats", c.handlers.GetLogStats).Methods(http.MethodGet)
	router.HandleFunc("/api/health", c.handlers.GetHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/mine", c.handlers.PostMine).Methods(http.MethodPost)
	router.HandleFunc("/api/frame", c.handlers.PostFrame).Methods(http.MethodPost)

	// Websocket upgrade; the gateway takes over the connection from here.
	if c.services.Hub != nil {
		router.HandleFunc("/ws", c.services.Hub.ServeWS)
	}

	return router
}

// wrapCORS applies the configured CORS policy. An empty origin means the
// rover serves same-origin tooling only and no CORS headers are emitted.
func (c *Controller) wrapCORS(router *mux.Router) http.Handler {
	if c.restConfig.CORSOrigin == "" {
		return router
	}
	return gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins([]string{c.restConfig.CORSOrigin}),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type"}),
	)(router)
}
