// Package app wires the rover subsystems together and runs them until
// shutdown: event log, shared state, vision classifier, frame pipeline,
// realtime gateway, probes, mining orchestrator, storage, and the REST
// surface.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/chrissnell/remoterover/internal/controllers/restserver"
	"github.com/chrissnell/remoterover/internal/eventlog"
	"github.com/chrissnell/remoterover/internal/gateway"
	"github.com/chrissnell/remoterover/internal/log"
	"github.com/chrissnell/remoterover/internal/managers"
	"github.com/chrissnell/remoterover/internal/mining"
	"github.com/chrissnell/remoterover/internal/pipeline"
	"github.com/chrissnell/remoterover/internal/state"
	"github.com/chrissnell/remoterover/internal/vision"
	"github.com/chrissnell/remoterover/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %v", err)
	}

	// The event log comes up first; every other subsystem writes through it.
	events, err := eventlog.Open(cfg.EventLog.Path, a.logger)
	if err != nil {
		return fmt.Errorf("error opening event log: %v", err)
	}

	roverState := state.New()

	classifier, err := vision.NewClassifier(cfg.Bands)
	if err != nil {
		return fmt.Errorf("error building classifier: %v", err)
	}

	// Initialize the storage manager and mirror the event log into it
	storageManager, err := managers.NewStorageManager(ctx, &wg, cfg)
	if err != nil {
		return err
	}
	if cfg.Storage.TimescaleDB != nil {
		events.SetMirror(storageManager.GetEventDistributor())
	}

	clientBuffer, sendTimeout := gatewaySettings(cfg)
	hub := gateway.NewHub(ctx, &wg, roverState, clientBuffer, sendTimeout, a.logger)

	framePipeline := pipeline.New(ctx, &wg, classifier, roverState, events, hub, a.logger)
	hub.AttachPipeline(framePipeline)
	hub.Start()
	framePipeline.Start()

	orchestrator := mining.NewOrchestrator(roverState, events, hub, cfg.Mining.DetectionDistanceCM, a.logger)

	// Initialize the device manager
	dm, err := managers.NewDeviceManager(ctx, &wg, cfg, roverState, events, hub, a.logger)
	if err != nil {
		return err
	}
	if err := dm.StartDevices(); err != nil {
		return err
	}

	// Initialize the controller manager
	cm, err := managers.NewControllerManager(ctx, &wg, cfg, restserver.Services{
		State:        roverState,
		Events:       events,
		Orchestrator: orchestrator,
		Hub:          hub,
		Frames:       framePipeline,
	}, a.logger)
	if err != nil {
		return err
	}
	if err := cm.StartControllers(); err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()
	dm.StopDevices()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()

	if err := events.Close(); err != nil {
		log.Errorf("error closing event log: %v", err)
	}
	log.Info("shutdown complete")

	return nil
}

// gatewaySettings pulls the websocket tuning from the first REST controller,
// falling back to the shipped defaults when none is configured.
func gatewaySettings(cfg *config.ConfigData) (int, time.Duration) {
	clientBuffer := config.DefaultWSClientBuffer
	sendTimeout, _ := time.ParseDuration(config.DefaultWSSendTimeout)

	for _, ctrl := range cfg.Controllers {
		if ctrl.RESTServer == nil {
			continue
		}
		if ctrl.RESTServer.WSClientBuffer > 0 {
			clientBuffer = ctrl.RESTServer.WSClientBuffer
		}
		if d, err := time.ParseDuration(ctrl.RESTServer.WSSendTimeout); err == nil && d > 0 {
			sendTimeout = d
		}
		break
	}
	return clientBuffer, sendTimeout
}
