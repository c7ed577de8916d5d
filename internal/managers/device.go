package managers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/remoterover/internal/rangefinder"
	"github.com/chrissnell/remoterover/internal/state"
	"github.com/chrissnell/remoterover/pkg/config"
	"go.uber.org/zap"
)

// DeviceManager owns the rover's distance probes and their sampling loops.
type DeviceManager struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	roverState *state.RoverState
	events     rangefinder.EventSink
	notifier   rangefinder.Broadcaster
	logger     *zap.SugaredLogger

	probes []rangefinder.Probe
	loops  []*rangefinder.SamplingLoop
}

// NewDeviceManager builds a probe and a sampling loop for every configured
// device. Nothing starts until StartDevices.
func NewDeviceManager(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, roverState *state.RoverState, events rangefinder.EventSink, notifier rangefinder.Broadcaster, logger *zap.SugaredLogger) (*DeviceManager, error) {
	m := &DeviceManager{
		ctx:        ctx,
		wg:         wg,
		roverState: roverState,
		events:     events,
		notifier:   notifier,
		logger:     logger,
	}

	for _, device := range cfg.Devices {
		probe, err := rangefinder.NewProbe(ctx, wg, device, cfg.Mining.DetectionDistanceCM, logger)
		if err != nil {
			return nil, fmt.Errorf("error creating probe [%s]: %v", device.Name, err)
		}

		interval, err := time.ParseDuration(device.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("error parsing poll interval for [%s]: %v", device.Name, err)
		}

		m.probes = append(m.probes, probe)
		m.loops = append(m.loops, rangefinder.NewSamplingLoop(ctx, wg, probe, interval, roverState, events, notifier, logger))
	}

	return m, nil
}

// StartDevices starts every probe and its sampling loop.
func (m *DeviceManager) StartDevices() error {
	m.logger.Info("Starting device manager...")

	for i, probe := range m.probes {
		if err := probe.Start(); err != nil {
			return fmt.Errorf("error starting probe [%s]: %v", probe.ProbeName(), err)
		}
		m.loops[i].Start()
	}

	m.logger.Infof("Started %d probes successfully", len(m.probes))
	return nil
}

// StopDevices stops the probes. The sampling loops exit with the context.
func (m *DeviceManager) StopDevices() {
	for _, probe := range m.probes {
		probe.Stop()
	}
}
