// Package rangefinder owns the rover's distance probes and the sampling
// loops that feed their readings into shared state, the realtime gateway,
// and the event log.
package rangefinder

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/remoterover/internal/types"
	"github.com/chrissnell/remoterover/pkg/config"
	"go.uber.org/zap"
)

// Probe produces distance readings on demand. Start launches whatever
// background machinery the probe needs (serial readers, reconnect loops).
// Sample blocks no longer than the device's configured sample timeout and
// reports a nil-distance reading when no usable value arrived in time.
type Probe interface {
	Start() error
	Sample(ctx context.Context) types.DistanceReading
	ProbeName() string
	Stop()
}

// NewProbe creates a Probe from device configuration.
func NewProbe(ctx context.Context, wg *sync.WaitGroup, deviceConfig config.DeviceData, detectionDistanceCM float64, logger *zap.SugaredLogger) (Probe, error) {
	switch deviceConfig.Type {
	case "maxsonar":
		return NewMaxSonarProbe(ctx, wg, deviceConfig, detectionDistanceCM, logger)
	case "simulated":
		return NewSimulatedProbe(deviceConfig, detectionDistanceCM, logger), nil
	default:
		return nil, fmt.Errorf("unknown device type %q for device %q", deviceConfig.Type, deviceConfig.Name)
	}
}
