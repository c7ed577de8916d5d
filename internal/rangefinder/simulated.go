package rangefinder

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/chrissnell/remoterover/internal/types"
	"github.com/chrissnell/remoterover/pkg/config"
	"go.uber.org/zap"
)

// SimulatedProbe produces a bounded random walk instead of reading
// hardware. Configuring equal min and max pins the probe to a fixed value,
// which the tests rely on. It never fails a sample.
type SimulatedProbe struct {
	config config.DeviceData
	logger *zap.SugaredLogger

	detectionDistanceCM float64

	mu      sync.Mutex
	current float64
	rng     *rand.Rand
}

// NewSimulatedProbe creates a probe starting at the midpoint of its range.
func NewSimulatedProbe(deviceConfig config.DeviceData, detectionDistanceCM float64, logger *zap.SugaredLogger) *SimulatedProbe {
	return &SimulatedProbe{
		config:              deviceConfig,
		logger:              logger,
		detectionDistanceCM: detectionDistanceCM,
		current:             (deviceConfig.SimMinCM + deviceConfig.SimMaxCM) / 2,
		rng:                 rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *SimulatedProbe) ProbeName() string {
	return p.config.Name
}

func (p *SimulatedProbe) Start() error {
	p.logger.Infof("starting simulated probe [%v] walking %.1f-%.1f cm",
		p.config.Name, p.config.SimMinCM, p.config.SimMaxCM)
	return nil
}

func (p *SimulatedProbe) Stop() {}

// Sample advances the walk by up to ±2cm and clamps to the configured
// range.
func (p *SimulatedProbe) Sample(_ context.Context) types.DistanceReading {
	p.mu.Lock()
	p.current += (p.rng.Float64()*2 - 1) * 2
	if p.current < p.config.SimMinCM {
		p.current = p.config.SimMinCM
	}
	if p.current > p.config.SimMaxCM {
		p.current = p.config.SimMaxCM
	}
	cm := p.current
	p.mu.Unlock()

	return types.DistanceReading{
		StationName: p.config.Name,
		DistanceCM:  types.FloatPtr(cm),
		WithinRange: cm <= p.detectionDistanceCM,
		Timestamp:   time.Now(),
	}
}
