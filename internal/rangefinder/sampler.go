package rangefinder

import (
	"context"
	"sync"
	"time"

	"github.com/chrissnell/remoterover/internal/state"
	"github.com/chrissnell/remoterover/internal/types"
	"go.uber.org/zap"
)

// EventSink is the slice of the event log the sampling loop writes through.
type EventSink interface {
	Append(types.LogEntry) error
}

// Broadcaster is the slice of the realtime gateway the sampling loop
// notifies.
type Broadcaster interface {
	BroadcastDistance(types.DistanceReading)
}

// SamplingLoop polls one probe on a fixed period. Every tick overwrites the
// distance half of shared state and broadcasts, failed samples included;
// only within-range readings append a scan entry to the event log.
type SamplingLoop struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	probe      Probe
	interval   time.Duration
	roverState *state.RoverState
	events     EventSink
	notifier   Broadcaster
	logger     *zap.SugaredLogger
}

// NewSamplingLoop wires a loop around a started probe.
func NewSamplingLoop(ctx context.Context, wg *sync.WaitGroup, probe Probe, interval time.Duration, roverState *state.RoverState, events EventSink, notifier Broadcaster, logger *zap.SugaredLogger) *SamplingLoop {
	return &SamplingLoop{
		ctx:        ctx,
		wg:         wg,
		probe:      probe,
		interval:   interval,
		roverState: roverState,
		events:     events,
		notifier:   notifier,
		logger:     logger,
	}
}

// Start launches the polling goroutine.
func (l *SamplingLoop) Start() {
	l.wg.Add(1)
	go l.run()
}

func (l *SamplingLoop) run() {
	defer l.wg.Done()
	l.logger.Infof("starting sampling loop for probe [%v] every %v", l.probe.ProbeName(), l.interval)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	// First sample immediately so queries have data before the first tick.
	l.Tick()

	for {
		select {
		case <-l.ctx.Done():
			l.logger.Infof("cancellation request received, stopping sampling loop for [%v]", l.probe.ProbeName())
			return
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Tick takes one sample and routes it: state first, then broadcast, then
// the event log for in-range readings. Probe failures degrade to a nil
// distance and keep the cadence.
func (l *SamplingLoop) Tick() {
	reading := l.probe.Sample(l.ctx)

	l.roverState.SetDistance(reading)
	l.roverState.CountDistanceSample(reading.DistanceCM == nil)
	l.notifier.BroadcastDistance(reading)

	if !reading.WithinRange {
		return
	}

	entry := types.LogEntry{
		Timestamp:   reading.Timestamp,
		DistanceCM:  reading.DistanceCM,
		Action:      types.ActionScan,
		WithinRange: types.BoolPtr(true),
	}
	if err := l.events.Append(entry); err != nil {
		l.logger.Errorf("failed to append scan entry for [%v]: %v", l.probe.ProbeName(), err)
	}
}
