package rangefinder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/remoterover/internal/state"
	"github.com/chrissnell/remoterover/internal/types"
	"go.uber.org/zap"
)

type fixedProbe struct {
	name    string
	reading types.DistanceReading
}

func (p *fixedProbe) Start() error                                 { return nil }
func (p *fixedProbe) Stop()                                        {}
func (p *fixedProbe) ProbeName() string                            { return p.name }
func (p *fixedProbe) Sample(context.Context) types.DistanceReading { return p.reading }

type sinkRecorder struct {
	mu      sync.Mutex
	entries []types.LogEntry
}

func (s *sinkRecorder) Append(e types.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *sinkRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type distanceRecorder struct {
	mu       sync.Mutex
	readings []types.DistanceReading
}

func (d *distanceRecorder) BroadcastDistance(r types.DistanceReading) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readings = append(d.readings, r)
}

func (d *distanceRecorder) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.readings)
}

func newTestLoop(probe Probe) (*SamplingLoop, *state.RoverState, *sinkRecorder, *distanceRecorder) {
	roverState := state.New()
	sink := &sinkRecorder{}
	notifier := &distanceRecorder{}
	loop := NewSamplingLoop(context.Background(), &sync.WaitGroup{}, probe, time.Second,
		roverState, sink, notifier, zap.NewNop().Sugar())
	return loop, roverState, sink, notifier
}

func TestTickRoutesInRangeReading(t *testing.T) {
	ts := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	probe := &fixedProbe{name: "front", reading: types.DistanceReading{
		StationName: "front",
		DistanceCM:  types.FloatPtr(12),
		WithinRange: true,
		Timestamp:   ts,
	}}
	loop, roverState, sink, notifier := newTestLoop(probe)

	loop.Tick()

	got := roverState.Distance()
	if got.DistanceCM == nil || *got.DistanceCM != 12 {
		t.Errorf("expected state distance 12, got %v", got.DistanceCM)
	}
	if notifier.count() != 1 {
		t.Errorf("expected 1 broadcast, got %d", notifier.count())
	}
	if sink.count() != 1 {
		t.Fatalf("expected 1 scan entry, got %d", sink.count())
	}

	entry := sink.entries[0]
	if entry.Action != types.ActionScan {
		t.Errorf("expected action scan, got %s", entry.Action)
	}
	if entry.WithinRange == nil || !*entry.WithinRange {
		t.Errorf("expected within_range true, got %v", entry.WithinRange)
	}
	if !entry.Timestamp.Equal(ts) {
		t.Errorf("entry must carry the reading timestamp, got %v", entry.Timestamp)
	}

	counters := roverState.Snapshot().Counters
	if counters.DistanceSamples != 1 || counters.DistanceFailures != 0 {
		t.Errorf("expected 1 sample and 0 failures, got %+v", counters)
	}
}

func TestTickSkipsLogForOutOfRangeReading(t *testing.T) {
	probe := &fixedProbe{name: "front", reading: types.DistanceReading{
		StationName: "front",
		DistanceCM:  types.FloatPtr(42),
		WithinRange: false,
		Timestamp:   time.Now(),
	}}
	loop, roverState, sink, notifier := newTestLoop(probe)

	loop.Tick()

	if sink.count() != 0 {
		t.Errorf("out-of-range readings must not log, got %d entries", sink.count())
	}
	if notifier.count() != 1 {
		t.Errorf("out-of-range readings still broadcast, got %d", notifier.count())
	}
	if got := roverState.Distance(); got.DistanceCM == nil || *got.DistanceCM != 42 {
		t.Errorf("out-of-range readings still update state, got %v", got.DistanceCM)
	}
}

func TestTickCountsFailedSample(t *testing.T) {
	probe := &fixedProbe{name: "front", reading: types.DistanceReading{
		StationName: "front",
		Timestamp:   time.Now(),
	}}
	loop, roverState, sink, notifier := newTestLoop(probe)

	loop.Tick()

	if sink.count() != 0 {
		t.Errorf("failed samples must not log, got %d entries", sink.count())
	}
	if notifier.count() != 1 {
		t.Errorf("failed samples still broadcast, got %d", notifier.count())
	}
	if got := roverState.Distance(); got.DistanceCM != nil {
		t.Errorf("expected nil distance in state, got %v", *got.DistanceCM)
	}

	counters := roverState.Snapshot().Counters
	if counters.DistanceSamples != 1 || counters.DistanceFailures != 1 {
		t.Errorf("expected 1 sample and 1 failure, got %+v", counters)
	}
}

func TestRunSamplesOnCadenceAndStops(t *testing.T) {
	probe := &fixedProbe{name: "front", reading: types.DistanceReading{
		StationName: "front",
		DistanceCM:  types.FloatPtr(10),
		WithinRange: true,
		Timestamp:   time.Now(),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	roverState := state.New()
	sink := &sinkRecorder{}
	notifier := &distanceRecorder{}
	loop := NewSamplingLoop(ctx, &wg, probe, 10*time.Millisecond,
		roverState, sink, notifier, zap.NewNop().Sugar())

	loop.Start()
	time.Sleep(100 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sampling loop did not stop after cancellation")
	}

	// One immediate sample plus at least a few ticks.
	if notifier.count() < 3 {
		t.Errorf("expected at least 3 broadcasts, got %d", notifier.count())
	}
	if sink.count() != notifier.count() {
		t.Errorf("every in-range tick logs: %d entries vs %d broadcasts", sink.count(), notifier.count())
	}
}
