package state

import (
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/remoterover/internal/types"
)

func TestHalvesUpdateIndependently(t *testing.T) {
	s := New()

	s.SetDistance(types.DistanceReading{
		StationName: "front",
		DistanceCM:  types.FloatPtr(12.5),
		WithinRange: true,
		Timestamp:   time.Now(),
	})

	if d := s.Detection(); d.Detected {
		t.Errorf("distance write must not touch the detection half, got %+v", d)
	}

	s.SetDetection(types.DetectionResult{
		Detected:   true,
		Material:   types.StringPtr("copper"),
		BandName:   types.StringPtr("green_band"),
		Confidence: types.FloatPtr(87.5),
		Timestamp:  time.Now(),
	})

	d := s.Distance()
	if d.DistanceCM == nil || *d.DistanceCM != 12.5 {
		t.Errorf("detection write must not touch the distance half, got %+v", d)
	}

	det := s.Detection()
	if !det.Detected || det.Material == nil || *det.Material != "copper" {
		t.Errorf("expected the detection written earlier, got %+v", det)
	}
}

func TestSnapshotCarriesBothHalves(t *testing.T) {
	s := New()

	before := s.Snapshot()
	if !before.DistanceUpdatedAt.IsZero() || !before.DetectionUpdatedAt.IsZero() {
		t.Error("a fresh state must report zero update timestamps")
	}

	s.SetDistance(types.DistanceReading{DistanceCM: types.FloatPtr(9.0), WithinRange: true})
	s.SetDetection(types.DetectionResult{Detected: true, Material: types.StringPtr("palladium")})

	snap := s.Snapshot()
	if snap.Distance.DistanceCM == nil || *snap.Distance.DistanceCM != 9.0 {
		t.Errorf("expected distance 9.0 in snapshot, got %+v", snap.Distance)
	}
	if !snap.Detection.Detected {
		t.Errorf("expected detection in snapshot, got %+v", snap.Detection)
	}
	if snap.DistanceUpdatedAt.IsZero() || snap.DetectionUpdatedAt.IsZero() {
		t.Error("expected both update timestamps to be set")
	}
	if snap.UptimeSeconds < 0 {
		t.Errorf("uptime must be non-negative, got %f", snap.UptimeSeconds)
	}
}

func TestCounters(t *testing.T) {
	s := New()

	s.CountFrameProcessed()
	s.CountFrameProcessed()
	s.CountFrameDropped()
	s.CountDecodeFailure()
	s.CountDistanceSample(false)
	s.CountDistanceSample(true)
	s.CountMiningAttempt()

	c := s.Snapshot().Counters
	if c.FramesProcessed != 2 {
		t.Errorf("expected 2 frames processed, got %d", c.FramesProcessed)
	}
	if c.FramesDropped != 1 {
		t.Errorf("expected 1 frame dropped, got %d", c.FramesDropped)
	}
	if c.DecodeFailures != 1 {
		t.Errorf("expected 1 decode failure, got %d", c.DecodeFailures)
	}
	if c.DistanceSamples != 2 {
		t.Errorf("expected 2 distance samples, got %d", c.DistanceSamples)
	}
	if c.DistanceFailures != 1 {
		t.Errorf("expected 1 distance failure, got %d", c.DistanceFailures)
	}
	if c.MiningAttempts != 1 {
		t.Errorf("expected 1 mining attempt, got %d", c.MiningAttempts)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(3)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cm := float64(n)
				s.SetDistance(types.DistanceReading{DistanceCM: &cm, WithinRange: true})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.SetDetection(types.DetectionResult{Detected: true})
				s.CountFrameProcessed()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := s.Snapshot()
				if snap.Distance.DistanceCM != nil && *snap.Distance.DistanceCM < 0 {
					t.Error("observed an impossible distance")
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := s.Snapshot().Counters.FramesProcessed; got != 800 {
		t.Errorf("expected 800 frames processed, got %d", got)
	}
}
