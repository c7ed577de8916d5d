// Package state holds the rover's fused runtime state: the latest distance
// reading and the latest detection result. The two halves are guarded
// independently so the sampling loop and the frame pipeline never contend,
// and each half is read torn-free.
package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chrissnell/remoterover/internal/types"
)

// RoverState is the fused sensor state shared by the sampling loop, the
// frame pipeline, the mining orchestrator, and the query handlers.
type RoverState struct {
	distanceMu        sync.RWMutex
	distance          types.DistanceReading
	distanceUpdatedAt time.Time

	detectionMu        sync.RWMutex
	detection          types.DetectionResult
	detectionUpdatedAt time.Time

	startedAt time.Time

	framesProcessed  atomic.Uint64
	framesDropped    atomic.Uint64
	decodeFailures   atomic.Uint64
	distanceSamples  atomic.Uint64
	distanceFailures atomic.Uint64
	miningAttempts   atomic.Uint64
}

// New creates an empty rover state. Both halves start zeroed with no update
// timestamp; queries before the first sensor write report that honestly.
func New() *RoverState {
	return &RoverState{
		startedAt: time.Now(),
	}
}

// SetDistance replaces the distance half only.
func (s *RoverState) SetDistance(r types.DistanceReading) {
	s.distanceMu.Lock()
	s.distance = r
	s.distanceUpdatedAt = time.Now()
	s.distanceMu.Unlock()
}

// Distance returns a copy of the distance half.
func (s *RoverState) Distance() types.DistanceReading {
	s.distanceMu.RLock()
	defer s.distanceMu.RUnlock()
	return s.distance
}

// SetDetection replaces the detection half only.
func (s *RoverState) SetDetection(d types.DetectionResult) {
	s.detectionMu.Lock()
	s.detection = d
	s.detectionUpdatedAt = time.Now()
	s.detectionMu.Unlock()
}

// Detection returns a copy of the detection half.
func (s *RoverState) Detection() types.DetectionResult {
	s.detectionMu.RLock()
	defer s.detectionMu.RUnlock()
	return s.detection
}

// Snapshot returns a combined copy of both halves plus counters. The halves
// may be mutually stale; the per-half timestamps let callers judge.
func (s *RoverState) Snapshot() types.RoverSnapshot {
	s.distanceMu.RLock()
	distance := s.distance
	distanceUpdatedAt := s.distanceUpdatedAt
	s.distanceMu.RUnlock()

	s.detectionMu.RLock()
	detection := s.detection
	detectionUpdatedAt := s.detectionUpdatedAt
	s.detectionMu.RUnlock()

	return types.RoverSnapshot{
		Distance:           distance,
		Detection:          detection,
		DistanceUpdatedAt:  distanceUpdatedAt,
		DetectionUpdatedAt: detectionUpdatedAt,
		UptimeSeconds:      time.Since(s.startedAt).Seconds(),
		Counters:           s.counters(),
	}
}

func (s *RoverState) counters() types.RoverCounters {
	return types.RoverCounters{
		FramesProcessed:  s.framesProcessed.Load(),
		FramesDropped:    s.framesDropped.Load(),
		DecodeFailures:   s.decodeFailures.Load(),
		DistanceSamples:  s.distanceSamples.Load(),
		DistanceFailures: s.distanceFailures.Load(),
		MiningAttempts:   s.miningAttempts.Load(),
	}
}

// CountFrameProcessed records one classified frame.
func (s *RoverState) CountFrameProcessed() { s.framesProcessed.Add(1) }

// CountFrameDropped records one frame discarded by the ingest pipeline.
func (s *RoverState) CountFrameDropped() { s.framesDropped.Add(1) }

// CountDecodeFailure records one undecodable frame.
func (s *RoverState) CountDecodeFailure() { s.decodeFailures.Add(1) }

// CountDistanceSample records one sampling tick; failed marks a tick whose
// probe produced no usable value.
func (s *RoverState) CountDistanceSample(failed bool) {
	s.distanceSamples.Add(1)
	if failed {
		s.distanceFailures.Add(1)
	}
}

// CountMiningAttempt records one decided mining attempt.
func (s *RoverState) CountMiningAttempt() { s.miningAttempts.Add(1) }
