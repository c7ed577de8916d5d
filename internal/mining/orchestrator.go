// Package mining decides extraction attempts from the rover's fused state.
// Attempts serialize: range check first, then material check, one event log
// entry per decided attempt.
package mining

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/chrissnell/remoterover/internal/state"
	"github.com/chrissnell/remoterover/internal/types"
	"go.uber.org/zap"
)

// Observable orchestrator phases. An attempt passes Evaluating and returns
// to Idle once its outcome is decided and logged.
const (
	PhaseIdle       = "idle"
	PhaseEvaluating = "evaluating"
)

// EventSink is the slice of the event log the orchestrator writes through.
type EventSink interface {
	Append(types.LogEntry) error
}

// Broadcaster is the slice of the realtime gateway the orchestrator
// notifies about successful extractions.
type Broadcaster interface {
	BroadcastMiningResult(types.MiningResult)
}

// Orchestrator evaluates mining commands against current sensor state.
type Orchestrator struct {
	roverState          *state.RoverState
	events              EventSink
	notifier            Broadcaster
	detectionDistanceCM float64
	logger              *zap.SugaredLogger

	attemptMu sync.Mutex

	phaseMu     sync.RWMutex
	phase       string
	lastOutcome string
}

// NewOrchestrator wires the decision engine to its collaborators.
func NewOrchestrator(roverState *state.RoverState, events EventSink, notifier Broadcaster, detectionDistanceCM float64, logger *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		roverState:          roverState,
		events:              events,
		notifier:            notifier,
		detectionDistanceCM: detectionDistanceCM,
		logger:              logger,
		phase:               PhaseIdle,
	}
}

// Phase reports the current phase without blocking behind an in-flight
// attempt.
func (o *Orchestrator) Phase() string {
	o.phaseMu.RLock()
	defer o.phaseMu.RUnlock()
	return o.phase
}

// LastOutcome reports the outcome of the most recent decided attempt, or an
// empty string before the first one.
func (o *Orchestrator) LastOutcome() string {
	o.phaseMu.RLock()
	defer o.phaseMu.RUnlock()
	return o.lastOutcome
}

func (o *Orchestrator) setPhase(phase string) {
	o.phaseMu.Lock()
	o.phase = phase
	o.phaseMu.Unlock()
}

func (o *Orchestrator) finish(outcome string) {
	o.phaseMu.Lock()
	o.phase = PhaseIdle
	o.lastOutcome = outcome
	o.phaseMu.Unlock()
}

// Evaluate decides one mining attempt. Invalid input is rejected before the
// attempt starts: no state changes, no log entry. Every valid attempt
// appends exactly one LogEntry whose action matches its outcome.
func (o *Orchestrator) Evaluate(req types.MiningRequest) (types.MiningResult, error) {
	if req.DistanceCM != nil && (*req.DistanceCM < 0 || math.IsNaN(*req.DistanceCM)) {
		return types.MiningResult{}, fmt.Errorf("invalid distance_cm %v: must be a non-negative number", *req.DistanceCM)
	}

	o.attemptMu.Lock()
	defer o.attemptMu.Unlock()

	o.setPhase(PhaseEvaluating)

	detection := o.roverState.Detection()

	distance := req.DistanceCM
	if distance == nil {
		distance = o.roverState.Distance().DistanceCM
	}

	// Range is decided before material: an unreachable target is rejected
	// out of range no matter what the classifier currently sees.
	if distance == nil || *distance > o.detectionDistanceCM {
		message := "no distance reading available"
		if distance != nil {
			message = fmt.Sprintf("target too far: %.1f cm exceeds %.1f cm", *distance, o.detectionDistanceCM)
		}
		return o.decide(types.MiningResult{
			Outcome:    types.OutcomeOutOfRange,
			Message:    message,
			DistanceCM: distance,
			Material:   detection.Material,
			Confidence: detection.Confidence,
		}, types.LogEntry{
			DistanceCM:       distance,
			MaterialDetected: detection.Detected,
			MaterialType:     detection.Material,
			Confidence:       detection.Confidence,
			Action:           types.ActionSkipped,
			WithinRange:      types.BoolPtr(false),
		}), nil
	}

	if !detection.Detected {
		return o.decide(types.MiningResult{
			Outcome:    types.OutcomeNoMaterial,
			Message:    "no mineable material detected",
			DistanceCM: distance,
		}, types.LogEntry{
			DistanceCM:  distance,
			Action:      types.ActionSkipped,
			WithinRange: types.BoolPtr(true),
		}), nil
	}

	result := o.decide(types.MiningResult{
		Outcome:    types.OutcomeMined,
		Message:    fmt.Sprintf("mining %s at %.1f cm", *detection.Material, *distance),
		DistanceCM: distance,
		Material:   detection.Material,
		Confidence: detection.Confidence,
	}, types.LogEntry{
		DistanceCM:       distance,
		MaterialDetected: true,
		MaterialType:     detection.Material,
		Confidence:       detection.Confidence,
		Action:           types.ActionMining,
		WithinRange:      types.BoolPtr(true),
	})
	o.notifier.BroadcastMiningResult(result)
	return result, nil
}

// decide finalizes an attempt: stamp it, count it, log it, record the
// outcome. Entries carry the decision time, not the sensor timestamps.
func (o *Orchestrator) decide(result types.MiningResult, entry types.LogEntry) types.MiningResult {
	entry.Timestamp = time.Now()

	o.roverState.CountMiningAttempt()
	if err := o.events.Append(entry); err != nil {
		o.logger.Errorf("failed to append %s entry for %s attempt: %v", entry.Action, result.Outcome, err)
	}
	o.logger.Infof("mining attempt decided: %s (%s)", result.Outcome, result.Message)

	o.finish(result.Outcome)
	return result
}
