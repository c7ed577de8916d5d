// Package pipeline ingests camera frames strictly one at a time. A frame
// arriving while the classifier is busy replaces any frame still waiting,
// so the rover always classifies its freshest view and counts what it
// skipped. Nothing ever queues behind the single slot.
package pipeline

import (
	"context"
	"sync"

	"github.com/chrissnell/remoterover/internal/state"
	"github.com/chrissnell/remoterover/internal/types"
	"go.uber.org/zap"
)

// Classifier is the slice of the vision package the pipeline drives.
type Classifier interface {
	ClassifyFrame(data []byte) (types.DetectionResult, error)
}

// EventSink is the slice of the event log the pipeline writes through.
type EventSink interface {
	Append(types.LogEntry) error
}

// Broadcaster is the slice of the realtime gateway the pipeline notifies.
type Broadcaster interface {
	BroadcastDetection(types.DetectionResult)
}

// FrameIngest serializes classification of submitted frames.
type FrameIngest struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	classifier Classifier
	roverState *state.RoverState
	events     EventSink
	notifier   Broadcaster
	logger     *zap.SugaredLogger

	mu     sync.Mutex
	slot   *types.Frame
	signal chan struct{}
}

// New wires the pipeline between its collaborators.
func New(ctx context.Context, wg *sync.WaitGroup, classifier Classifier, roverState *state.RoverState, events EventSink, notifier Broadcaster, logger *zap.SugaredLogger) *FrameIngest {
	return &FrameIngest{
		ctx:        ctx,
		wg:         wg,
		classifier: classifier,
		roverState: roverState,
		events:     events,
		notifier:   notifier,
		logger:     logger,
		signal:     make(chan struct{}, 1),
	}
}

// Start launches the single classification worker.
func (p *FrameIngest) Start() {
	p.wg.Add(1)
	go p.run()
}

// Submit places a frame in the slot without blocking. It returns false when
// the frame displaced an unprocessed one; the displaced frame is dropped
// and counted.
func (p *FrameIngest) Submit(frame types.Frame) bool {
	p.mu.Lock()
	replaced := p.slot != nil
	p.slot = &frame
	p.mu.Unlock()

	if replaced {
		p.roverState.CountFrameDropped()
		p.logger.Debugf("frame from %s displaced an unprocessed frame", frame.Source)
	}

	select {
	case p.signal <- struct{}{}:
	default:
	}
	return !replaced
}

func (p *FrameIngest) run() {
	defer p.wg.Done()
	p.logger.Info("starting frame ingest worker")

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Info("cancellation request received, stopping frame ingest worker")
			return
		case <-p.signal:
			for {
				p.mu.Lock()
				frame := p.slot
				p.slot = nil
				p.mu.Unlock()
				if frame == nil {
					break
				}
				p.process(*frame)
			}
		}
	}
}

// process classifies one frame and routes the result: state first, then the
// event log, then the broadcast. Undecodable frames degrade to a
// not-detected state write and never append.
func (p *FrameIngest) process(frame types.Frame) {
	result, err := p.classifier.ClassifyFrame(frame.Data)
	if err != nil {
		p.roverState.SetDetection(result)
		p.roverState.CountDecodeFailure()
		p.logger.Warnf("frame from %s could not be classified: %v", frame.Source, err)
		return
	}

	p.roverState.SetDetection(result)
	p.roverState.CountFrameProcessed()

	entry := types.LogEntry{
		Timestamp:        result.Timestamp,
		MaterialDetected: result.Detected,
		MaterialType:     result.Material,
		Confidence:       result.Confidence,
		Action:           types.ActionScan,
	}
	if err := p.events.Append(entry); err != nil {
		p.logger.Errorf("failed to append frame scan entry: %v", err)
	}

	p.notifier.BroadcastDetection(result)
}
