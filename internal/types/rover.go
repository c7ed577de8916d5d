// Package types holds the core data types passed between the rover's sensor
// loops, the event log, and the delivery surfaces. Producers build these
// values; consumers treat them as immutable.
package types

import "time"

// LogEntry actions. Producers use these constants, never the raw literals.
const (
	ActionScan    = "scan"
	ActionMining  = "mining"
	ActionSkipped = "skipped"
)

// Mining attempt outcomes.
const (
	OutcomeMined      = "mined"
	OutcomeOutOfRange = "rejected_out_of_range"
	OutcomeNoMaterial = "rejected_no_material"
)

// Frame sources.
const (
	FrameSourceWebsocket = "websocket"
	FrameSourceHTTP      = "http"
)

// DistanceReading is a single rangefinder sample. DistanceCM is nil when the
// probe could not produce a usable value for this tick; WithinRange is true
// only for non-nil readings at or under the configured detection distance.
type DistanceReading struct {
	StationName string    `json:"station_name"`
	DistanceCM  *float64  `json:"distance_cm"`
	WithinRange bool      `json:"within_range"`
	Timestamp   time.Time `json:"ts"`
}

// DetectionResult is the outcome of classifying one camera frame. The
// pointer fields are nil when no band qualified.
type DetectionResult struct {
	Detected   bool      `json:"detected"`
	Material   *string   `json:"material"`
	BandName   *string   `json:"band"`
	Confidence *float64  `json:"confidence"`
	Timestamp  time.Time `json:"ts"`
}

// LogEntry is the event log record. The field set is fixed; downstream
// tooling parses these exact names. WithinRange is set only on entries that
// carry a distance evaluation. The gorm tags serve the optional TimescaleDB
// mirror and never change the wire shape.
type LogEntry struct {
	Timestamp        time.Time `json:"timestamp" gorm:"column:time;index"`
	DistanceCM       *float64  `json:"distance_cm" gorm:"column:distance_cm"`
	MaterialDetected bool      `json:"material_detected" gorm:"column:material_detected"`
	MaterialType     *string   `json:"material_type" gorm:"column:material_type"`
	Confidence       *float64  `json:"confidence" gorm:"column:confidence"`
	Action           string    `json:"action" gorm:"column:action"`
	WithinRange      *bool     `json:"within_range,omitempty" gorm:"column:within_range"`
}

// Frame is one encoded camera image on its way into the ingest pipeline.
type Frame struct {
	Data      []byte
	Source    string
	Timestamp time.Time
}

// RoverCounters are the monotonic activity counters exposed in snapshots.
type RoverCounters struct {
	FramesProcessed  uint64 `json:"frames_processed"`
	FramesDropped    uint64 `json:"frames_dropped"`
	DecodeFailures   uint64 `json:"decode_failures"`
	DistanceSamples  uint64 `json:"distance_samples"`
	DistanceFailures uint64 `json:"distance_failures"`
	MiningAttempts   uint64 `json:"mining_attempts"`
}

// RoverSnapshot is a point-in-time copy of the fused rover state. The two
// halves are each internally consistent but may be mutually stale; the
// per-half timestamps let callers judge freshness.
type RoverSnapshot struct {
	Distance           DistanceReading `json:"distance"`
	Detection          DetectionResult `json:"detection"`
	DistanceUpdatedAt  time.Time       `json:"distance_updated_at"`
	DetectionUpdatedAt time.Time       `json:"detection_updated_at"`
	UptimeSeconds      float64         `json:"uptime_seconds"`
	Counters           RoverCounters   `json:"counters"`
}

// MiningRequest is an operator command to attempt extraction. DistanceCM
// overrides the rover's last known distance when present.
type MiningRequest struct {
	DistanceCM *float64 `json:"distance_cm,omitempty"`
}

// MiningResult reports a decided mining attempt.
type MiningResult struct {
	Outcome    string   `json:"outcome"`
	Message    string   `json:"message"`
	DistanceCM *float64 `json:"distance_cm"`
	Material   *string  `json:"material"`
	Confidence *float64 `json:"confidence"`
}

// FloatPtr returns a pointer to v. Producers use it when filling the
// nullable reading fields.
func FloatPtr(v float64) *float64 { return &v }

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }
