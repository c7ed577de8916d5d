package eventlog

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/remoterover/internal/types"
)

// LogStats summarizes the event log for the stats endpoint. Aggregates over
// absent data stay nil rather than reporting zeros that were never measured.
type LogStats struct {
	TotalEntries     int            `json:"total_entries"`
	ByAction         map[string]int `json:"by_action"`
	Detections       int            `json:"detections"`
	MaterialCounts   map[string]int `json:"material_counts"`
	ConfidenceMean   *float64       `json:"confidence_mean"`
	ConfidenceStdDev *float64       `json:"confidence_stddev"`
	DistanceMinCM    *float64       `json:"distance_min_cm"`
	DistanceMeanCM   *float64       `json:"distance_mean_cm"`
	DistanceMaxCM    *float64       `json:"distance_max_cm"`
}

// Stats computes aggregates over the whole log.
func (l *Log) Stats() LogStats {
	entries := l.All()

	stats := LogStats{
		TotalEntries:   len(entries),
		ByAction:       make(map[string]int),
		MaterialCounts: make(map[string]int),
	}

	var confidences, distances []float64
	for _, e := range entries {
		stats.ByAction[e.Action]++
		if e.MaterialDetected {
			stats.Detections++
			if e.MaterialType != nil {
				stats.MaterialCounts[*e.MaterialType]++
			}
		}
		if e.Confidence != nil {
			confidences = append(confidences, *e.Confidence)
		}
		if e.DistanceCM != nil {
			distances = append(distances, *e.DistanceCM)
		}
	}

	if len(confidences) > 0 {
		stats.ConfidenceMean = types.FloatPtr(stat.Mean(confidences, nil))
	}
	if len(confidences) > 1 {
		stats.ConfidenceStdDev = types.FloatPtr(stat.StdDev(confidences, nil))
	}
	if len(distances) > 0 {
		stats.DistanceMinCM = types.FloatPtr(floats.Min(distances))
		stats.DistanceMeanCM = types.FloatPtr(stat.Mean(distances, nil))
		stats.DistanceMaxCM = types.FloatPtr(floats.Max(distances))
	}
	return stats
}
