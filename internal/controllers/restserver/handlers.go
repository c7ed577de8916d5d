package restserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/remoterover/internal/gateway"
	"github.com/chrissnell/remoterover/internal/types"
	"github.com/chrissnell/remoterover/pkg/responseformat"
)

// Frame uploads larger than this are rejected before decoding.
const maxFrameBytes = 8 << 20

const (
	defaultLogLimit = 50
	maxLogLimit     = 1000
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// statusResponse is the full rover status. The sensor fields sit at the top
// level; operator dashboards poll this one endpoint.
type statusResponse struct {
	DistanceCM  *float64 `json:"distance_cm"`
	WithinRange bool     `json:"within_range"`
	Detected    bool     `json:"detected"`
	Material    *string  `json:"material"`
	ColorBand   *string  `json:"color_band"`
	Confidence  *float64 `json:"confidence"`

	DistanceUpdatedAt  time.Time           `json:"distance_updated_at"`
	DetectionUpdatedAt time.Time           `json:"detection_updated_at"`
	UptimeSeconds      float64             `json:"uptime_seconds"`
	Phase              string              `json:"phase"`
	LastOutcome        string              `json:"last_outcome,omitempty"`
	Counters           types.RoverCounters `json:"counters"`
	Devices            []deviceSummary     `json:"devices"`
	Bands              []bandSummary       `json:"bands"`
}

type deviceSummary struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type bandSummary struct {
	Name     string `json:"name"`
	Material string `json:"material"`
}

// GetStatus returns the fused rover snapshot plus inventory and counters
func (h *Handlers) GetStatus(w http.ResponseWriter, req *http.Request) {
	snapshot := h.controller.services.State.Snapshot()

	resp := statusResponse{
		DistanceCM:         snapshot.Distance.DistanceCM,
		WithinRange:        snapshot.Distance.WithinRange,
		Detected:           snapshot.Detection.Detected,
		Material:           snapshot.Detection.Material,
		ColorBand:          snapshot.Detection.BandName,
		Confidence:         snapshot.Detection.Confidence,
		DistanceUpdatedAt:  snapshot.DistanceUpdatedAt,
		DetectionUpdatedAt: snapshot.DetectionUpdatedAt,
		UptimeSeconds:      snapshot.UptimeSeconds,
		Phase:              h.controller.services.Orchestrator.Phase(),
		LastOutcome:        h.controller.services.Orchestrator.LastOutcome(),
		Counters:           snapshot.Counters,
		Devices:            make([]deviceSummary, 0, len(h.controller.config.Devices)),
		Bands:              make([]bandSummary, 0, len(h.controller.config.Bands)),
	}
	for _, d := range h.controller.config.Devices {
		resp.Devices = append(resp.Devices, deviceSummary{Name: d.Name, Type: d.Type})
	}
	for _, b := range h.controller.config.Bands {
		resp.Bands = append(resp.Bands, bandSummary{Name: b.Name, Material: b.Material})
	}

	h.writeResponse(w, req, resp)
}

// GetDistance returns the distance half of the rover state
func (h *Handlers) GetDistance(w http.ResponseWriter, req *http.Request) {
	h.writeResponse(w, req, h.controller.services.State.Distance())
}

// GetDetection returns the detection half of the rover state
func (h *Handlers) GetDetection(w http.ResponseWriter, req *http.Request) {
	h.writeResponse(w, req, h.controller.services.State.Detection())
}

// GetLogs returns a bounded chronological slice of the event log.
// Query parameters: limit (default 50, max 1000) and action (scan, mining,
// or skipped).
func (h *Handlers) GetLogs(w http.ResponseWriter, req *http.Request) {
	limit := defaultLogLimit
	if raw := req.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.formatter.WriteError(w, req, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	action := req.URL.Query().Get("action")
	switch action {
	case "", types.ActionScan, types.ActionMining, types.ActionSkipped:
	default:
		h.formatter.WriteError(w, req, http.StatusBadRequest, "action must be one of scan, mining, skipped")
		return
	}

	entries := h.controller.services.Events.Filter(action, limit)
	if entries == nil {
		entries = []types.LogEntry{}
	}
	h.writeResponse(w, req, entries)
}

// GetLogStats returns aggregate statistics over the whole event log
func (h *Handlers) GetLogStats(w http.ResponseWriter, req *http.Request) {
	h.writeResponse(w, req, h.controller.services.Events.Stats())
}

// GetHealth is the liveness endpoint
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	h.writeResponse(w, req, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": h.controller.services.State.Snapshot().UptimeSeconds,
		"log_entries":    h.controller.services.Events.Len(),
	})
}

// PostMine evaluates one mining attempt. The optional body supplies a
// distance override; an empty body uses the rover's last known reading.
func (h *Handlers) PostMine(w http.ResponseWriter, req *http.Request) {
	var miningReq types.MiningRequest

	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, 4096))
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "could not read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &miningReq); err != nil {
			h.formatter.WriteError(w, req, http.StatusBadRequest, "invalid JSON payload")
			return
		}
	}

	result, err := h.controller.services.Orchestrator.Evaluate(miningReq)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	h.controller.logger.Debugf("mining attempt via REST: %s", result.Outcome)
	h.writeResponse(w, req, result)
}

// PostFrame accepts a camera frame for classification. Raw image bodies and
// JSON-wrapped base64 payloads are both accepted; the response only
// acknowledges queueing. Detection results arrive via the query surface or
// the websocket channel.
func (h *Handlers) PostFrame(w http.ResponseWriter, req *http.Request) {
	if h.controller.services.Frames == nil {
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "frame pipeline not running")
		return
	}

	data, err := h.readFrameBody(req, w)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	queued := h.controller.services.Frames.Submit(types.Frame{
		Data:      data,
		Source:    types.FrameSourceHTTP,
		Timestamp: time.Now(),
	})

	h.formatter.WriteStatus(w, req, http.StatusAccepted, map[string]bool{"queued": queued})
}

// readFrameBody extracts the encoded image bytes from a frame submission.
func (h *Handlers) readFrameBody(req *http.Request, w http.ResponseWriter) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxFrameBytes))
	if err != nil {
		return nil, errors.New("could not read frame body")
	}
	if len(body) == 0 {
		return nil, errors.New("empty frame body")
	}

	if strings.HasPrefix(req.Header.Get("Content-Type"), "image/") {
		return body, nil
	}

	var payload struct {
		Frame string `json:"frame"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.New("frame body must be a raw image or JSON with a frame field")
	}
	if payload.Frame == "" {
		return nil, errors.New("frame field is empty")
	}
	data, err := gateway.DecodeFramePayload(payload.Frame)
	if err != nil {
		return nil, errors.New("frame field is not valid base64")
	}
	return data, nil
}

func (h *Handlers) writeResponse(w http.ResponseWriter, req *http.Request, data interface{}) {
	if err := h.formatter.WriteResponse(w, req, data); err != nil {
		h.controller.logger.Errorf("error writing REST response: %v", err)
	}
}
