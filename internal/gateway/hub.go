// Package gateway fans rover events out to websocket subscribers and
// accepts camera frames from publisher-role connections. Delivery is
// per-client best-effort: a slow or dead subscriber loses updates or its
// connection, never the hub's attention.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/remoterover/internal/state"
	"github.com/chrissnell/remoterover/internal/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Connection roles. Only camera-role connections may push frames.
const (
	RoleObserver = "observer"
	RoleCamera   = "camera"
)

// FrameSink is the slice of the ingest pipeline the gateway feeds.
type FrameSink interface {
	Submit(types.Frame) bool
}

type distanceEvent struct {
	Type        string    `json:"type"`
	DistanceCM  *float64  `json:"distance_cm"`
	WithinRange bool      `json:"within_range"`
	TS          time.Time `json:"ts"`
}

type detectionEvent struct {
	Type       string    `json:"type"`
	Detected   bool      `json:"detected"`
	Material   *string   `json:"material"`
	Band       *string   `json:"band"`
	Confidence *float64  `json:"confidence"`
	TS         time.Time `json:"ts"`
}

type miningEvent struct {
	Type string `json:"type"`
	types.MiningResult
}

type snapshotEvent struct {
	Type     string              `json:"type"`
	Snapshot types.RoverSnapshot `json:"snapshot"`
}

// Hub owns the client set. All registration and delivery funnels through
// run() so the client map needs no lock.
type Hub struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	pipeline   FrameSink
	roverState *state.RoverState
	logger     *zap.SugaredLogger

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	clientBuffer int
	sendTimeout  time.Duration

	upgrader websocket.Upgrader
}

// NewHub creates a gateway hub. clientBuffer sizes each subscriber's
// outbound channel; sendTimeout bounds every network write.
func NewHub(ctx context.Context, wg *sync.WaitGroup, roverState *state.RoverState, clientBuffer int, sendTimeout time.Duration, logger *zap.SugaredLogger) *Hub {
	return &Hub{
		ctx:          ctx,
		wg:           wg,
		roverState:   roverState,
		logger:       logger,
		clients:      make(map[*Client]bool),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan []byte, 64),
		clientBuffer: clientBuffer,
		sendTimeout:  sendTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The rover serves operator tooling across the LAN; origin
			// enforcement happens at the REST layer's CORS config.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// AttachPipeline connects the frame sink. The ingest pipeline takes the hub
// as its notifier, so the sink is wired here after both exist and before
// any connection is accepted.
func (h *Hub) AttachPipeline(sink FrameSink) {
	h.pipeline = sink
}

// Start launches the hub loop.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.run()
}

func (h *Hub) run() {
	defer h.wg.Done()
	h.logger.Info("starting realtime gateway hub")

	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("cancellation request received, closing gateway clients")
			for client := range h.clients {
				client.conn.Close()
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Infof("gateway client %s connected as %s (%d total)", client.id, client.role, len(h.clients))
			h.deliver(client, h.marshalSnapshot())
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Infof("gateway client %s disconnected after dropping %d updates (%d total)",
					client.id, client.dropped.Load(), len(h.clients))
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				h.deliver(client, message)
			}
		}
	}
}

// deliver queues a message for one client without waiting. A full buffer
// means the client is too slow for this update; it is skipped for that
// client only.
func (h *Hub) deliver(client *Client, message []byte) {
	if message == nil {
		return
	}
	select {
	case client.send <- message:
	default:
		client.dropped.Add(1)
	}
}

// queueBroadcast hands an encoded event to the hub loop. Producers never
// block here; if the hub is saturated the event is dropped with a warning.
func (h *Hub) queueBroadcast(event interface{}) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Errorf("could not marshal gateway event: %v", err)
		return
	}
	select {
	case h.broadcast <- message:
	case <-h.ctx.Done():
	default:
		h.logger.Warnf("gateway broadcast queue full, event dropped")
	}
}

// BroadcastDistance publishes a distance update to all clients.
func (h *Hub) BroadcastDistance(r types.DistanceReading) {
	h.queueBroadcast(distanceEvent{
		Type:        "distance_update",
		DistanceCM:  r.DistanceCM,
		WithinRange: r.WithinRange,
		TS:          r.Timestamp,
	})
}

// BroadcastDetection publishes a detection update to all clients.
func (h *Hub) BroadcastDetection(d types.DetectionResult) {
	h.queueBroadcast(detectionEvent{
		Type:       "detection_update",
		Detected:   d.Detected,
		Material:   d.Material,
		Band:       d.BandName,
		Confidence: d.Confidence,
		TS:         d.Timestamp,
	})
}

// BroadcastMiningResult publishes a decided mining attempt to all clients.
func (h *Hub) BroadcastMiningResult(m types.MiningResult) {
	h.queueBroadcast(miningEvent{Type: "mining_result", MiningResult: m})
}

func (h *Hub) marshalSnapshot() []byte {
	message, err := json.Marshal(snapshotEvent{Type: "snapshot", Snapshot: h.roverState.Snapshot()})
	if err != nil {
		h.logger.Errorf("could not marshal snapshot event: %v", err)
		return nil
	}
	return message
}

// ServeWS upgrades an HTTP request into a gateway connection. The role
// query parameter selects camera publishers; everything else observes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role != RoleCamera {
		role = RoleObserver
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		id:   uuid.New().String(),
		role: role,
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.clientBuffer),
	}

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
