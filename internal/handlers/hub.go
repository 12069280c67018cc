package handlers

import (
	"encoding/json"
	"sync"

	"light_control/internal/logger"
	"light_control/internal/models"
)

// Envelope types pushed over /ws.
const (
	envRelays    = "relays"
	envSchedules = "schedules"
	envStatus    = "status"
	envTime      = "time"
)

// replayOrder is the order cached envelopes are sent to a new client.
var replayOrder = []string{envRelays, envSchedules, envTime, envStatus}

// clientBuffer bounds the per-client queue. A client that falls this far
// behind is dropped.
const clientBuffer = 32

type wsEnvelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type wsClient struct {
	send chan []byte
}

// Hub fans view notifications out to websocket clients. It implements
// service.View and never blocks the caller.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	last    map[string][]byte
	closed  bool
	log     *logger.Logger
}

// NewHub returns an empty hub.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		last:    make(map[string][]byte),
		log:     log,
	}
}

func (h *Hub) OnRelaySnapshotChanged(s models.RelaySnapshot) {
	h.broadcast(envRelays, s)
}

func (h *Hub) OnScheduleListChanged(entries []models.ScheduleEntry) {
	h.broadcast(envSchedules, toScheduleViews(entries))
}

func (h *Hub) OnStatusMessage(msg string) {
	h.broadcast(envStatus, msg)
}

func (h *Hub) OnTimeUpdated(t string) {
	h.broadcast(envTime, t)
}

func (h *Hub) broadcast(typ string, data interface{}) {
	msg, err := json.Marshal(wsEnvelope{Type: typ, Data: data})
	if err != nil {
		h.log.Errorw("ws_encode_failed", "type", typ, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[typ] = msg
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warnw("ws_client_dropped", "reason", "slow consumer")
			h.dropLocked(c)
		}
	}
}

// register adds a client and queues the latest envelope of each type for it.
// It returns nil once the hub is closed.
func (h *Hub) register() *wsClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	c := &wsClient{send: make(chan []byte, clientBuffer)}
	for _, typ := range replayOrder {
		if msg, ok := h.last[typ]; ok {
			c.send <- msg
		}
	}
	h.clients[c] = struct{}{}
	return c
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones. Hijacked websocket
// connections are not closed by http.Server.Shutdown, so call this on exit.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}
