// Package realtime fans catalog and design change notifications out to
// websocket clients. Admin clients join the admin room after presenting an
// admin token; everything else is broadcast to every connection.
package realtime

import (
	"encoding/json"
	"errors"
	"sync"

	"furniture-service/pkg/jwtutil"
	"furniture-service/prometheus"

	"go.uber.org/zap"
)

// Event names
const (
	EventJoinAdmin      = "join-admin"
	EventJoined         = "joined"
	EventProductUpdate  = "product-update"
	EventProductUpdated = "product-updated"
	EventCatalogUpdated = "catalog-updated"
	EventDesignUpdate   = "design-update"
	EventDesignUpdated  = "design-updated"
	EventError          = "error"
)

// RoomAdmin is the room admin clients join
const RoomAdmin = "admin"

const adminRole = "admin"

var ErrHubClosed = errors.New("realtime hub closed")

// Envelope is the JSON frame exchanged in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ProductEvent is the payload of product-updated and catalog-updated
type ProductEvent struct {
	Action    string `json:"action"`
	Message   string `json:"message,omitempty"`
	ProductID uint   `json:"productId,omitempty"`
}

// DesignEvent is the payload of design-updated
type DesignEvent struct {
	Action   string `json:"action"`
	DesignID uint   `json:"designId,omitempty"`
	UserID   uint   `json:"userId,omitempty"`
}

// TokenValidator checks the token sent with join-admin
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwtutil.UserClaims, error)
}

// Hub tracks connected clients and their rooms
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	closed  bool

	tokens TokenValidator
	log    *zap.Logger
}

// NewHub creates an empty hub
func NewHub(tokens TokenValidator, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		tokens:  tokens,
		log:     log,
	}
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomLen returns the number of clients in a room
func (h *Hub) RoomLen(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.clients[c] = struct{}{}
	prometheus.RealtimeConnectionsGauge.Inc()
	return nil
}

// unregister removes c from the hub and every room and closes its send
// channel. It is safe to call more than once.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for name, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, name)
		}
	}
	close(c.send)
	prometheus.RealtimeConnectionsGauge.Dec()
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) inRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c]
	return ok
}

// Broadcast sends an event to every client except the given one, which may be nil
func (h *Hub) Broadcast(event string, data interface{}, except *Client) error {
	msg, err := encode(event, data)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c != except {
			h.deliverLocked(c, msg)
		}
	}
	prometheus.RecordRealtimeEvent(event, "out")
	return nil
}

// BroadcastRoom sends an event to every member of a room
func (h *Hub) BroadcastRoom(room, event string, data interface{}) error {
	msg, err := encode(event, data)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[room] {
		h.deliverLocked(c, msg)
	}
	prometheus.RecordRealtimeEvent(event, "out")
	return nil
}

func (h *Hub) sendTo(c *Client, event string, data interface{}) {
	msg, err := encode(event, data)
	if err != nil {
		h.log.Error("Failed to encode realtime event", zap.String("event", event), zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.deliverLocked(c, msg)
	}
}

// deliverLocked queues msg for c; a client that cannot keep up is dropped
func (h *Hub) deliverLocked(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.log.Warn("Dropping slow realtime client", zap.String("client_id", c.id))
		h.removeLocked(c)
	}
}

// NotifyProductChange tells admins a product changed and every client that
// the catalog should be refetched.
func (h *Hub) NotifyProductChange(ev ProductEvent) {
	if err := h.BroadcastRoom(RoomAdmin, EventProductUpdated, ev); err != nil {
		h.log.Error("Failed to publish product update", zap.Error(err))
	}
	if err := h.Broadcast(EventCatalogUpdated, ev, nil); err != nil {
		h.log.Error("Failed to publish catalog update", zap.Error(err))
	}
}

// NotifyDesignChange tells every client a room design changed
func (h *Hub) NotifyDesignChange(ev DesignEvent) {
	if err := h.Broadcast(EventDesignUpdated, ev, nil); err != nil {
		h.log.Error("Failed to publish design update", zap.Error(err))
	}
}

// handle dispatches one inbound event from c
func (h *Hub) handle(c *Client, env Envelope) {
	prometheus.RecordRealtimeEvent(env.Event, "in")
	log := h.log.With(zap.String("client_id", c.id), zap.String("event", env.Event))

	switch env.Event {
	case EventJoinAdmin:
		var req struct {
			Token string `json:"token"`
		}
		if len(env.Data) > 0 {
			_ = json.Unmarshal(env.Data, &req)
		}
		if h.tokens == nil || req.Token == "" {
			h.sendTo(c, EventError, map[string]string{"message": "Not authorized to join admin room"})
			return
		}
		claims, err := h.tokens.ValidateToken(req.Token)
		if err != nil || claims.Role != adminRole {
			log.Warn("Rejected admin room join", zap.Error(err))
			h.sendTo(c, EventError, map[string]string{"message": "Access denied: Admin only"})
			return
		}
		h.join(c, RoomAdmin)
		log.Info("Client joined admin room", zap.Uint("user_id", claims.UserID))
		h.sendTo(c, EventJoined, map[string]string{"room": RoomAdmin})

	case EventProductUpdate:
		if !h.inRoom(c, RoomAdmin) {
			h.sendTo(c, EventError, map[string]string{"message": "Access denied: Admin only"})
			return
		}
		var ev ProductEvent
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &ev); err != nil {
				h.sendTo(c, EventError, map[string]string{"message": "Invalid event payload"})
				return
			}
		}
		h.NotifyProductChange(ev)

	case EventDesignUpdate:
		if err := h.Broadcast(EventDesignUpdated, env.Data, c); err != nil {
			log.Error("Failed to relay design update", zap.Error(err))
		}

	default:
		log.Debug("Ignoring unknown realtime event")
	}
}

// Close disconnects every client and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func encode(event string, data interface{}) ([]byte, error) {
	env := Envelope{Event: event}
	switch d := data.(type) {
	case nil:
	case json.RawMessage:
		env.Data = d
	default:
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}
