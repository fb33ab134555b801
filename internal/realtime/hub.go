package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atelier-boutique/support-service/internal/observability"
)

// Envelope is the frame delivered to room members. DeliveredAt is assigned by
// the server at fan-out time and is distinct from any creation timestamp
// inside the payload; clients dedupe by message id, not by timestamp.
type Envelope struct {
	Event       string          `json:"event"`
	Data        json.RawMessage `json:"data"`
	DeliveredAt int64           `json:"delivered_at"`
}

// Receiver is one connected participant. Receive must not block; it reports
// false when the frame was dropped.
type Receiver interface {
	Receive(env Envelope) bool
}

// BridgePublisher forwards a broadcast to other instances.
type BridgePublisher interface {
	Publish(room string, env Envelope)
}

// Hub is the process-wide broadcaster. Rooms are ephemeral: membership lives
// only here, and a room with no members simply does not exist. Constructed
// once at startup and passed to whatever needs to emit events.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[Receiver]struct{}
	logger  *zap.Logger
	metrics *observability.Metrics
	bridge  BridgePublisher
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		rooms:   make(map[string]map[Receiver]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// AttachBridge wires the cross-instance publisher. Optional; without it the
// hub delivers to local connections only.
func (h *Hub) AttachBridge(bridge BridgePublisher) {
	h.bridge = bridge
}

// Join adds a receiver to a room.
func (h *Hub) Join(room string, r Receiver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[Receiver]struct{})
		h.rooms[room] = members
	}
	members[r] = struct{}{}
}

// Leave removes a receiver from a room. Unknown rooms and absent members are
// no-ops.
func (h *Hub) Leave(room string, r Receiver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, r)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// RoomSize returns the current member count of a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast fans an event out to every current member of the room and forwards
// it across the bridge. An empty room is a silent no-op; the emitter does not
// know or care whether anyone is listening. Delivery is best-effort: slow
// receivers drop the frame, persistence never waits on this path.
func (h *Hub) Broadcast(room, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("broadcast payload marshal failed",
			zap.String("room", room), zap.String("event", event), zap.Error(err))
		return err
	}
	env := Envelope{
		Event:       event,
		Data:        data,
		DeliveredAt: time.Now().UnixMilli(),
	}

	h.deliverLocal(room, env)
	if h.bridge != nil {
		h.bridge.Publish(room, env)
	}
	return nil
}

func (h *Hub) deliverLocal(room string, env Envelope) {
	h.mu.RLock()
	members := make([]Receiver, 0, len(h.rooms[room]))
	for r := range h.rooms[room] {
		members = append(members, r)
	}
	h.mu.RUnlock()

	if h.metrics != nil {
		h.metrics.BroadcastsTotal.WithLabelValues(env.Event).Inc()
	}

	for _, r := range members {
		if !r.Receive(env) {
			if h.metrics != nil {
				h.metrics.DroppedFrames.Inc()
			}
			h.logger.Warn("dropped frame for slow receiver",
				zap.String("room", room), zap.String("event", env.Event))
		}
	}
}
