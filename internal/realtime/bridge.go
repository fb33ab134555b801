package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bridge relays room broadcasts across service instances over redis pub/sub.
// Each frame is tagged with the publishing instance id so an instance skips
// its own frames when they come back around. Redis being unreachable degrades
// to single-instance delivery; it never fails a write.
type Bridge struct {
	client     *redis.Client
	channel    string
	instanceID string
	hub        *Hub
	logger     *zap.Logger
}

type bridgeFrame struct {
	Instance string   `json:"instance"`
	Room     string   `json:"room"`
	Envelope Envelope `json:"envelope"`
}

// NewBridge builds the bridge. An empty instanceID gets a generated one.
func NewBridge(client *redis.Client, channel, instanceID string, hub *Hub, logger *zap.Logger) *Bridge {
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	return &Bridge{
		client:     client,
		channel:    channel,
		instanceID: instanceID,
		hub:        hub,
		logger:     logger,
	}
}

// Publish forwards a locally-broadcast envelope to the other instances.
func (b *Bridge) Publish(room string, env Envelope) {
	frame := bridgeFrame{Instance: b.instanceID, Room: room, Envelope: env}
	data, err := json.Marshal(frame)
	if err != nil {
		b.logger.Error("bridge frame marshal failed", zap.Error(err))
		return
	}
	if err := b.client.Publish(context.Background(), b.channel, data).Err(); err != nil {
		b.logger.Warn("bridge publish failed; staying local", zap.Error(err))
	}
}

// Run subscribes to the bridge channel and re-broadcasts frames from other
// instances into the local hub. Blocks until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close() //nolint:errcheck

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var frame bridgeFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				b.logger.Warn("unreadable bridge frame", zap.Error(err))
				continue
			}
			if frame.Instance == b.instanceID {
				continue
			}
			b.hub.deliverLocal(frame.Room, frame.Envelope)
		}
	}
}
