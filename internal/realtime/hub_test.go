package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReceiver struct {
	frames []Envelope
	full   bool
}

func (f *fakeReceiver) Receive(env Envelope) bool {
	if f.full {
		return false
	}
	f.frames = append(f.frames, env)
	return true
}

func TestHubJoinAndBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)

	a := &fakeReceiver{}
	b := &fakeReceiver{}
	hub.Join("ticket-1", a)
	hub.Join("ticket-1", b)
	require.Equal(t, 2, hub.RoomSize("ticket-1"))

	err := hub.Broadcast("ticket-1", "chat-message", map[string]string{"content": "hello"})
	require.NoError(t, err)

	require.Len(t, a.frames, 1)
	require.Len(t, b.frames, 1)
	assert.Equal(t, "chat-message", a.frames[0].Event)
	assert.NotZero(t, a.frames[0].DeliveredAt)

	var data map[string]string
	require.NoError(t, json.Unmarshal(a.frames[0].Data, &data))
	assert.Equal(t, "hello", data["content"])
}

func TestHubBroadcastEmptyRoomIsNoop(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)

	err := hub.Broadcast("ticket-nobody", "chat-message", map[string]string{"content": "into the void"})
	assert.NoError(t, err)
}

func TestHubBroadcastSkipsOtherRooms(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)

	a := &fakeReceiver{}
	b := &fakeReceiver{}
	hub.Join("ticket-1", a)
	hub.Join("ticket-2", b)

	require.NoError(t, hub.Broadcast("ticket-1", "chat-message", map[string]string{}))

	assert.Len(t, a.frames, 1)
	assert.Empty(t, b.frames)
}

func TestHubLeaveRemovesEmptyRoom(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)

	a := &fakeReceiver{}
	hub.Join("ticket-1", a)
	hub.Leave("ticket-1", a)
	assert.Equal(t, 0, hub.RoomSize("ticket-1"))

	// Leaving again, or leaving an unknown room, must not panic.
	hub.Leave("ticket-1", a)
	hub.Leave("never-existed", a)
}

func TestHubSlowReceiverDropsFrame(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)

	slow := &fakeReceiver{full: true}
	ok := &fakeReceiver{}
	hub.Join("ticket-1", slow)
	hub.Join("ticket-1", ok)

	require.NoError(t, hub.Broadcast("ticket-1", "chat-message", map[string]string{}))

	assert.Empty(t, slow.frames)
	assert.Len(t, ok.frames, 1)
}

type fakeBridge struct {
	rooms []string
	envs  []Envelope
}

func (f *fakeBridge) Publish(room string, env Envelope) {
	f.rooms = append(f.rooms, room)
	f.envs = append(f.envs, env)
}

func TestHubForwardsToBridge(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	bridge := &fakeBridge{}
	hub.AttachBridge(bridge)

	require.NoError(t, hub.Broadcast("ticket-1", "chat-message", map[string]string{}))

	require.Len(t, bridge.rooms, 1)
	assert.Equal(t, "ticket-1", bridge.rooms[0])
	assert.Equal(t, "chat-message", bridge.envs[0].Event)
}
