package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atelier-boutique/support-service/internal/domain"
	"github.com/atelier-boutique/support-service/internal/events"
)

func TestRelayBroadcastsMessageEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	hub := NewHub(zap.NewNop(), nil)
	RegisterRelay(dispatcher, hub, zap.NewNop())

	recv := &fakeReceiver{}
	hub.Join(TicketRoom("t1"), recv)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: "t1",
		Payload: events.MessageAddedPayload{
			MessageID:   "m1",
			Content:     "We can do that in silk",
			TicketID:    "t1",
			SenderRole:  domain.RoleAdmin,
			ReplyStatus: domain.WaitingCustomer,
		},
	})
	require.NoError(t, err)

	require.Len(t, recv.frames, 1)
	assert.Equal(t, EventChatMessage, recv.frames[0].Event)

	var payload events.MessageAddedPayload
	require.NoError(t, json.Unmarshal(recv.frames[0].Data, &payload))
	assert.Equal(t, "m1", payload.MessageID)
	assert.Equal(t, domain.RoleAdmin, payload.SenderRole)
	assert.Equal(t, domain.WaitingCustomer, payload.ReplyStatus)
}

func TestRelayOnlyReachesTheTicketRoom(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	hub := NewHub(zap.NewNop(), nil)
	RegisterRelay(dispatcher, hub, zap.NewNop())

	inRoom := &fakeReceiver{}
	elsewhere := &fakeReceiver{}
	hub.Join(TicketRoom("t1"), inRoom)
	hub.Join(TicketRoom("t2"), elsewhere)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: "t1",
		Payload:  events.MessageAddedPayload{MessageID: "m1", TicketID: "t1"},
	}))

	assert.Len(t, inRoom.frames, 1)
	assert.Empty(t, elsewhere.frames)
}

func TestRelaySkipsUnexpectedPayloads(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	hub := NewHub(zap.NewNop(), nil)
	RegisterRelay(dispatcher, hub, zap.NewNop())

	recv := &fakeReceiver{}
	hub.Join(TicketRoom("t1"), recv)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: "t1",
		Payload:  "not a message payload",
	}))
	assert.Empty(t, recv.frames)
}
