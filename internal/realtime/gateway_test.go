package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atelier-boutique/support-service/internal/domain"
)

// scriptedConn replays canned frames and then blocks until released, so the
// test controls when the connection "closes". drained fires once every frame
// has been consumed and handled.
type scriptedConn struct {
	mu          sync.Mutex
	frames      [][]byte
	hold        chan struct{}
	wrote       chan Envelope
	drained     chan struct{}
	drainedOnce sync.Once
}

func newScriptedConn(frames ...[]byte) *scriptedConn {
	return &scriptedConn{
		frames:  frames,
		hold:    make(chan struct{}),
		wrote:   make(chan Envelope, 8),
		drained: make(chan struct{}),
	}
}

func (c *scriptedConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	if len(c.frames) > 0 {
		next := c.frames[0]
		c.frames = c.frames[1:]
		c.mu.Unlock()
		return 1, next, nil
	}
	c.mu.Unlock()
	c.drainedOnce.Do(func() { close(c.drained) })
	<-c.hold
	return 0, nil, errors.New("connection closed")
}

func (c *scriptedConn) WriteJSON(v interface{}) error {
	if env, ok := v.(Envelope); ok {
		c.wrote <- env
	}
	return nil
}

func clientFrame(t *testing.T, event string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(ClientFrame{Event: event, Data: raw})
	require.NoError(t, err)
	return frame
}

type appendCall struct {
	senderID    string
	role        domain.Role
	ticketID    string
	content     string
	attachments []ChatAttachment
}

func TestGatewayFrameDispatch(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	router := NewRouter(hub)

	calls := make(chan appendCall, 1)
	gw := NewGateway(router, func(_ context.Context, senderID string, role domain.Role, ticketID, content string, attachments []ChatAttachment) error {
		calls <- appendCall{senderID, role, ticketID, content, attachments}
		return nil
	}, zap.NewNop(), nil, 4)

	conn := newScriptedConn(
		clientFrame(t, EventJoinTicket, JoinTicketData{TicketID: "t1"}),
		clientFrame(t, EventChatMessage, ChatMessageData{
			TicketID: "t1",
			Content:  "Can the sleeves be longer?",
			Attachments: []ChatAttachment{
				{URL: "/uploads/sketch.png", Kind: domain.AttachmentImage},
			},
		}),
	)

	done := make(chan struct{})
	go func() {
		gw.HandleConn(conn, "cust-1", domain.RoleCustomer)
		close(done)
	}()

	select {
	case env := <-conn.wrote:
		assert.Equal(t, EventJoinedTicket, env.Event)
		var ack JoinedTicketData
		require.NoError(t, json.Unmarshal(env.Data, &ack))
		assert.Equal(t, "t1", ack.TicketID)
		assert.True(t, ack.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("no join acknowledgement")
	}

	select {
	case call := <-calls:
		assert.Equal(t, "cust-1", call.senderID)
		assert.Equal(t, domain.RoleCustomer, call.role)
		assert.Equal(t, "t1", call.ticketID)
		assert.Equal(t, "Can the sleeves be longer?", call.content)
		require.Len(t, call.attachments, 1)
		assert.Equal(t, "/uploads/sketch.png", call.attachments[0].URL)
		assert.Equal(t, domain.AttachmentImage, call.attachments[0].Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("chat frame never reached the append path")
	}

	assert.Equal(t, 1, hub.RoomSize(TicketRoom("t1")))

	close(conn.hold)
	<-done
	assert.Equal(t, 0, hub.RoomSize(TicketRoom("t1")))
}

func TestGatewayIgnoresMalformedFrames(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	router := NewRouter(hub)

	calls := make(chan appendCall, 1)
	gw := NewGateway(router, func(_ context.Context, senderID string, role domain.Role, ticketID, content string, attachments []ChatAttachment) error {
		calls <- appendCall{senderID, role, ticketID, content, attachments}
		return nil
	}, zap.NewNop(), nil, 4)

	conn := newScriptedConn(
		[]byte("not json"),
		clientFrame(t, EventJoinTicket, JoinTicketData{}),
		clientFrame(t, EventChatMessage, ChatMessageData{Content: "no ticket id"}),
		clientFrame(t, "made-up-event", map[string]string{}),
	)

	done := make(chan struct{})
	go func() {
		gw.HandleConn(conn, "cust-1", domain.RoleCustomer)
		close(done)
	}()

	select {
	case <-conn.drained:
	case <-time.After(2 * time.Second):
		t.Fatal("frames were not consumed")
	}
	assert.Empty(t, calls)
	assert.Equal(t, 0, hub.RoomSize(TicketRoom("t1")))

	close(conn.hold)
	<-done
}

func TestGatewayLeaveTicketExitsAllRooms(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	router := NewRouter(hub)

	gw := NewGateway(router, func(context.Context, string, domain.Role, string, string, []ChatAttachment) error {
		return nil
	}, zap.NewNop(), nil, 4)

	conn := newScriptedConn(
		clientFrame(t, EventJoinTicket, JoinTicketData{TicketID: "t1"}),
		clientFrame(t, EventJoinTicket, JoinTicketData{TicketID: "t2"}),
		clientFrame(t, EventLeaveTicket, JoinTicketData{TicketID: "t1"}),
	)

	done := make(chan struct{})
	go func() {
		gw.HandleConn(conn, "cust-1", domain.RoleCustomer)
		close(done)
	}()

	select {
	case <-conn.drained:
	case <-time.After(2 * time.Second):
		t.Fatal("frames were not consumed")
	}

	// Still connected; leave-ticket alone must have emptied every room.
	assert.Equal(t, 0, hub.RoomSize(TicketRoom("t1")))
	assert.Equal(t, 0, hub.RoomSize(TicketRoom("t2")))
	assert.Equal(t, 0, hub.RoomSize(UserRoom("cust-1")))

	close(conn.hold)
	<-done
}
