package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atelier-boutique/support-service/internal/domain"
)

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "ticket-abc", TicketRoom("abc"))
	assert.Equal(t, "user-u1", UserRoom("u1"))
	assert.Equal(t, "support-room", SupportRoom)
}

func TestJoinTicketRoomCustomer(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	router := NewRouter(hub)
	conn := &fakeReceiver{}

	rooms := router.JoinTicketRoom(conn, "t1", "u1", domain.RoleCustomer)

	assert.ElementsMatch(t, []string{"ticket-t1", "user-u1"}, rooms)
	assert.Equal(t, 1, hub.RoomSize("ticket-t1"))
	assert.Equal(t, 1, hub.RoomSize("user-u1"))
	assert.Equal(t, 0, hub.RoomSize(SupportRoom))
}

func TestJoinTicketRoomStaff(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	router := NewRouter(hub)
	conn := &fakeReceiver{}

	rooms := router.JoinTicketRoom(conn, "t1", "staff-1", domain.RoleAdmin)

	assert.ElementsMatch(t, []string{"ticket-t1", SupportRoom}, rooms)
	assert.Equal(t, 1, hub.RoomSize(SupportRoom))
	assert.Equal(t, 0, hub.RoomSize("user-staff-1"))
}

func TestJoinsAccumulateAcrossTickets(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	router := NewRouter(hub)
	conn := &fakeReceiver{}

	router.JoinTicketRoom(conn, "t1", "u1", domain.RoleCustomer)
	router.JoinTicketRoom(conn, "t2", "u1", domain.RoleCustomer)

	assert.ElementsMatch(t, []string{"ticket-t1", "ticket-t2", "user-u1"}, router.Rooms(conn))
	assert.Equal(t, 1, hub.RoomSize("ticket-t1"))
	assert.Equal(t, 1, hub.RoomSize("ticket-t2"))
}

func TestLeaveAllIsIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	router := NewRouter(hub)
	conn := &fakeReceiver{}

	router.JoinTicketRoom(conn, "t1", "u1", domain.RoleCustomer)
	require.NotEmpty(t, router.Rooms(conn))

	router.LeaveAll(conn)
	assert.Empty(t, router.Rooms(conn))
	assert.Equal(t, 0, hub.RoomSize("ticket-t1"))
	assert.Equal(t, 0, hub.RoomSize("user-u1"))

	router.LeaveAll(conn)

	other := &fakeReceiver{}
	router.LeaveAll(other)
}

func TestLeaveAllKeepsOtherMembers(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	router := NewRouter(hub)

	first := &fakeReceiver{}
	second := &fakeReceiver{}
	router.JoinTicketRoom(first, "t1", "u1", domain.RoleCustomer)
	router.JoinTicketRoom(second, "t1", "u2", domain.RoleCustomer)

	router.LeaveAll(first)

	assert.Equal(t, 1, hub.RoomSize("ticket-t1"))
	require.NoError(t, hub.Broadcast("ticket-t1", "chat-message", map[string]string{}))
	assert.Empty(t, first.frames)
	assert.Len(t, second.frames, 1)
}
