package realtime

import (
	"fmt"
	"sync"

	"github.com/atelier-boutique/support-service/internal/domain"
)

// SupportRoom is the shared room every staff connection joins. Staff use it
// for dashboard presence; message content still flows through ticket rooms.
const SupportRoom = "support-room"

// TicketRoom names the broadcast room for one ticket's conversation.
func TicketRoom(ticketID string) string {
	return fmt.Sprintf("ticket-%s", ticketID)
}

// UserRoom names a customer's private room, reserved for direct non-ticket
// notifications.
func UserRoom(userID string) string {
	return fmt.Sprintf("user-%s", userID)
}

// Router decides which rooms a connection belongs to and keeps per-connection
// bookkeeping so every joined room can be exited together. Membership is only
// mutated by the connection's own join/leave calls.
type Router struct {
	hub    *Hub
	mu     sync.Mutex
	joined map[Receiver]map[string]struct{}
}

// NewRouter builds a router over the given hub.
func NewRouter(hub *Hub) *Router {
	return &Router{
		hub:    hub,
		joined: make(map[Receiver]map[string]struct{}),
	}
}

// JoinTicketRoom joins the connection to the ticket's room plus the role
// room: staff also join the shared support room, customers their private user
// room. Repeated calls for different tickets accumulate; LeaveAll is the only
// bulk exit. Returns the rooms joined by this call.
func (rt *Router) JoinTicketRoom(r Receiver, ticketID, userID string, role domain.Role) []string {
	rooms := []string{TicketRoom(ticketID)}
	if role.IsStaff() {
		rooms = append(rooms, SupportRoom)
	} else {
		rooms = append(rooms, UserRoom(userID))
	}

	rt.mu.Lock()
	record, ok := rt.joined[r]
	if !ok {
		record = make(map[string]struct{})
		rt.joined[r] = record
	}
	for _, room := range rooms {
		record[room] = struct{}{}
	}
	rt.mu.Unlock()

	for _, room := range rooms {
		rt.hub.Join(room, r)
	}
	return rooms
}

// LeaveAll exits every room recorded for the connection and clears the
// record. Idempotent: a second call, or a call for an unknown connection, is
// a no-op.
func (rt *Router) LeaveAll(r Receiver) {
	rt.mu.Lock()
	record := rt.joined[r]
	delete(rt.joined, r)
	rt.mu.Unlock()

	for room := range record {
		rt.hub.Leave(room, r)
	}
}

// Rooms returns the rooms currently recorded for the connection.
func (rt *Router) Rooms(r Receiver) []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rooms := make([]string, 0, len(rt.joined[r]))
	for room := range rt.joined[r] {
		rooms = append(rooms, room)
	}
	return rooms
}
