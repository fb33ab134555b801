package realtime

import (
	"encoding/json"

	"github.com/atelier-boutique/support-service/internal/domain"
)

// Wire event names shared with the storefront's chat client.
const (
	EventJoinTicket      = "join-ticket"
	EventJoinedTicket    = "joined-ticket"
	EventLeaveTicket     = "leave-ticket"
	EventChatMessage     = "chat-message"
	EventReceivedConfirm = "message-received-confirmation"
)

// ClientFrame is an inbound frame from a websocket client.
type ClientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// JoinTicketData is the payload of a join-ticket or leave-ticket frame. The
// user id and role in legacy frames are ignored; identity comes from the
// authenticated upgrade request.
type JoinTicketData struct {
	TicketID string `json:"ticketId"`
}

// ChatAttachment references an already-uploaded file carried on a chat frame.
type ChatAttachment struct {
	URL  string                `json:"url"`
	Kind domain.AttachmentKind `json:"kind"`
}

// ChatMessageData is the payload of an inbound chat-message frame. It is
// routed through the persisted append path; there is no broadcast-only
// shortcut.
type ChatMessageData struct {
	TicketID    string           `json:"ticketId"`
	Content     string           `json:"content"`
	Attachments []ChatAttachment `json:"attachments"`
}

// JoinedTicketData acknowledges a join.
type JoinedTicketData struct {
	TicketID string `json:"ticketId"`
	Success  bool   `json:"success"`
}
