package events

import (
	"time"

	"github.com/atelier-boutique/support-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket.created"
	EventTicketMessageAdded  EventType = "ticket.message_added"
	EventTicketStatusChanged EventType = "ticket.status_changed"
	EventTicketAssigned      EventType = "ticket.assigned"
	EventTicketDeleted       EventType = "ticket.deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	ActorRole domain.Role `json:"actor_role"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Sender describes a resolved message author for broadcast payloads.
type Sender struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

// AttachmentPayload mirrors a stored attachment reference.
type AttachmentPayload struct {
	URL  string                `json:"url"`
	Kind domain.AttachmentKind `json:"kind"`
}

// MessageAddedPayload is the full payload fanned out to a ticket room.
type MessageAddedPayload struct {
	MessageID   string              `json:"message_id"`
	Content     string              `json:"content"`
	Sender      Sender              `json:"sender"`
	Attachments []AttachmentPayload `json:"attachments"`
	CreatedAt   time.Time           `json:"created_at"`
	ReplyStatus domain.ReplyStatus  `json:"reply_status"`
	TicketID    string              `json:"ticket_id"`
	SenderRole  domain.Role         `json:"sender_role"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Kind     domain.TicketKind     `json:"kind"`
	Title    string                `json:"title"`
	OrderID  *string               `json:"order_id,omitempty"`
	Priority domain.TicketPriority `json:"priority"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// AssignedPayload payload.
type AssignedPayload struct {
	AssigneeID string `json:"assignee_id"`
}

// DeletedPayload payload.
type DeletedPayload struct {
	PurgedAttachments int `json:"purged_attachments"`
}
