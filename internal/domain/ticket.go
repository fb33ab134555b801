package domain

import "time"

// TicketKind classifies what a conversation is about.
type TicketKind string

const (
	KindDesignRequest TicketKind = "design_request"
	KindSupport       TicketKind = "support"
	KindComplaint     TicketKind = "complaint"
	KindOrder         TicketKind = "order"
)

// Valid reports whether the kind is a known value.
func (k TicketKind) Valid() bool {
	switch k {
	case KindDesignRequest, KindSupport, KindComplaint, KindOrder:
		return true
	}
	return false
}

// TicketStatus is the resolution lifecycle of a ticket.
type TicketStatus string

const (
	StatusPending    TicketStatus = "pending"
	StatusInProgress TicketStatus = "in_progress"
	StatusCompleted  TicketStatus = "completed"
	StatusClosed     TicketStatus = "closed"
)

// Valid reports whether the status is a known value.
func (s TicketStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusClosed:
		return true
	}
	return false
}

// ReplyStatus tracks whose turn it is to respond. It is independent of
// TicketStatus and flips on every append based on the sender's role.
type ReplyStatus string

const (
	WaitingSupport  ReplyStatus = "waiting_support"
	WaitingCustomer ReplyStatus = "waiting_customer"
)

// ReplyStatusAfter returns the reply status a ticket takes once a caller with
// the given role has appended a message. This is the only place the rule lives.
func ReplyStatusAfter(senderRole Role) ReplyStatus {
	if senderRole.IsStaff() {
		return WaitingCustomer
	}
	return WaitingSupport
}

// TicketPriority is informational only.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
)

// Measurements holds design-request sizing fields. Opaque to the messaging
// core; persisted and returned verbatim.
type Measurements struct {
	Bust      *float64 `json:"bust,omitempty"`
	Waist     *float64 `json:"waist,omitempty"`
	Hips      *float64 `json:"hips,omitempty"`
	Length    *float64 `json:"length,omitempty"`
	Sleeves   *float64 `json:"sleeves,omitempty"`
	Shoulders *float64 `json:"shoulders,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// Preferences holds design-request styling fields, opaque like Measurements.
type Preferences struct {
	Color  string `json:"color,omitempty"`
	Style  string `json:"style,omitempty"`
	Fabric string `json:"fabric,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// Ticket is the aggregate root for a support/design conversation. Messages are
// loaded with the ticket in one fetch; they have no lifecycle of their own.
type Ticket struct {
	ID            string
	OwnerID       string
	Title         string
	Kind          TicketKind
	OrderID       *string
	Status        TicketStatus
	ReplyStatus   ReplyStatus
	Priority      TicketPriority
	Messages      []Message
	LastMessageAt time.Time
	AssignedTo    *string
	Measurements  *Measurements
	Preferences   *Preferences
	Archived      bool
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanPost reports whether the caller may append messages to this ticket:
// the owner or any staff member.
func (t *Ticket) CanPost(callerID string, role Role) bool {
	return role.IsStaff() || t.OwnerID == callerID
}

// LatestMessage returns the newest message, or nil when the thread is empty.
func (t *Ticket) LatestMessage() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[len(t.Messages)-1]
}
