package dto

import (
	"time"

	"github.com/atelier-boutique/support-service/internal/domain"
)

// AttachmentInput references an uploaded file on a request.
type AttachmentInput struct {
	URL  string                `json:"url"`
	Kind domain.AttachmentKind `json:"kind"`
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title        string                `json:"title"`
	Kind         domain.TicketKind     `json:"kind"`
	OrderID      *string               `json:"order_id"`
	Priority     domain.TicketPriority `json:"priority"`
	Measurements *domain.Measurements  `json:"measurements"`
	Preferences  *domain.Preferences   `json:"preferences"`
	Message      string                `json:"message"`
	Attachments  []AttachmentInput     `json:"attachments"`
}

// AppendMessageRequest payload.
type AppendMessageRequest struct {
	Content     string            `json:"content"`
	Attachments []AttachmentInput `json:"attachments"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AssignRequest payload.
type AssignRequest struct {
	StaffID string `json:"staff_id"`
}

// ArchiveRequest payload.
type ArchiveRequest struct {
	Archived bool `json:"archived"`
}

// AttachmentResponse mirrors a stored attachment.
type AttachmentResponse struct {
	ID   string                `json:"id"`
	URL  string                `json:"url"`
	Kind domain.AttachmentKind `json:"kind"`
}

// MessageResponse represents one thread entry.
type MessageResponse struct {
	ID          string               `json:"id"`
	SenderID    string               `json:"sender_id"`
	Content     string               `json:"content"`
	Attachments []AttachmentResponse `json:"attachments"`
	IsRead      bool                 `json:"is_read"`
	CreatedAt   time.Time            `json:"created_at"`
}

// AppendMessageResponse returns the persisted message plus the ticket's new
// reply status.
type AppendMessageResponse struct {
	Message     MessageResponse    `json:"message"`
	ReplyStatus domain.ReplyStatus `json:"reply_status"`
}

// TicketSummary response.
type TicketSummary struct {
	ID            string                `json:"id"`
	OwnerID       string                `json:"owner_id"`
	Title         string                `json:"title"`
	Kind          domain.TicketKind     `json:"kind"`
	OrderID       *string               `json:"order_id,omitempty"`
	Status        domain.TicketStatus   `json:"status"`
	ReplyStatus   domain.ReplyStatus    `json:"reply_status"`
	Priority      domain.TicketPriority `json:"priority"`
	AssignedTo    *string               `json:"assigned_to,omitempty"`
	Archived      bool                  `json:"archived"`
	LastMessageAt time.Time             `json:"last_message_at"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides the full aggregate.
type TicketDetailResponse struct {
	TicketSummary
	Measurements *domain.Measurements `json:"measurements,omitempty"`
	Preferences  *domain.Preferences  `json:"preferences,omitempty"`
	Messages     []MessageResponse    `json:"messages"`
}

// TicketHistoryResponse represents one audit entry.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	ChangedByID string                  `json:"changed_by_id"`
	OldValue    map[string]any          `json:"old_value,omitempty"`
	NewValue    map[string]any          `json:"new_value,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}
