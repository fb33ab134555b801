package domain

import "time"

// AttachmentKind tags what an attachment URL points at.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Valid reports whether the kind is a known value.
func (k AttachmentKind) Valid() bool {
	return k == AttachmentImage || k == AttachmentFile
}

// Attachment is a reference to an already-uploaded file. The service never
// reads the bytes; upload handling hands it a durable URL.
type Attachment struct {
	ID        string
	MessageID string
	URL       string
	Kind      AttachmentKind
	CreatedAt time.Time
}

// Message is one entry in a ticket thread. Born and deleted with its parent
// ticket; the sender's role is resolved from the account at read time, not
// frozen into the row.
type Message struct {
	ID          string
	TicketID    string
	SenderID    string
	Content     string
	Attachments []Attachment
	IsRead      bool
	CreatedAt   time.Time
}
