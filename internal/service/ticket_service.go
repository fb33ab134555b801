package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atelier-boutique/support-service/internal/domain"
	"github.com/atelier-boutique/support-service/internal/events"
	"github.com/atelier-boutique/support-service/internal/observability"
	"github.com/atelier-boutique/support-service/internal/repository"
	"github.com/atelier-boutique/support-service/internal/storage"
	apperrors "github.com/atelier-boutique/support-service/pkg/util"
)

const designRequestSeedContent = "New design request opened"

// Caller is the validated identity acting on a ticket.
type Caller struct {
	ID   string
	Role domain.Role
}

// AttachmentInput references an already-uploaded file. The service never takes
// ownership of files for a request that fails validation; cleanup of those is
// the uploader's job.
type AttachmentInput struct {
	URL  string
	Kind domain.AttachmentKind
}

// CreateTicketInput describes ticket creation.
type CreateTicketInput struct {
	Title           string
	Kind            domain.TicketKind
	OrderID         *string
	Priority        domain.TicketPriority
	Measurements    *domain.Measurements
	Preferences     *domain.Preferences
	SeedContent     string
	SeedAttachments []AttachmentInput
}

// StaffFilter describes dashboard listing filters.
type StaffFilter struct {
	Kinds           []domain.TicketKind
	Statuses        []domain.TicketStatus
	ReplyStatuses   []domain.ReplyStatus
	AssigneeID      *string
	IncludeArchived bool
	Limit           int
	Offset          int
}

// TicketService coordinates ticket workflows: persistence first, then the
// live broadcast, never the other way around.
type TicketService struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	history     repository.TicketHistoryRepository
	dispatcher  events.Dispatcher
	attachments storage.AttachmentStore
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo      repository.TicketRepository
	UserRepo        repository.UserRepository
	HistoryRepo     repository.TicketHistoryRepository
	Dispatcher      events.Dispatcher
	AttachmentStore storage.AttachmentStore
	Logger          *zap.Logger
	Metrics         *observability.Metrics
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		history:     deps.HistoryRepo,
		dispatcher:  deps.Dispatcher,
		attachments: deps.AttachmentStore,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// Create opens a ticket with its seed message. The caller becomes the owner,
// whatever their role. Creation never broadcasts: nobody is subscribed to a
// brand-new ticket's room yet.
func (s *TicketService) Create(ctx context.Context, caller Caller, input CreateTicketInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if !input.Kind.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket kind", map[string]any{"kind": input.Kind})
	}
	if input.OrderID != nil && input.Kind != domain.KindOrder {
		return nil, apperrors.NewValidationError("linked order only allowed on order tickets", nil)
	}

	seedContent, err := seedContentFor(input.Kind, input.SeedContent, input.OrderID)
	if err != nil {
		return nil, err
	}
	seedAttachments, err := buildAttachments(input.SeedAttachments)
	if err != nil {
		return nil, err
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	ticket := &domain.Ticket{
		OwnerID:      caller.ID,
		Title:        title,
		Kind:         input.Kind,
		OrderID:      input.OrderID,
		Status:       domain.StatusPending,
		ReplyStatus:  domain.WaitingSupport,
		Priority:     priority,
		Measurements: input.Measurements,
		Preferences:  input.Preferences,
	}
	seed := &domain.Message{
		SenderID:    caller.ID,
		Content:     seedContent,
		Attachments: seedAttachments,
	}

	if err := s.tickets.Create(ctx, ticket, seed); err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		ActorID:   caller.ID,
		ActorRole: caller.Role,
		Payload: events.TicketCreatedPayload{
			Kind:     ticket.Kind,
			Title:    ticket.Title,
			OrderID:  ticket.OrderID,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// AppendMessage validates, persists and then broadcasts one message. The
// reply-status transition is driven by the appending caller's asserted role,
// not a re-read of history.
func (s *TicketService) AppendMessage(ctx context.Context, caller Caller, ticketID, content string, attachments []AttachmentInput) (*domain.Message, domain.ReplyStatus, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, "", apperrors.NewValidationError("message content required", nil)
	}
	atts, err := buildAttachments(attachments)
	if err != nil {
		return nil, "", err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, "", notFoundOrStorage(err, "ticket")
	}
	if !ticket.CanPost(caller.ID, caller.Role) {
		return nil, "", apperrors.NewForbidden("only the ticket owner or staff may post")
	}

	replyStatus := domain.ReplyStatusAfter(caller.Role)
	msg := &domain.Message{
		SenderID:    caller.ID,
		Content:     content,
		Attachments: atts,
	}
	if err := s.tickets.AppendMessage(ctx, ticket.ID, msg, replyStatus); err != nil {
		return nil, "", notFoundOrStorage(err, "ticket")
	}

	// Re-read so the broadcast carries the message exactly as stored.
	stored, err := s.tickets.GetMessage(ctx, ticket.ID, msg.ID)
	if err != nil {
		s.logger.Warn("failed to re-read appended message; broadcasting in-memory copy",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		stored = msg
	}

	if s.metrics != nil {
		s.metrics.MessagesAppended.Inc()
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketMessageAdded,
		TicketID:  ticket.ID,
		ActorID:   caller.ID,
		ActorRole: caller.Role,
		Payload:   s.messagePayload(ctx, ticket.ID, stored, caller, replyStatus),
	})
	return stored, replyStatus, nil
}

// UpdateStatus moves a ticket along its resolution lifecycle. Staff only.
// Reply status is a separate axis and stays untouched.
func (s *TicketService) UpdateStatus(ctx context.Context, caller Caller, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !caller.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": status})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOrStorage(err, "ticket")
	}
	oldStatus := ticket.Status
	if err := s.tickets.UpdateStatus(ctx, ticket.ID, status); err != nil {
		return nil, notFoundOrStorage(err, "ticket")
	}
	ticket.Status = status

	s.recordHistory(ctx, caller.ID, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": status},
	)
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketStatusChanged,
		TicketID:  ticket.ID,
		ActorID:   caller.ID,
		ActorRole: caller.Role,
		Payload: events.StatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: status,
		},
	})
	return ticket, nil
}

// Assign hands a ticket to a staff member. Staff only; not part of the live
// chat protocol, so no room broadcast.
func (s *TicketService) Assign(ctx context.Context, caller Caller, ticketID, staffID string) (*domain.Ticket, error) {
	if !caller.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}

	assignee, err := s.users.GetByID(ctx, staffID)
	if err != nil {
		return nil, notFoundOrStorage(err, "staff member")
	}
	if !assignee.Role.IsStaff() {
		return nil, apperrors.NewValidationError("assignee must hold a staff role", map[string]any{"user_id": staffID})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOrStorage(err, "ticket")
	}
	oldAssignee := ticket.AssignedTo
	if err := s.tickets.AssignStaff(ctx, ticket.ID, staffID); err != nil {
		return nil, notFoundOrStorage(err, "ticket")
	}
	ticket.AssignedTo = &staffID

	s.recordHistory(ctx, caller.ID, ticket.ID, domain.ChangeTypeAssignee,
		map[string]any{"assignee": oldAssignee},
		map[string]any{"assignee": staffID},
	)
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketAssigned,
		TicketID:  ticket.ID,
		ActorID:   caller.ID,
		ActorRole: caller.Role,
		Payload:   events.AssignedPayload{AssigneeID: staffID},
	})
	return ticket, nil
}

// Archive toggles the archived flag. Staff only.
func (s *TicketService) Archive(ctx context.Context, caller Caller, ticketID string, archived bool) error {
	if !caller.Role.IsStaff() {
		return apperrors.NewForbidden("staff role required")
	}
	if err := s.tickets.SetArchived(ctx, ticketID, archived); err != nil {
		return notFoundOrStorage(err, "ticket")
	}
	s.recordHistory(ctx, caller.ID, ticketID, domain.ChangeTypeArchive,
		map[string]any{"archived": !archived},
		map[string]any{"archived": archived},
	)
	return nil
}

// Delete purges a ticket and every attachment file its messages referenced.
// Staff only. File removal is best-effort per file.
func (s *TicketService) Delete(ctx context.Context, caller Caller, ticketID string) error {
	if !caller.Role.IsStaff() {
		return apperrors.NewForbidden("staff role required")
	}

	urls, err := s.tickets.Delete(ctx, ticketID)
	if err != nil {
		return notFoundOrStorage(err, "ticket")
	}

	purged := 0
	for _, url := range urls {
		if err := s.attachments.Remove(url); err != nil {
			s.logger.Warn("failed to remove attachment file",
				zap.String("url", url), zap.Error(err))
			continue
		}
		purged++
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketDeleted,
		TicketID:  ticketID,
		ActorID:   caller.ID,
		ActorRole: caller.Role,
		Payload:   events.DeletedPayload{PurgedAttachments: purged},
	})
	return nil
}

// RemoveAttachment deletes one attachment from one message, row and file.
// Allowed for staff and the ticket owner.
func (s *TicketService) RemoveAttachment(ctx context.Context, caller Caller, ticketID, messageID, attachmentID string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return notFoundOrStorage(err, "ticket")
	}
	if !ticket.CanPost(caller.ID, caller.Role) {
		return apperrors.NewForbidden("only the ticket owner or staff may remove attachments")
	}

	url, err := s.tickets.RemoveAttachment(ctx, ticket.ID, messageID, attachmentID)
	if err != nil {
		return notFoundOrStorage(err, "attachment")
	}
	if err := s.attachments.Remove(url); err != nil {
		s.logger.Warn("failed to remove attachment file",
			zap.String("url", url), zap.Error(err))
	}
	return nil
}

// GetForCaller fetches the full aggregate, enforcing owner-or-staff access.
func (s *TicketService) GetForCaller(ctx context.Context, caller Caller, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOrStorage(err, "ticket")
	}
	if !ticket.CanPost(caller.ID, caller.Role) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// ListForOwner returns a customer's own tickets.
func (s *TicketService) ListForOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		OwnerID: &ownerID,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return tickets, nil
}

// ListForStaff returns the dashboard listing, tickets waiting on support
// first. Staff only.
func (s *TicketService) ListForStaff(ctx context.Context, caller Caller, filter StaffFilter) ([]domain.Ticket, error) {
	if !caller.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		AssigneeID:      filter.AssigneeID,
		Kinds:           filter.Kinds,
		Statuses:        filter.Statuses,
		ReplyStatuses:   filter.ReplyStatuses,
		IncludeArchived: filter.IncludeArchived,
		Limit:           filter.Limit,
		Offset:          filter.Offset,
	})
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return tickets, nil
}

// ListHistory returns the audit trail for a ticket. Staff only.
func (s *TicketService) ListHistory(ctx context.Context, caller Caller, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if !caller.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return entries, nil
}

func (s *TicketService) messagePayload(ctx context.Context, ticketID string, msg *domain.Message, caller Caller, replyStatus domain.ReplyStatus) events.MessageAddedPayload {
	sender := events.Sender{ID: caller.ID, Role: caller.Role}
	if user, err := s.users.GetByID(ctx, caller.ID); err == nil {
		sender.Username = user.Username
		sender.Role = user.Role
	} else {
		s.logger.Warn("could not resolve sender for broadcast",
			zap.String("user_id", caller.ID), zap.Error(err))
	}

	atts := make([]events.AttachmentPayload, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		atts = append(atts, events.AttachmentPayload{URL: att.URL, Kind: att.Kind})
	}
	return events.MessageAddedPayload{
		MessageID:   msg.ID,
		Content:     msg.Content,
		Sender:      sender,
		Attachments: atts,
		CreatedAt:   msg.CreatedAt,
		ReplyStatus: replyStatus,
		TicketID:    ticketID,
		SenderRole:  caller.Role,
	}
}

func (s *TicketService) recordHistory(ctx context.Context, actorID, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: actorID,
		ChangeType:  changeType,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record ticket history",
			zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func seedContentFor(kind domain.TicketKind, content string, orderID *string) (string, error) {
	content = strings.TrimSpace(content)
	if content != "" {
		return content, nil
	}
	switch kind {
	case domain.KindDesignRequest:
		return designRequestSeedContent, nil
	case domain.KindOrder:
		if orderID != nil {
			return fmt.Sprintf("Order %s placed", *orderID), nil
		}
		return "Order placed", nil
	default:
		return "", apperrors.NewValidationError("initial message content required", map[string]any{"kind": kind})
	}
}

func buildAttachments(inputs []AttachmentInput) ([]domain.Attachment, error) {
	atts := make([]domain.Attachment, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input.URL) == "" {
			return nil, apperrors.NewValidationError("attachment url required", nil)
		}
		kind := input.Kind
		if kind == "" {
			kind = domain.AttachmentImage
		}
		if !kind.Valid() {
			return nil, apperrors.NewValidationError("unsupported attachment kind", map[string]any{"kind": input.Kind})
		}
		atts = append(atts, domain.Attachment{URL: input.URL, Kind: kind})
	}
	return atts, nil
}

func notFoundOrStorage(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, nil)
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewStorageError(err)
}
