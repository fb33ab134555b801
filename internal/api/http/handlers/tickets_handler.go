package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/atelier-boutique/support-service/internal/api/dto"
	"github.com/atelier-boutique/support-service/internal/auth"
	"github.com/atelier-boutique/support-service/internal/domain"
	"github.com/atelier-boutique/support-service/internal/service"
	apperrors "github.com/atelier-boutique/support-service/pkg/util"
)

// TicketsHandler manages customer-facing ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	kind := req.Kind
	if kind == "" {
		kind = domain.KindDesignRequest
	}
	ticket, err := h.service.Create(c.UserContext(), callerFrom(ident), service.CreateTicketInput{
		Title:           req.Title,
		Kind:            kind,
		OrderID:         req.OrderID,
		Priority:        req.Priority,
		Measurements:    req.Measurements,
		Preferences:     req.Preferences,
		SeedContent:     req.Message,
		SeedAttachments: attachmentInputs(req.Attachments),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// List GET /tickets — the caller's own tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	limit, offset := pagination(c)
	tickets, err := h.service.ListForOwner(c.UserContext(), ident.UserID, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tickets/:id — full thread in one aggregate fetch.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.GetForCaller(c.UserContext(), callerFrom(ident), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// AppendMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AppendMessage(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AppendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	msg, replyStatus, err := h.service.AppendMessage(
		c.UserContext(), callerFrom(ident), c.Params("id"), req.Content, attachmentInputs(req.Attachments))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AppendMessageResponse{
		Message:     messageResponse(msg),
		ReplyStatus: replyStatus,
	}})
}

// RemoveAttachment DELETE /tickets/:id/messages/:messageId/attachments/:attachmentId.
func (h *TicketsHandler) RemoveAttachment(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	err := h.service.RemoveAttachment(c.UserContext(), callerFrom(ident),
		c.Params("id"), c.Params("messageId"), c.Params("attachmentId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"removed": true}})
}

func callerFrom(ident auth.Identity) service.Caller {
	return service.Caller{ID: ident.UserID, Role: ident.Role}
}

func attachmentInputs(inputs []dto.AttachmentInput) []service.AttachmentInput {
	atts := make([]service.AttachmentInput, 0, len(inputs))
	for _, input := range inputs {
		atts = append(atts, service.AttachmentInput{URL: input.URL, Kind: input.Kind})
	}
	return atts
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	return pageSize, (page - 1) * pageSize
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:            ticket.ID,
		OwnerID:       ticket.OwnerID,
		Title:         ticket.Title,
		Kind:          ticket.Kind,
		OrderID:       ticket.OrderID,
		Status:        ticket.Status,
		ReplyStatus:   ticket.ReplyStatus,
		Priority:      ticket.Priority,
		AssignedTo:    ticket.AssignedTo,
		Archived:      ticket.Archived,
		LastMessageAt: ticket.LastMessageAt,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	msgs := make([]dto.MessageResponse, 0, len(ticket.Messages))
	for i := range ticket.Messages {
		msgs = append(msgs, messageResponse(&ticket.Messages[i]))
	}
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(ticket),
		Measurements:  ticket.Measurements,
		Preferences:   ticket.Preferences,
		Messages:      msgs,
	}
}

func messageResponse(msg *domain.Message) dto.MessageResponse {
	atts := make([]dto.AttachmentResponse, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		atts = append(atts, dto.AttachmentResponse{ID: att.ID, URL: att.URL, Kind: att.Kind})
	}
	return dto.MessageResponse{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		Content:     msg.Content,
		Attachments: atts,
		IsRead:      msg.IsRead,
		CreatedAt:   msg.CreatedAt,
	}
}
