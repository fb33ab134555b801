package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/atelier-boutique/support-service/internal/api/dto"
	"github.com/atelier-boutique/support-service/internal/auth"
	"github.com/atelier-boutique/support-service/internal/domain"
	"github.com/atelier-boutique/support-service/internal/service"
	apperrors "github.com/atelier-boutique/support-service/pkg/util"
)

// StaffTicketsHandler manages the support dashboard endpoints. Routes are
// guarded by RequireStaff; the service re-checks the role anyway.
type StaffTicketsHandler struct {
	service *service.TicketService
}

// NewStaffTicketsHandler constructs the handler.
func NewStaffTicketsHandler(ticketService *service.TicketService) *StaffTicketsHandler {
	return &StaffTicketsHandler{service: ticketService}
}

// List GET /staff/tickets — tickets waiting on support first.
func (h *StaffTicketsHandler) List(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseStaffFilter(c)
	tickets, err := h.service.ListForStaff(c.UserContext(), callerFrom(ident), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateStatus PUT /staff/tickets/:id/status.
func (h *StaffTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), callerFrom(ident), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Assign PUT /staff/tickets/:id/assign.
func (h *StaffTicketsHandler) Assign(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.StaffID == "" {
		return apperrors.NewValidationError("staff_id required", nil)
	}
	ticket, err := h.service.Assign(c.UserContext(), callerFrom(ident), c.Params("id"), req.StaffID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Archive PUT /staff/tickets/:id/archive.
func (h *StaffTicketsHandler) Archive(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ArchiveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.Archive(c.UserContext(), callerFrom(ident), c.Params("id"), req.Archived); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"archived": req.Archived}})
}

// Delete DELETE /staff/tickets/:id — purges the ticket and its files.
func (h *StaffTicketsHandler) Delete(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.UserContext(), callerFrom(ident), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// History GET /staff/tickets/:id/history.
func (h *StaffTicketsHandler) History(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	limit, offset := pagination(c)
	entries, err := h.service.ListHistory(c.UserContext(), callerFrom(ident), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.TicketHistoryResponse{
			ID:          entry.ID,
			ChangeType:  entry.ChangeType,
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseStaffFilter(c *fiber.Ctx) service.StaffFilter {
	filter := service.StaffFilter{}
	if kinds := c.Query("kind"); kinds != "" {
		for _, part := range strings.Split(kinds, ",") {
			filter.Kinds = append(filter.Kinds, domain.TicketKind(strings.TrimSpace(part)))
		}
	}
	if statuses := c.Query("status"); statuses != "" {
		for _, part := range strings.Split(statuses, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if replyStatuses := c.Query("reply_status"); replyStatuses != "" {
		for _, part := range strings.Split(replyStatuses, ",") {
			filter.ReplyStatuses = append(filter.ReplyStatuses, domain.ReplyStatus(strings.TrimSpace(part)))
		}
	}
	if assignee := c.Query("assignee"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	filter.IncludeArchived = c.Query("include_archived") == "true"
	filter.Limit, filter.Offset = pagination(c)
	return filter
}
