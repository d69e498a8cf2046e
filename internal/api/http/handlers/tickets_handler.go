package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-tracker/internal/api/dto"
	"github.com/spec-kit/incident-tracker/internal/clock"
	"github.com/spec-kit/incident-tracker/internal/domain"
	"github.com/spec-kit/incident-tracker/internal/service"
	apperrors "github.com/spec-kit/incident-tracker/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
	clock   clock.Clock
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, clk clock.Clock) *TicketsHandler {
	if clk == nil {
		clk = clock.Real()
	}
	return &TicketsHandler{service: ticketService, clock: clk}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateCreate(req); err != nil {
		return err
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
		ReportedBy:  req.ReportedBy,
		Category:    req.Category,
		Tags:        req.Tags,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket, h.clock.Now())})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets, h.clock.Now())})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicketByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket, h.clock.Now())})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateUpdate(req); err != nil {
		return err
	}

	patch := service.TicketPatch{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
		ReportedBy:  req.ReportedBy,
		Category:    req.Category,
	}
	if req.Tags != nil {
		patch.Tags = append([]string{}, *req.Tags...)
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket, h.clock.Now())})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	removed, err := h.service.DeleteTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapServiceError(err)
	}
	if !removed {
		return mapServiceError(service.ErrTicketNotFound)
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Author) == "" || strings.TrimSpace(req.Content) == "" {
		return apperrors.NewValidationError("author and content required", nil)
	}
	comment, err := h.service.AddComment(c.UserContext(), c.Params("id"), service.CommentInput{
		Author:   req.Author,
		Content:  req.Content,
		Internal: req.Internal,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// Stats GET /tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.GetTicketStats(c.UserContext())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketStatsResponse(stats)})
}

// RunEscalations POST /tickets/escalations triggers an SLA scan.
func (h *TicketsHandler) RunEscalations(c *fiber.Ctx) error {
	escalated, err := h.service.CheckForEscalations(c.UserContext())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(escalated, h.clock.Now())})
}

func validateCreate(req dto.CreateTicketRequest) error {
	details := map[string]any{}
	if strings.TrimSpace(req.Title) == "" {
		details["title"] = "required"
	}
	if strings.TrimSpace(req.Description) == "" {
		details["description"] = "required"
	}
	if strings.TrimSpace(req.ReportedBy) == "" {
		details["reported_by"] = "required"
	}
	if req.Priority != "" && !req.Priority.Valid() {
		details["priority"] = "must be one of P1, P2, P3, P4"
	}
	if req.Status != "" && !req.Status.Valid() {
		details["status"] = "unknown status"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket", details)
	}
	return nil
}

func validateUpdate(req dto.UpdateTicketRequest) error {
	details := map[string]any{}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		details["title"] = "must not be empty"
	}
	if req.Description != nil && strings.TrimSpace(*req.Description) == "" {
		details["description"] = "must not be empty"
	}
	if req.ReportedBy != nil && strings.TrimSpace(*req.ReportedBy) == "" {
		details["reported_by"] = "must not be empty"
	}
	if req.Priority != nil && !req.Priority.Valid() {
		details["priority"] = "must be one of P1, P2, P3, P4"
	}
	if req.Status != nil && !req.Status.Valid() {
		details["status"] = "unknown status"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket update", details)
	}
	return nil
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketFilter, error) {
	filter := service.TicketFilter{
		Search: c.Query("q"),
		SortBy: service.TicketSortField(c.Query("sort")),
		Order:  service.SortOrder(strings.ToLower(c.Query("order"))),
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.TicketStatus(strings.TrimSpace(part))
			if !status.Valid() {
				return filter, apperrors.NewValidationError("unknown status filter", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			priority := domain.TicketPriority(strings.ToUpper(strings.TrimSpace(part)))
			if !priority.Valid() {
				return filter, apperrors.NewValidationError("unknown priority filter", map[string]any{"priority": part})
			}
			filter.Priorities = append(filter.Priorities, priority)
		}
	}
	if err := filter.Validate(); err != nil {
		return filter, apperrors.NewValidationError(err.Error(), nil)
	}
	return filter, nil
}

// mapServiceError turns service sentinels into API errors. Anything else
// a service returns comes from the storage layer.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrTicketNotFound):
		return apperrors.NewNotFound("ticket", nil)
	case errors.Is(err, service.ErrNotificationNotFound):
		return apperrors.NewNotFound("notification", nil)
	default:
		return apperrors.NewStorageFailure(err)
	}
}
