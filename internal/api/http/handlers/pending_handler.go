package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-portal/internal/api/dto"
	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/repository"
	"github.com/spec-kit/ticket-portal/internal/service"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// PendingHandler exposes failed-notification triage.
type PendingHandler struct {
	service *service.PendingService
}

// NewPendingHandler constructs handler.
func NewPendingHandler(pendingService *service.PendingService) *PendingHandler {
	return &PendingHandler{service: pendingService}
}

// List GET /admin/notifications/pending.
func (h *PendingHandler) List(c *fiber.Ctx) error {
	status := domain.PendingStatusPending
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		status = domain.PendingNotificationStatus(s)
	}
	filter := repository.PendingFilter{
		Status: &status,
		Limit:  parseInt(c.Query("limit"), 50),
		Offset: parseInt(c.Query("offset"), 0),
	}
	if ticketID := strings.TrimSpace(c.Query("ticketId")); ticketID != "" {
		filter.TicketID = &ticketID
	}
	items, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	out := make([]dto.PendingNotificationResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewPendingNotification(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Update PATCH /admin/notifications/:id.
func (h *PendingHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdatePendingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		req.Status = domain.PendingStatusProcessed
	}
	n, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPendingNotification(n)})
}
