package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/api/dto"
	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/mail"
	"github.com/spec-kit/ticket-portal/internal/service"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// NotificationsHandler serves the notification endpoints. Their errors use
// the {success:false, error, code} shape instead of the error envelope.
type NotificationsHandler struct {
	service *service.NotificationService
	logger  *zap.Logger
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService, logger *zap.Logger) *NotificationsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationsHandler{service: notificationService, logger: logger}
}

// Send POST /notifications/send.
func (h *NotificationsHandler) Send(c *fiber.Ctx) error {
	var req dto.SendNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return h.failure(c, apperrors.NewDomainError(string(mail.KindValidation), "invalid payload", http.StatusBadRequest, nil))
	}
	emailType := req.EmailType
	if emailType == "" {
		emailType = req.Type
	}
	res, err := h.service.Send(c.UserContext(), service.SendInput{
		TicketID:          req.TicketID,
		Email:             req.Email,
		CompanyName:       req.CompanyName,
		ContactPerson:     req.ContactPerson,
		Subject:           req.Subject,
		Country:           req.Country,
		Priority:          req.Priority,
		Description:       req.Description,
		EmailType:         domain.EmailType(emailType),
		OverrideRecipient: req.OverrideRecipient,
	})
	if err != nil {
		return h.failure(c, err)
	}
	return h.result(c, res)
}

// Resend POST /notifications/resend.
func (h *NotificationsHandler) Resend(c *fiber.Ctx) error {
	var req dto.ResendNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return h.failure(c, apperrors.NewDomainError(string(mail.KindValidation), "invalid payload", http.StatusBadRequest, nil))
	}
	res, err := h.service.Resend(c.UserContext(), req.TicketID, req.OverrideRecipient)
	if err != nil {
		return h.failure(c, err)
	}
	return h.result(c, res)
}

// Status GET /notifications/status?ticketId=.
func (h *NotificationsHandler) Status(c *fiber.Ctx) error {
	view, err := h.service.Status(c.UserContext(), c.Query("ticketId"))
	if err != nil {
		return h.failure(c, err)
	}
	return c.JSON(dto.EmailStatusResponse{
		TicketID:      view.TicketID,
		EmailStatus:   view.EmailStatus,
		LastEmailSent: view.LastEmailSent,
		History:       dto.NewEmailHistory(view.History),
		CanResend:     view.CanResend,
		MaxAttempts:   view.MaxAttempts,
	})
}

// Diagnostics GET /notifications/diagnostics.
func (h *NotificationsHandler) Diagnostics(c *fiber.Ctx) error {
	d := h.service.Diagnostics(c.UserContext())
	return c.JSON(dto.DiagnosticsResponse{
		Configured:  d.Configured,
		KeyValid:    d.KeyValid,
		Transport:   d.Transport,
		SenderEmail: d.SenderEmail,
		Detail:      d.Detail,
	})
}

func (h *NotificationsHandler) result(c *fiber.Ctx, res service.DispatchResult) error {
	if res.Success {
		return c.JSON(dto.NotificationResult{Success: true, MessageID: res.MessageID, Recipients: res.Recipients})
	}
	return c.Status(statusForKind(res.ErrorCode)).JSON(dto.NotificationFailure{
		Error: res.Error,
		Code:  string(res.ErrorCode),
	})
}

func (h *NotificationsHandler) failure(c *fiber.Ctx, err error) error {
	domainErr := apperrors.ToDomainError(err)
	body := dto.NotificationFailure{Error: domainErr.Message, Code: domainErr.Code}
	if domainErr.Code == apperrors.CodeResendLimitReached {
		canResend := false
		body.CanResend = &canResend
	}
	if domainErr.HTTPStatus >= http.StatusInternalServerError {
		h.logger.Error("notification request failed", zap.Error(domainErr))
	}
	return c.Status(domainErr.HTTPStatus).JSON(body)
}

func statusForKind(kind mail.ErrorKind) int {
	switch kind {
	case mail.KindConfig:
		return http.StatusServiceUnavailable
	case mail.KindRateLimit:
		return http.StatusTooManyRequests
	case mail.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
