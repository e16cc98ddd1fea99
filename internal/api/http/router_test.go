package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticket-portal/internal/api/http/handlers"
	"github.com/spec-kit/ticket-portal/internal/auth"
	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/internal/events"
	"github.com/spec-kit/ticket-portal/internal/lock"
	"github.com/spec-kit/ticket-portal/internal/mail"
	"github.com/spec-kit/ticket-portal/internal/observability"
	"github.com/spec-kit/ticket-portal/internal/repository/memory"
	"github.com/spec-kit/ticket-portal/internal/service"
)

type stubTransport struct {
	err error
}

func (s *stubTransport) Send(context.Context, mail.Message) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "<stub@test>", nil
}

func (s *stubTransport) Check(context.Context) mail.CheckResult {
	return mail.CheckResult{Configured: true, KeyValid: true}
}

func (s *stubTransport) Name() string { return "stub" }

type testServer struct {
	app       *fiber.App
	transport *stubTransport
	tokens    *auth.TokenManager
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memory.NewStore(memory.NewDB())
	bus := events.NewInMemoryDispatcher(logger)
	transport := &stubTransport{}

	emailCfg := config.EmailConfig{SenderEmail: "noreply@inoksan.com", SenderName: "Inoksan Support", ReplyTo: "support@inoksan.com", SendTimeout: time.Second}
	routingCfg := config.RoutingConfig{ForwardingEmail: "support@inoksan.com", InternationalManager: "regional.intl@inoksan.com"}
	notifyCfg := config.NotificationConfig{MaxAttempts: 3, PendingMaxAttempts: 3}

	resolver := service.NewRoutingResolver(store.Settings, store.CountryManagers, routingCfg, emailCfg.ReplyTo, logger)
	dispatcher := service.NewNotificationDispatcher(service.DispatcherDependencies{
		Tickets: store.Tickets, Transport: transport, Events: bus, Email: emailCfg, BaseURL: "http://localhost:3000", Logger: logger,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: store.Tickets, PendingRepo: store.Pending, Resolver: resolver, Dispatcher: dispatcher, Events: bus, Config: notifyCfg, Logger: logger,
	})
	notifications := service.NewNotificationService(service.NotificationDependencies{
		TicketRepo: store.Tickets, PendingRepo: store.Pending, Resolver: resolver, Dispatcher: dispatcher,
		Locker: lock.NewLocal(), Transport: transport, Events: bus, Metrics: metrics, Config: notifyCfg, Email: emailCfg, Logger: logger,
	})
	notifications.RegisterHandlers()

	tokens := auth.NewTokenManager("test-secret", 30)
	authService, err := service.NewAuthService(config.AuthConfig{
		AdminEmail: "admin@example.com", AdminPassword: "letmein", BcryptCost: bcrypt.MinCost,
	}, tokens)
	require.NoError(t, err)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{Timeout: 5 * time.Second, CORSOrigins: "*"})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("ticket-portal", "test", map[string]handlers.Pinger{"store": store.Ping}),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Notifications:  handlers.NewNotificationsHandler(notifications, logger),
		Settings:       handlers.NewSettingsHandler(service.NewSettingsService(store, routingCfg, logger)),
		Pending:        handlers.NewPendingHandler(service.NewPendingService(store.Pending)),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics.Handler(),
		RateLimit:      SubmissionLimiter(rateLimit),
	})
	return &testServer{app: app, transport: transport, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	status, body := s.do(t, nethttp.MethodPost, "/auth/admin/login", map[string]string{"email": "admin@example.com", "password": "letmein"}, "")
	require.Equal(t, nethttp.StatusOK, status)
	return body["token"].(string)
}

func ticketPayload() map[string]any {
	return map[string]any{
		"companyName":   "Acme",
		"contactPerson": "Jane Doe",
		"email":         "jane@acme.com",
		"country":       "Turkey",
		"subject":       "Oven stopped",
		"description":   "No heat",
		"priority":      "Critical",
	}
}

func TestCreateTicketEndpoint(t *testing.T) {
	s := newTestServer(t, 0)
	year := time.Now().UTC().Format("2006")

	status, body := s.do(t, nethttp.MethodPost, "/tickets", ticketPayload(), "")
	assert.Equal(t, nethttp.StatusCreated, status)
	assert.Equal(t, "TKT-"+year+"-0001", body["ticketId"])
	assert.Equal(t, "sent", body["emailStatus"])
	assert.NotContains(t, body, "emailWarning")
}

func TestCreateTicketWithFailedEmailReturnsWarning(t *testing.T) {
	s := newTestServer(t, 0)
	s.transport.err = mail.NewError(mail.KindConfig, "missing api key", nil)

	status, body := s.do(t, nethttp.MethodPost, "/tickets", ticketPayload(), "")
	assert.Equal(t, nethttp.StatusCreated, status)
	assert.Equal(t, "failed", body["emailStatus"])
	assert.Equal(t, "Email service is temporarily unavailable. Your ticket has been saved successfully.", body["emailWarning"])
}

func TestCreateTicketValidationEnvelope(t *testing.T) {
	s := newTestServer(t, 0)
	payload := ticketPayload()
	delete(payload, "email")

	status, body := s.do(t, nethttp.MethodPost, "/tickets", payload, "")
	assert.Equal(t, nethttp.StatusBadRequest, status)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_FAILED", errBody["code"])
	assert.Equal(t, "required", errBody["details"].(map[string]any)["email"])
}

func TestNotificationStatusAndResendCeiling(t *testing.T) {
	s := newTestServer(t, 0)
	_, created := s.do(t, nethttp.MethodPost, "/tickets", ticketPayload(), "")
	id := created["ticketId"].(string)

	status, body := s.do(t, nethttp.MethodGet, "/notifications/status?ticketId="+id, nil, "")
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, true, body["canResend"])
	assert.Len(t, body["history"], 1)

	for i := 0; i < 2; i++ {
		status, body = s.do(t, nethttp.MethodPost, "/notifications/resend", map[string]string{"ticketId": id}, "")
		assert.Equal(t, nethttp.StatusOK, status)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "<stub@test>", body["messageId"])
	}

	status, body = s.do(t, nethttp.MethodPost, "/notifications/resend", map[string]string{"ticketId": id}, "")
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "RESEND_LIMIT_EXCEEDED", body["code"])
	assert.Equal(t, false, body["canResend"])

	_, body = s.do(t, nethttp.MethodGet, "/notifications/status?ticketId="+id, nil, "")
	assert.Equal(t, false, body["canResend"])
	assert.Len(t, body["history"], 3)
}

func TestNotificationSendValidationShape(t *testing.T) {
	s := newTestServer(t, 0)
	status, body := s.do(t, nethttp.MethodPost, "/notifications/send", map[string]string{"ticketId": "TKT-2025-0001"}, "")
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestNotificationSendTransportFailure(t *testing.T) {
	s := newTestServer(t, 0)
	_, created := s.do(t, nethttp.MethodPost, "/tickets", ticketPayload(), "")
	s.transport.err = mail.NewError(mail.KindRateLimit, "slow down", nil)

	status, body := s.do(t, nethttp.MethodPost, "/notifications/send", map[string]string{
		"ticketId": created["ticketId"].(string), "email": "jane@acme.com", "companyName": "Acme", "contactPerson": "Jane", "subject": "Oven stopped",
	}, "")
	assert.Equal(t, nethttp.StatusTooManyRequests, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "RATE_LIMIT_ERROR", body["code"])
}

func TestNotificationSendHonoursEmailType(t *testing.T) {
	s := newTestServer(t, 0)
	_, created := s.do(t, nethttp.MethodPost, "/tickets", ticketPayload(), "")
	id := created["ticketId"].(string)

	status, body := s.do(t, nethttp.MethodPost, "/notifications/send", map[string]string{
		"ticketId": id, "email": "jane@acme.com", "companyName": "Acme", "contactPerson": "Jane Doe", "subject": "Oven stopped",
		"emailType": "admin_notification",
	}, "")
	require.Equal(t, nethttp.StatusOK, status)
	recipients := body["recipients"].([]any)
	require.NotEmpty(t, recipients)
	assert.Equal(t, "support@inoksan.com", recipients[0])

	status, body = s.do(t, nethttp.MethodPost, "/notifications/send", map[string]string{
		"ticketId": id, "email": "jane@acme.com", "companyName": "Acme", "contactPerson": "Jane Doe", "subject": "Oven stopped",
		"type": "regional_notification",
	}, "")
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "support@inoksan.com", body["recipients"].([]any)[0])

	_, body = s.do(t, nethttp.MethodGet, "/notifications/status?ticketId="+id, nil, "")
	history := body["history"].([]any)
	require.Len(t, history, 3)
	assert.Equal(t, "support@inoksan.com", history[1].(map[string]any)["recipients"].([]any)[0])
}

func TestNotificationResendRejectsMalformedOverride(t *testing.T) {
	s := newTestServer(t, 0)
	_, created := s.do(t, nethttp.MethodPost, "/tickets", ticketPayload(), "")
	id := created["ticketId"].(string)

	status, body := s.do(t, nethttp.MethodPost, "/notifications/resend", map[string]string{"ticketId": id, "overrideRecipient": "not-an-address"}, "")
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	_, body = s.do(t, nethttp.MethodGet, "/notifications/status?ticketId="+id, nil, "")
	assert.Len(t, body["history"], 1)
}

func TestDiagnosticsEndpoint(t *testing.T) {
	s := newTestServer(t, 0)
	status, body := s.do(t, nethttp.MethodGet, "/notifications/diagnostics", nil, "")
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, true, body["configured"])
	assert.Equal(t, "stub", body["transport"])
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, 0)
	status, body := s.do(t, nethttp.MethodGet, "/admin/tickets", nil, "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])

	viewer, _, err := s.tokens.GenerateToken("viewer@example.com", "viewer")
	require.NoError(t, err)
	status, body = s.do(t, nethttp.MethodGet, "/admin/tickets", nil, viewer)
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["error"].(map[string]any)["code"])

	status, _ = s.do(t, nethttp.MethodPost, "/auth/admin/login", map[string]string{"email": "admin@example.com", "password": "nope"}, "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)
}

func TestAdminTicketWorkflow(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.adminToken(t)
	_, created := s.do(t, nethttp.MethodPost, "/tickets", ticketPayload(), "")
	id := created["ticketId"].(string)

	status, body := s.do(t, nethttp.MethodGet, "/admin/tickets?country=turkey", nil, token)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = s.do(t, nethttp.MethodPatch, "/admin/tickets/"+id+"/status", map[string]string{"status": "Resolved"}, token)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "Resolved", body["data"].(map[string]any)["status"])

	status, body = s.do(t, nethttp.MethodGet, "/admin/tickets/"+id, nil, token)
	assert.Equal(t, nethttp.StatusOK, status)
	detail := body["data"].(map[string]any)
	assert.Equal(t, id, detail["ticketId"])
	assert.Len(t, detail["emailHistory"], 1)

	status, _ = s.do(t, nethttp.MethodGet, "/admin/tickets/TKT-1999-0001", nil, token)
	assert.Equal(t, nethttp.StatusNotFound, status)
}

func TestAdminSettingsAndCountryManagers(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.adminToken(t)

	status, body := s.do(t, nethttp.MethodGet, "/admin/settings/email", nil, token)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "support@inoksan.com", body["data"].(map[string]any)["forwardingEmail"])

	status, _ = s.do(t, nethttp.MethodPut, "/admin/settings/email", map[string]any{
		"managerEmail": "not-an-email",
	}, token)
	assert.Equal(t, nethttp.StatusBadRequest, status)

	status, body = s.do(t, nethttp.MethodPut, "/admin/settings/email", map[string]any{
		"managerEmail":    "global@inoksan.com",
		"forwardingEmail": "desk@inoksan.com",
		"countries": []map[string]any{
			{"code": "tr", "name": "Turkey", "supportEmail": "tr.support@inoksan.com", "enabled": true},
		},
	}, token)
	assert.Equal(t, nethttp.StatusOK, status)
	countries := body["data"].(map[string]any)["countries"].([]any)
	assert.Equal(t, "TR", countries[0].(map[string]any)["code"])

	status, body = s.do(t, nethttp.MethodPut, "/admin/country-managers/United%20Kingdom", map[string]string{"managerEmail": "uk@inoksan.com"}, token)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "United Kingdom", body["data"].(map[string]any)["country"])

	status, body = s.do(t, nethttp.MethodGet, "/admin/country-managers", nil, token)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, _ = s.do(t, nethttp.MethodDelete, "/admin/country-managers/United%20Kingdom", nil, token)
	assert.Equal(t, nethttp.StatusNoContent, status)
	status, _ = s.do(t, nethttp.MethodDelete, "/admin/country-managers/United%20Kingdom", nil, token)
	assert.Equal(t, nethttp.StatusNotFound, status)
}

func TestAdminPendingTriage(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.adminToken(t)
	s.transport.err = mail.NewError(mail.KindNetwork, "timeout", nil)
	s.do(t, nethttp.MethodPost, "/tickets", ticketPayload(), "")

	status, body := s.do(t, nethttp.MethodGet, "/admin/notifications/pending", nil, token)
	assert.Equal(t, nethttp.StatusOK, status)
	items := body["data"].([]any)
	require.Len(t, items, 1)
	id := items[0].(map[string]any)["id"].(string)
	assert.Equal(t, "NETWORK_ERROR", items[0].(map[string]any)["errorCode"])

	status, body = s.do(t, nethttp.MethodPatch, "/admin/notifications/"+id, map[string]string{"status": "processed"}, token)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "processed", body["data"].(map[string]any)["status"])

	_, body = s.do(t, nethttp.MethodGet, "/admin/notifications/pending", nil, token)
	assert.Empty(t, body["data"])
}

func TestSubmissionRateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	for i := 0; i < 2; i++ {
		status, _ := s.do(t, nethttp.MethodPost, "/tickets", ticketPayload(), "")
		assert.Equal(t, nethttp.StatusCreated, status)
	}
	status, body := s.do(t, nethttp.MethodPost, "/tickets", ticketPayload(), "")
	assert.Equal(t, nethttp.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", body["error"].(map[string]any)["code"])
}

func TestHealthMetricsAndUnknownRoute(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.do(t, nethttp.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	s.do(t, nethttp.MethodPost, "/tickets", ticketPayload(), "")
	req := httptest.NewRequest(nethttp.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "tickets_created_total")

	status, body = s.do(t, nethttp.MethodGet, "/nope", nil, "")
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
}
