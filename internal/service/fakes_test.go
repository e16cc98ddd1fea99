package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/events"
	"github.com/spec-kit/ticket-portal/internal/lock"
	"github.com/spec-kit/ticket-portal/internal/mail"
	"github.com/spec-kit/ticket-portal/internal/repository"
	"github.com/spec-kit/ticket-portal/internal/repository/memory"
)

type fakeTransport struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeTransport) Send(_ context.Context, msg mail.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("<msg-%d@test>", len(f.sent)), nil
}

func (f *fakeTransport) Check(context.Context) mail.CheckResult {
	return mail.CheckResult{Configured: true, KeyValid: f.err == nil}
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeTransport) messages() []mail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mail.Message(nil), f.sent...)
}

// failingManagers simulates an unreachable country-manager collection.
type failingManagers struct {
	repository.CountryManagerRepository
}

func (failingManagers) Get(context.Context, string) (*domain.CountryManager, error) {
	return nil, errors.New("connection refused")
}

type harness struct {
	db            *memory.DB
	store         repository.Store
	transport     *fakeTransport
	resolver      *RoutingResolver
	dispatcher    *NotificationDispatcher
	tickets       *TicketService
	notifications *NotificationService
	settings      *SettingsService
	pending       *PendingService
	events        events.Dispatcher
}

var testNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func testEmailConfig() config.EmailConfig {
	return config.EmailConfig{
		SenderEmail: "noreply@inoksan.com",
		SenderName:  "Inoksan Support",
		ReplyTo:     "support@inoksan.com",
		SendTimeout: time.Second,
	}
}

func testRoutingConfig() config.RoutingConfig {
	return config.RoutingConfig{
		ForwardingEmail:      "support@inoksan.com",
		InternationalManager: "regional.intl@inoksan.com",
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := fixedClock(testNow)
	db := memory.NewDB(memory.WithClock(clock))
	store := memory.NewStore(db)
	transport := &fakeTransport{}
	logger := zap.NewNop()
	bus := events.NewInMemoryDispatcher(logger)

	resolver := NewRoutingResolver(store.Settings, store.CountryManagers, testRoutingConfig(), "support@inoksan.com", logger)
	dispatcher := NewNotificationDispatcher(DispatcherDependencies{
		Tickets:   store.Tickets,
		Transport: transport,
		Events:    bus,
		Email:     testEmailConfig(),
		BaseURL:   "https://support.example.com",
		Logger:    logger,
		Now:       clock,
	})
	notifyCfg := config.NotificationConfig{MaxAttempts: 3, PendingMaxAttempts: 3}
	h := &harness{
		db:         db,
		store:      store,
		transport:  transport,
		resolver:   resolver,
		dispatcher: dispatcher,
		events:     bus,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:  store.Tickets,
			PendingRepo: store.Pending,
			Resolver:    resolver,
			Dispatcher:  dispatcher,
			Events:      bus,
			Config:      notifyCfg,
			Logger:      logger,
			Now:         clock,
		}),
		notifications: NewNotificationService(NotificationDependencies{
			TicketRepo:  store.Tickets,
			PendingRepo: store.Pending,
			Resolver:    resolver,
			Dispatcher:  dispatcher,
			Locker:      lock.NewLocal(),
			Transport:   transport,
			Events:      bus,
			Config:      notifyCfg,
			Email:       testEmailConfig(),
			Logger:      logger,
			Now:         clock,
		}),
		settings: NewSettingsService(store, testRoutingConfig(), logger),
		pending:  NewPendingService(store.Pending),
	}
	return h
}

func acmeSubmission() SubmitTicketInput {
	return SubmitTicketInput{
		CompanyName:   "Acme",
		ContactPerson: "Jane Doe",
		Email:         "jane@acme.com",
		Country:       "Turkey",
		ProductModel:  "IKE 3000",
		SerialNumber:  "SN-001",
		IssueType:     "Mechanical",
		Subject:       "Oven stopped",
		Description:   "The oven stopped heating during service.",
		Priority:      string(domain.TicketPriorityCritical),
		Attachments:   []string{"https://files.example.com/a.jpg"},
	}
}
