package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAllocateFirstTicketOfYear(t *testing.T) {
	a := NewTicketIDAllocator(fixedClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)))

	next, id := a.Allocate(domain.TicketCounter{})
	assert.Equal(t, "TKT-2025-0001", id)
	assert.Equal(t, domain.TicketCounter{Count: 1, Period: "2025"}, next)

	next, id = a.Allocate(next)
	assert.Equal(t, "TKT-2025-0002", id)
	assert.Equal(t, int64(2), next.Count)
}

func TestAllocateResetsOnNewYear(t *testing.T) {
	a := NewTicketIDAllocator(fixedClock(time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC)))

	next, id := a.Allocate(domain.TicketCounter{Count: 812, Period: "2025"})
	assert.Equal(t, "TKT-2026-0001", id)
	assert.Equal(t, domain.TicketCounter{Count: 1, Period: "2026"}, next)
}

func TestAllocateContinuesCounterWithoutPeriod(t *testing.T) {
	a := NewTicketIDAllocator(fixedClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))

	next, id := a.Allocate(domain.TicketCounter{Count: 41})
	assert.Equal(t, "TKT-2025-0042", id)
	assert.Equal(t, "2025", next.Period)
}

func TestAllocateUsesUTCYear(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	a := NewTicketIDAllocator(fixedClock(time.Date(2026, 1, 1, 1, 0, 0, 0, loc)))

	_, id := a.Allocate(domain.TicketCounter{Count: 5, Period: "2025"})
	assert.Equal(t, "TKT-2025-0006", id)
}

func TestFormatTicketIDWidensPastFourDigits(t *testing.T) {
	assert.Equal(t, "TKT-2025-0007", FormatTicketID("2025", 7))
	assert.Equal(t, "TKT-2025-12345", FormatTicketID("2025", 12345))
}
