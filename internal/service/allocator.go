package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

// TicketIDAllocator formats TKT-<year>-<sequence> identifiers. The sequence
// is scoped to the UTC calendar year: the first allocation in a new year
// restarts at 1. A counter without a period continues its count in the
// current year.
type TicketIDAllocator struct {
	now func() time.Time
}

// NewTicketIDAllocator builds an allocator; a nil clock uses time.Now.
func NewTicketIDAllocator(now func() time.Time) *TicketIDAllocator {
	if now == nil {
		now = time.Now
	}
	return &TicketIDAllocator{now: now}
}

// Allocate computes the next counter state and its ticket ID. It is pure so
// the surrounding transaction can run it again on retry.
func (a *TicketIDAllocator) Allocate(current domain.TicketCounter) (domain.TicketCounter, string) {
	year := strconv.Itoa(a.now().UTC().Year())

	count := current.Count
	if current.Period != "" && current.Period != year {
		count = 0
	}
	next := domain.TicketCounter{Count: count + 1, Period: year}
	return next, FormatTicketID(year, next.Count)
}

// FormatTicketID renders the sequence zero-padded to at least four digits.
func FormatTicketID(year string, seq int64) string {
	return fmt.Sprintf("TKT-%s-%04d", year, seq)
}
