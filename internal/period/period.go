// Package period resolves weekly and fortnightly reporting windows.
//
// A window always ends on a week boundary determined by the place's week-start
// convention, unless an explicit anchor end date is given for historical
// navigation.
package period

import (
	"errors"
	"fmt"
	"time"

	"equilo/internal/core"
)

type Kind string

const (
	Weekly      Kind = "weekly"
	Fortnightly Kind = "fortnightly"
)

type WeekStart string

const (
	Monday WeekStart = "monday"
	Sunday WeekStart = "sunday"
)

var ErrInvalidRange = errors.New("invalid period range")

// ParseKind validates a period kind string, defaulting to weekly when empty.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "":
		return Weekly, nil
	case Weekly, Fortnightly:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// ParseWeekStart validates a week-start string, defaulting to monday.
func ParseWeekStart(s string) (WeekStart, error) {
	switch WeekStart(s) {
	case "":
		return Monday, nil
	case Monday, Sunday:
		return WeekStart(s), nil
	default:
		return "", fmt.Errorf("unknown week start %q", s)
	}
}

// Days returns the window length for the kind.
func (k Kind) Days() int {
	if k == Fortnightly {
		return 14
	}
	return 7
}

// Resolve computes the concrete window for the given kind.
//
// Without an anchor the window ends on the last day of the current week per
// the week-start convention: a weekly monday-start window on Wednesday
// 2024-06-12 is 2024-06-10..2024-06-16. A fortnightly window is the 14 days
// ending on the same boundary. With an anchor, to = anchor and from counts
// back N-1 days.
func Resolve(kind Kind, weekStart WeekStart, anchorEnd *core.Date, today core.Date) core.PeriodRange {
	n := kind.Days()
	if anchorEnd != nil {
		return core.PeriodRange{From: anchorEnd.AddDays(-(n - 1)), To: *anchorEnd}
	}
	to := endOfWeek(today, weekStart)
	return core.PeriodRange{From: to.AddDays(-(n - 1)), To: to}
}

// Previous returns the immediately preceding, non-overlapping window of equal
// length.
func Previous(r core.PeriodRange) core.PeriodRange {
	n := r.Days()
	prevTo := r.From.AddDays(-1)
	return core.PeriodRange{From: prevTo.AddDays(-(n - 1)), To: prevTo}
}

// Next returns the immediately following window of equal length. Callers must
// check CanAdvance first; Next itself never clamps.
func Next(r core.PeriodRange) core.PeriodRange {
	n := r.Days()
	nextFrom := r.To.AddDays(1)
	return core.PeriodRange{From: nextFrom, To: nextFrom.AddDays(n - 1)}
}

// CanAdvance reports whether navigating one window forward is allowed: the
// current window must already lie fully in the past, otherwise the advanced
// window would end beyond today.
func CanAdvance(r core.PeriodRange, today core.Date) bool {
	return r.To.Before(today)
}

// endOfWeek returns the last day of the week containing d.
func endOfWeek(d core.Date, weekStart WeekStart) core.Date {
	start := time.Monday
	if weekStart == Sunday {
		start = time.Sunday
	}
	offset := (int(d.Weekday()) - int(start) + 7) % 7
	return d.AddDays(6 - offset)
}

// Validate checks the basic range invariant.
func Validate(r core.PeriodRange) error {
	if r.From.IsZero() || r.To.IsZero() || r.To.Before(r.From) {
		return ErrInvalidRange
	}
	return nil
}
