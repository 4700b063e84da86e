package effective

import "time"

// Status is the lifecycle position of a versioned record relative to a point in time.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
)

// Range is the half-open interval [From, To) during which a record is
// authoritative for its subject. A nil To means open-ended.
type Range struct {
	From time.Time
	To   *time.Time
}

// Valid reports whether To, when set, is strictly after From.
func (r Range) Valid() bool {
	if r.To == nil {
		return true
	}
	return r.To.After(r.From)
}

// Contains reports whether now falls inside the range. Lower bound inclusive,
// upper bound exclusive.
func (r Range) Contains(now time.Time) bool {
	return r.StatusAt(now) == StatusActive
}

// StatusAt resolves upcoming/active/expired for the range at the given instant.
func (r Range) StatusAt(now time.Time) Status {
	if now.Before(r.From) {
		return StatusUpcoming
	}
	if r.To != nil && !now.Before(*r.To) {
		return StatusExpired
	}
	return StatusActive
}

// ResolveStatus is the function form of Range.StatusAt.
func ResolveStatus(from time.Time, to *time.Time, now time.Time) Status {
	return Range{From: from, To: to}.StatusAt(now)
}

// Countdown returns how long until the range becomes active. Zero once active.
func Countdown(from, now time.Time) time.Duration {
	if !now.Before(from) {
		return 0
	}
	return from.Sub(now)
}

// Current picks the authoritative item among candidates for the same subject
// at the given instant. When more than one range technically covers now, the
// one with the greatest From not after now wins.
func Current[T any](items []T, rangeOf func(T) Range, now time.Time) (T, bool) {
	var (
		best  T
		found bool
	)
	for _, item := range items {
		r := rangeOf(item)
		if !r.Contains(now) {
			continue
		}
		if !found || r.From.After(rangeOf(best).From) {
			best = item
			found = true
		}
	}
	return best, found
}

// Overlaps reports whether two half-open ranges share any instant.
func Overlaps(a, b Range) bool {
	if b.To != nil && !b.To.After(a.From) {
		return false
	}
	if a.To != nil && !a.To.After(b.From) {
		return false
	}
	return true
}
