package dateparse

import "time"

// Range is an inclusive, day-granular date filter. A zero bound is open.
type Range struct {
	After  time.Time
	Before time.Time
}

// NewRange parses both bounds with ParseStrict.
func NewRange(after, before string) (Range, error) {
	a, err := ParseStrict(after)
	if err != nil {
		return Range{}, err
	}
	b, err := ParseStrict(before)
	if err != nil {
		return Range{}, err
	}
	return Range{After: a, Before: b}, nil
}

// Active reports whether either bound is set.
func (r Range) Active() bool {
	return !r.After.IsZero() || !r.Before.IsZero()
}

// Contains reports whether a row dated t is kept. Rows whose timestamp
// did not parse (ok=false) are always kept.
func (r Range) Contains(t time.Time, ok bool) bool {
	if !ok {
		return true
	}
	day := dayOf(t)
	if !r.After.IsZero() && day.Before(dayOf(r.After)) {
		return false
	}
	if !r.Before.IsZero() && day.After(dayOf(r.Before)) {
		return false
	}
	return true
}

// Bounds formats the set bounds as YYYY-MM-DD, nil when open.
func (r Range) Bounds() (after, before *string) {
	if !r.After.IsZero() {
		s := r.After.Format("2006-01-02")
		after = &s
	}
	if !r.Before.IsZero() {
		s := r.Before.Format("2006-01-02")
		before = &s
	}
	return after, before
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
