package dateparse

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"month first", "12/15/2025", date(2025, 12, 15)},
		{"month first single digits", "1/3/2026", date(2026, 1, 3)},
		{"iso", "2026-01-02", date(2026, 1, 2)},
		{"day first dashes", "15-12-2025", date(2025, 12, 15)},
		{"month first with time", "12/15/2025 10:30:00", time.Date(2025, 12, 15, 10, 30, 0, 0, time.UTC)},
		{"iso with time", "2025-12-15 08:05:09", time.Date(2025, 12, 15, 8, 5, 9, 0, time.UTC)},
		{"rfc3339", "2025-12-15T08:05:09Z", time.Date(2025, 12, 15, 8, 5, 9, 0, time.UTC)},
		{"surrounding space", "  12/16/2025 ", date(2025, 12, 16)},
		{"ambiguous prefers month first", "03/04/2026", date(2026, 3, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Parse(tt.in)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestParseUnrecognised(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "yesterday", "2025/12/15", "13/45/2025", "12/15/25"} {
		_, ok := Parse(in)
		assert.False(t, ok, in)
	}
}

func TestParseStrict(t *testing.T) {
	t.Parallel()

	got, err := ParseStrict("2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, date(2026, 1, 1), got)

	got, err = ParseStrict("12/16/2025")
	require.NoError(t, err)
	assert.Equal(t, date(2025, 12, 16), got)

	got, err = ParseStrict("19-12-2025")
	require.NoError(t, err)
	assert.Equal(t, date(2025, 12, 19), got)
}

func TestParseStrictEmpty(t *testing.T) {
	t.Parallel()

	got, err := ParseStrict("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestParseStrictInvalid(t *testing.T) {
	t.Parallel()

	_, err := ParseStrict("next tuesday")
	require.Error(t, err)

	var ife *InvalidFormatError
	require.True(t, errors.As(err, &ife))
	assert.Equal(t, "next tuesday", ife.Value)
	assert.Equal(t, "Invalid date format: next tuesday. Use YYYY-MM-DD", err.Error())

	// Timestamps with a time of day are not accepted as filter dates.
	_, err = ParseStrict("2026-01-01 10:00:00")
	assert.Error(t, err)
}

func TestRangeContainsInclusive(t *testing.T) {
	t.Parallel()

	r := Range{After: date(2025, 12, 16), Before: date(2025, 12, 19)}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before lower bound", date(2025, 12, 15), false},
		{"on lower bound", date(2025, 12, 16), true},
		{"lower bound late in day", time.Date(2025, 12, 16, 23, 59, 0, 0, time.UTC), true},
		{"inside", date(2025, 12, 17), true},
		{"on upper bound", time.Date(2025, 12, 19, 18, 0, 0, 0, time.UTC), true},
		{"after upper bound", date(2025, 12, 20), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, r.Contains(tt.at, true))
		})
	}
}

func TestRangeUnparsedAlwaysKept(t *testing.T) {
	t.Parallel()

	r := Range{After: date(2026, 1, 1)}
	assert.True(t, r.Contains(time.Time{}, false))
}

func TestRangeOpenBounds(t *testing.T) {
	t.Parallel()

	var r Range
	assert.False(t, r.Active())
	assert.True(t, r.Contains(date(1999, 1, 1), true))

	r = Range{Before: date(2025, 12, 17)}
	assert.True(t, r.Active())
	assert.True(t, r.Contains(date(1999, 1, 1), true))
	assert.False(t, r.Contains(date(2025, 12, 18), true))
}

func TestNewRange(t *testing.T) {
	t.Parallel()

	r, err := NewRange("2025-12-16", "")
	require.NoError(t, err)
	after, before := r.Bounds()
	require.NotNil(t, after)
	assert.Equal(t, "2025-12-16", *after)
	assert.Nil(t, before)

	_, err = NewRange("", "bogus")
	var ife *InvalidFormatError
	assert.True(t, errors.As(err, &ife))
}
