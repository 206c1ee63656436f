package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate_SupportedFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"06 Dec 2025", "2025-12-06"},
		{"6 Dec 2025", "2025-12-06"},
		{"06 DEC 2025", "2025-12-06"},
		{"6 December 2025", "2025-12-06"},
		{"Dec 6, 2025", "2025-12-06"},
		{"Dec 06, 2025", "2025-12-06"},
		{"December 6, 2025", "2025-12-06"},
		{"Dec. 6, 2025", "2025-12-06"},
		{"2025-12-06", "2025-12-06"},
		{"2025-7-1", "2025-07-01"},
		{"12/06/2025", "2025-12-06"},
		{"1/2/2025", "2025-01-02"},
		{"  2025-12-06  ", "2025-12-06"},
		{"2025-12-06T18:30:00Z", "2025-12-06"},
		{"2025-12-06T18:30:00.123Z", "2025-12-06"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDate_AllFormatsAgree(t *testing.T) {
	a, err := NormalizeDate("06 Dec 2025")
	require.NoError(t, err)
	b, err := NormalizeDate("2025-12-06")
	require.NoError(t, err)
	c, err := NormalizeDate("12/06/2025")
	require.NoError(t, err)
	d, err := NormalizeDate("Dec 6, 2025")
	require.NoError(t, err)

	assert.Equal(t, "2025-12-06", a)
	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
	assert.Equal(t, c, d)
}

func TestNormalizeDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "yesterday", "31 Feb 2025", "13/01/2025", "2025-13-01", "Dec 2025"} {
		t.Run(in, func(t *testing.T) {
			_, err := NormalizeDate(in)
			assert.Error(t, err)
		})
	}
}

func TestDateTimestamp(t *testing.T) {
	ts, err := DateTimestamp("2025-12-06")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 6, 0, 0, 0, 0, time.UTC).UnixMilli(), ts)

	_, err = DateTimestamp("06 Dec 2025")
	assert.Error(t, err, "only canonical dates are accepted")
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(from, from.Add(23*time.Hour)))
	assert.Equal(t, 1, DaysBetween(from, from.Add(24*time.Hour)))
	assert.Equal(t, 10, DaysBetween(from, from.Add(10*Day+5*time.Hour)))
	assert.Equal(t, 0, DaysBetween(from, from.Add(-48*time.Hour)))
}
