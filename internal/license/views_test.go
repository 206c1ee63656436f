package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeledger/internal/record"
)

func mkEarning(node string, amount float64, date string) record.Earning {
	ts, err := record.DateTimestamp(date)
	if err != nil {
		panic(err)
	}
	return record.Earning{NodeID: node, Amount: amount, Date: date, Timestamp: ts, Status: record.StatusCompleted}
}

var now = time.Date(2025, 12, 10, 12, 0, 0, 0, time.UTC)

func TestDormant(t *testing.T) {
	earnings := []record.Earning{
		mkEarning("0x01...a278", 1, "2025-11-01"),
		mkEarning("0x01...a278", 1, "2025-12-09"),
		mkEarning("0x02...b379", 1, "2025-12-01"),
		mkEarning("0x03...c480", 1, "2025-11-20"),
		mkEarning("0x03...c480", 1, "2025-11-15"),
	}

	got := Dormant(earnings, 7, now)
	require.Len(t, got, 2)
	assert.Equal(t, DormantNode{NodeID: "0x03...c480", LastEarning: "2025-11-20", DaysSince: 20, EarningCount: 2}, got[0])
	assert.Equal(t, "0x02...b379", got[1].NodeID)
	assert.Equal(t, 9, got[1].DaysSince)

	assert.Empty(t, Dormant(earnings, 30, now))
	assert.Empty(t, Dormant(nil, 0, now))
}

func TestDormant_IndependentOfBinding(t *testing.T) {
	// A node can be dormant while its license still says bound; the view
	// only looks at earnings.
	got := Dormant([]record.Earning{mkEarning(licA, 1, "2025-01-01")}, 1, now)
	require.Len(t, got, 1)
	assert.Equal(t, licA, got[0].NodeID)
}

func TestPattern(t *testing.T) {
	earnings := []record.Earning{
		mkEarning("0x01...a278", 0.10, "2025-12-10"),
		mkEarning("0x01...a278", 0.20, "2025-12-10"),
		mkEarning(licA, 0.30, "2025-12-08"),
		mkEarning("0x01...a278", 5.00, "2025-12-01"), // outside a 7 day window
		mkEarning("0x02...b379", 9.00, "2025-12-10"), // other node
	}

	p := Pattern(earnings, licA, 7, now)
	assert.Equal(t, licA, p.LicenseID)
	assert.Equal(t, []DailyTotal{
		{Date: "2025-12-08", Amount: 0.3, Count: 1},
		{Date: "2025-12-10", Amount: 0.3, Count: 2},
	}, p.Daily)
	assert.Equal(t, 2, p.ActiveDays)
	assert.InDelta(t, 0.6, p.Total, 1e-9)
	assert.InDelta(t, 0.3, p.AveragePerActiveDay, 1e-9)
	assert.Equal(t, "2025-12-10", p.LastEarning)
	assert.True(t, p.EarnedLast24h)
	assert.InDelta(t, 0.3, p.TotalLast24h, 1e-9)
}

func TestPattern_WindowIncludesToday(t *testing.T) {
	earnings := []record.Earning{
		mkEarning(licA, 1, "2025-12-10"),
		mkEarning(licA, 1, "2025-12-09"),
	}
	p := Pattern(earnings, licA, 1, now)
	assert.Equal(t, 1, p.ActiveDays)
	assert.Equal(t, "2025-12-10", p.Daily[0].Date)
}

func TestPattern_NoEarnings(t *testing.T) {
	p := Pattern(nil, licA, 30, now)
	assert.NotNil(t, p.Daily)
	assert.Zero(t, p.ActiveDays)
	assert.Zero(t, p.AveragePerActiveDay)
	assert.Empty(t, p.LastEarning)
	assert.False(t, p.EarnedLast24h)
}

func TestPattern_StaleLicense(t *testing.T) {
	p := Pattern([]record.Earning{mkEarning(licA, 2, "2025-10-01")}, licA, 7, now)
	assert.Zero(t, p.ActiveDays)
	assert.Equal(t, "2025-10-01", p.LastEarning)
	assert.False(t, p.EarnedLast24h)
}
