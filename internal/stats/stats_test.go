package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeledger/internal/record"
)

func earning(node, lt string, amount float64, date string, status record.EarningStatus) record.Earning {
	ts, err := record.DateTimestamp(date)
	if err != nil {
		panic(err)
	}
	return record.Earning{NodeID: node, LicenseType: lt, Amount: amount, Date: date, Timestamp: ts, Status: status}
}

func TestEarnings(t *testing.T) {
	now := time.Date(2025, 12, 6, 12, 0, 0, 0, time.UTC)
	es := []record.Earning{
		earning("0x01...a278", "Tier 1", 0.1, "2025-12-06", record.StatusCompleted),
		earning("0x01...a278", "Tier 1", 0.2, "2025-12-01", record.StatusCompleted),
		earning("0x02...b379", "", 0.3, "2025-11-20", record.StatusPending),
	}

	s := Earnings(es, now)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 0.6, s.Total, "decimal sum has no float drift")
	assert.Equal(t, 0.2, s.Average)
	assert.Equal(t, "2025-11-20", s.FirstDate)
	assert.Equal(t, "2025-12-06", s.LastDate)
	assert.Equal(t, 0.1, s.Last24h)
	assert.Equal(t, 2, s.UniqueNodes)
	assert.Equal(t, Bucket{Count: 2, Total: 0.3}, s.ByStatus["completed"])
	assert.Equal(t, Bucket{Count: 1, Total: 0.3}, s.ByType[Unmapped])
	assert.Equal(t, Bucket{Count: 2, Total: 0.3}, s.ByNode["0x01...a278"])

	rows := s.TypesByTotal()
	require.Len(t, rows, 2)
	assert.Equal(t, "Tier 1", rows[0].Type, "ties break by name")
	assert.Equal(t, Unmapped, rows[1].Type)
}

func TestEarnings_Empty(t *testing.T) {
	s := Earnings(nil, time.Now())
	assert.Zero(t, s.Count)
	assert.Zero(t, s.Average)
	assert.Empty(t, s.FirstDate)
	assert.NotNil(t, s.ByStatus)
}

func TestLicenses(t *testing.T) {
	set := record.LicenseSet{
		"a": {Status: record.LicenseSelfRun, BindingInfo: record.BindingInfo{IsBound: true}},
		"b": {Status: record.LicenseLeasedBound, LeaseInfo: &record.LeaseInfo{Fee: 10.5, RevenueShare: 30}, BindingInfo: record.BindingInfo{IsBound: true}},
		"c": {Status: record.LicenseLeasedUnbound, LeaseInfo: &record.LeaseInfo{Fee: 4.5, RevenueShare: 20}, BindingInfo: record.BindingInfo{DowntimeDays: 3}},
		"d": {Status: record.LicenseAvailable, BindingInfo: record.BindingInfo{DowntimeDays: 2}},
	}

	s := Licenses(set)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, map[string]int{"self-run": 1, "leased-bound": 1, "leased-unbound": 1, "available": 1}, s.ByStatus)
	assert.Equal(t, 2, s.Bound)
	assert.Equal(t, 2, s.Unbound)
	assert.Equal(t, 2, s.Leased)
	assert.Equal(t, 15.0, s.LeaseFees)
	assert.Equal(t, 25.0, s.AverageRevenueShare)
	assert.Equal(t, 5, s.DowntimeDays)
}

func TestLicenses_EmptyHasAllStatuses(t *testing.T) {
	s := Licenses(nil)
	assert.Len(t, s.ByStatus, 4)
	assert.Zero(t, s.AverageRevenueShare)
}
