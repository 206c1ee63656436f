package license

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/nodeledger/internal/record"
)

// DormantNode is a node whose latest earning is older than the threshold.
type DormantNode struct {
	NodeID       string `json:"nodeId"`
	LastEarning  string `json:"lastEarning"`
	DaysSince    int    `json:"daysSince"`
	EarningCount int    `json:"earningCount"`
}

// Dormant returns the nodes whose most recent earning is more than days
// days before now, most dormant first. It never reads or changes the
// stored binding flag.
func Dormant(earnings []record.Earning, days int, now time.Time) []DormantNode {
	latest := map[string]record.Earning{}
	counts := map[string]int{}
	for _, e := range earnings {
		counts[e.NodeID]++
		if cur, ok := latest[e.NodeID]; !ok || e.Timestamp > cur.Timestamp {
			latest[e.NodeID] = e
		}
	}

	var out []DormantNode
	for node, e := range latest {
		since := record.DaysBetween(time.UnixMilli(e.Timestamp).UTC(), now)
		if since <= days {
			continue
		}
		out = append(out, DormantNode{
			NodeID:       node,
			LastEarning:  e.Date,
			DaysSince:    since,
			EarningCount: counts[node],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DaysSince != out[j].DaysSince {
			return out[i].DaysSince > out[j].DaysSince
		}
		return out[i].NodeID < out[j].NodeID
	})
	return out
}

// DailyTotal is the sum of one day's earnings.
type DailyTotal struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

// EarningPattern describes a license's recent earnings.
type EarningPattern struct {
	LicenseID  string       `json:"licenseId"`
	Days       int          `json:"days"`
	Daily      []DailyTotal `json:"daily"`
	ActiveDays int          `json:"activeDays"`
	Total      float64      `json:"total"`
	// AveragePerActiveDay is Total divided by ActiveDays.
	AveragePerActiveDay float64 `json:"averagePerActiveDay"`
	// LastEarning is the date of the latest earning ever recorded for the
	// license, inside the window or not. Empty when there is none.
	LastEarning   string  `json:"lastEarning,omitempty"`
	EarnedLast24h bool    `json:"earnedLast24h"`
	TotalLast24h  float64 `json:"totalLast24h"`
}

// Pattern summarizes the earnings of licenseID over the last days days,
// counting the current day. Earnings match the license by node id,
// including abbreviated ids.
func Pattern(earnings []record.Earning, licenseID string, days int, now time.Time) EarningPattern {
	p := EarningPattern{LicenseID: licenseID, Days: days, Daily: []DailyTotal{}}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	windowStart := today.AddDate(0, 0, -(days - 1)).UnixMilli()
	dayAgo := now.Add(-record.Day).UnixMilli()

	daily := map[string]decimal.Decimal{}
	counts := map[string]int{}
	total := decimal.Zero
	last24 := decimal.Zero
	var lastTS int64 = -1

	for _, e := range earnings {
		if !record.MatchesNode(licenseID, e.NodeID) {
			continue
		}
		if e.Timestamp > lastTS {
			lastTS = e.Timestamp
			p.LastEarning = e.Date
		}
		amount := decimal.NewFromFloat(e.Amount)
		if e.Timestamp >= dayAgo {
			p.EarnedLast24h = true
			last24 = last24.Add(amount)
		}
		if days <= 0 || e.Timestamp < windowStart {
			continue
		}
		daily[e.Date] = daily[e.Date].Add(amount)
		counts[e.Date]++
		total = total.Add(amount)
	}

	for date, amount := range daily {
		p.Daily = append(p.Daily, DailyTotal{Date: date, Amount: amount.InexactFloat64(), Count: counts[date]})
	}
	sort.Slice(p.Daily, func(i, j int) bool { return p.Daily[i].Date < p.Daily[j].Date })

	p.ActiveDays = len(p.Daily)
	p.Total = total.InexactFloat64()
	if p.ActiveDays > 0 {
		p.AveragePerActiveDay = total.Div(decimal.NewFromInt(int64(p.ActiveDays))).Round(8).InexactFloat64()
	}
	p.TotalLast24h = last24.InexactFloat64()
	return p
}
