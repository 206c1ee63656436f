// Package stats computes read-only summaries of the stored collections.
// Sums are accumulated in decimal so totals of many small amounts do not
// drift.
package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/nodeledger/internal/record"
)

// Unmapped labels earnings without a license type.
const Unmapped = "Unmapped"

// Bucket is a count and total for one group.
type Bucket struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// EarningsStats summarizes the earnings collection.
type EarningsStats struct {
	Count       int               `json:"count"`
	Total       float64           `json:"total"`
	Average     float64           `json:"average"`
	ByStatus    map[string]Bucket `json:"byStatus"`
	ByType      map[string]Bucket `json:"byType"`
	ByNode      map[string]Bucket `json:"byNode"`
	UniqueNodes int               `json:"uniqueNodes"`
	FirstDate   string            `json:"firstDate,omitempty"`
	LastDate    string            `json:"lastDate,omitempty"`
	// Last24h totals earnings dated within 24 hours before now.
	Last24h float64 `json:"last24h"`
}

type acc struct {
	count int
	total decimal.Decimal
}

func (a *acc) add(v decimal.Decimal) {
	a.count++
	a.total = a.total.Add(v)
}

func buckets(m map[string]*acc) map[string]Bucket {
	out := make(map[string]Bucket, len(m))
	for k, a := range m {
		out[k] = Bucket{Count: a.count, Total: a.total.InexactFloat64()}
	}
	return out
}

func group(m map[string]*acc, key string, v decimal.Decimal) {
	a, ok := m[key]
	if !ok {
		a = &acc{}
		m[key] = a
	}
	a.add(v)
}

// Earnings computes EarningsStats.
func Earnings(earnings []record.Earning, now time.Time) EarningsStats {
	byStatus := map[string]*acc{}
	byType := map[string]*acc{}
	byNode := map[string]*acc{}
	total := decimal.Zero
	last24 := decimal.Zero
	dayAgo := now.Add(-record.Day).UnixMilli()

	s := EarningsStats{Count: len(earnings)}
	for _, e := range earnings {
		v := decimal.NewFromFloat(e.Amount)
		total = total.Add(v)

		lt := e.LicenseType
		if lt == "" {
			lt = Unmapped
		}
		group(byStatus, string(e.Status), v)
		group(byType, lt, v)
		group(byNode, e.NodeID, v)

		if s.FirstDate == "" || e.Date < s.FirstDate {
			s.FirstDate = e.Date
		}
		if e.Date > s.LastDate {
			s.LastDate = e.Date
		}
		if e.Timestamp >= dayAgo {
			last24 = last24.Add(v)
		}
	}

	s.Total = total.InexactFloat64()
	if s.Count > 0 {
		s.Average = total.Div(decimal.NewFromInt(int64(s.Count))).Round(8).InexactFloat64()
	}
	s.ByStatus = buckets(byStatus)
	s.ByType = buckets(byType)
	s.ByNode = buckets(byNode)
	s.UniqueNodes = len(byNode)
	s.Last24h = last24.InexactFloat64()
	return s
}

// TypeRow is one line of the grouped-by-type table.
type TypeRow struct {
	Type string
	Bucket
}

// TypesByTotal returns the ByType buckets ordered by total, largest first.
func (s EarningsStats) TypesByTotal() []TypeRow {
	rows := make([]TypeRow, 0, len(s.ByType))
	for k, b := range s.ByType {
		rows = append(rows, TypeRow{Type: k, Bucket: b})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].Type < rows[j].Type
	})
	return rows
}

// LicenseStats summarizes the license collection.
type LicenseStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
	Bound    int            `json:"bound"`
	Unbound  int            `json:"unbound"`
	Leased   int            `json:"leased"`
	// LeaseFees sums the fee of every leased license.
	LeaseFees float64 `json:"leaseFees"`
	// AverageRevenueShare is the mean revenue share over leased licenses.
	AverageRevenueShare float64 `json:"averageRevenueShare"`
	// DowntimeDays sums the frozen downtime of unbound licenses.
	DowntimeDays int `json:"downtimeDays"`
}

// Licenses computes LicenseStats.
func Licenses(set record.LicenseSet) LicenseStats {
	s := LicenseStats{Total: len(set), ByStatus: map[string]int{}}
	for st := range record.ValidLicenseStatuses {
		s.ByStatus[string(st)] = 0
	}

	fees := decimal.Zero
	share := decimal.Zero
	for _, lic := range set {
		s.ByStatus[string(lic.Status)]++
		if lic.BindingInfo.IsBound {
			s.Bound++
		} else {
			s.Unbound++
			s.DowntimeDays += lic.BindingInfo.DowntimeDays
		}
		if lic.Status.IsLeased() {
			s.Leased++
			if lic.LeaseInfo != nil {
				fees = fees.Add(decimal.NewFromFloat(lic.LeaseInfo.Fee))
				share = share.Add(decimal.NewFromFloat(lic.LeaseInfo.RevenueShare))
			}
		}
	}
	s.LeaseFees = fees.InexactFloat64()
	if s.Leased > 0 {
		s.AverageRevenueShare = share.Div(decimal.NewFromInt(int64(s.Leased))).Round(4).InexactFloat64()
	}
	return s
}
