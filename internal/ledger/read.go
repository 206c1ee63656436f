package ledger

import (
	"context"
	"sort"

	"github.com/roach88/nodeledger/internal/license"
	"github.com/roach88/nodeledger/internal/record"
	"github.com/roach88/nodeledger/internal/stats"
)

// LoadEarnings returns every stored earning, newest first.
func (l *Ledger) LoadEarnings(ctx context.Context) ([]record.Earning, error) {
	earnings, err := l.loadEarnings(ctx)
	if err != nil {
		return nil, err
	}
	record.SortEarnings(earnings)
	return earnings, nil
}

// LoadLicenses returns the license inventory.
func (l *Ledger) LoadLicenses(ctx context.Context) (record.LicenseSet, error) {
	return l.licenses.Load(ctx)
}

// License returns one license.
func (l *Ledger) License(ctx context.Context, id string) (record.License, error) {
	return l.licenses.Get(ctx, id)
}

// EarningsStats aggregates the stored earnings.
func (l *Ledger) EarningsStats(ctx context.Context) (stats.EarningsStats, error) {
	earnings, err := l.loadEarnings(ctx)
	if err != nil {
		return stats.EarningsStats{}, err
	}
	return stats.Earnings(earnings, l.clock.Now()), nil
}

// LicenseStats aggregates the license inventory.
func (l *Ledger) LicenseStats(ctx context.Context) (stats.LicenseStats, error) {
	set, err := l.licenses.Load(ctx)
	if err != nil {
		return stats.LicenseStats{}, err
	}
	return stats.Licenses(set), nil
}

// LicenseEarningPattern summarizes the last days days of earnings of a
// stored license.
func (l *Ledger) LicenseEarningPattern(ctx context.Context, id string, days int) (license.EarningPattern, error) {
	lic, err := l.licenses.Get(ctx, id)
	if err != nil {
		return license.EarningPattern{}, err
	}
	earnings, err := l.loadEarnings(ctx)
	if err != nil {
		return license.EarningPattern{}, err
	}
	return license.Pattern(earnings, lic.LicenseID, days, l.clock.Now()), nil
}

// UnboundLicense is a license whose node has not earned for longer than
// the threshold, or never earned at all.
type UnboundLicense struct {
	LicenseID string               `json:"licenseId"`
	Status    record.LicenseStatus `json:"status"`
	// IsBound is the stored flag. It is reported as is and may disagree
	// with the earnings history.
	IsBound      bool   `json:"isBound"`
	LastEarning  string `json:"lastEarning,omitempty"`
	DaysSince    int    `json:"daysSince"`
	EarningCount int    `json:"earningCount"`
	NeverEarned  bool   `json:"neverEarned"`
}

// UnboundLicenses lists the licenses whose latest earning is more than
// days days old, most dormant first; licenses that never earned come
// first. It is computed from the earnings alone and never changes the
// stored binding flag.
func (l *Ledger) UnboundLicenses(ctx context.Context, days int) ([]UnboundLicense, error) {
	set, err := l.licenses.Load(ctx)
	if err != nil {
		return nil, err
	}
	earnings, err := l.loadEarnings(ctx)
	if err != nil {
		return nil, err
	}

	// Every node with its recency; the threshold is applied per license
	// because one license may have earned under several node spellings.
	nodes := license.Dormant(earnings, -1, l.clock.Now())

	out := []UnboundLicense{}
	for _, lic := range set.Sorted() {
		u := UnboundLicense{
			LicenseID: lic.LicenseID,
			Status:    lic.Status,
			IsBound:   lic.BindingInfo.IsBound,
			DaysSince: -1,
		}
		for _, n := range nodes {
			if !record.MatchesNode(lic.LicenseID, n.NodeID) {
				continue
			}
			u.EarningCount += n.EarningCount
			if u.DaysSince < 0 || n.DaysSince < u.DaysSince {
				u.DaysSince = n.DaysSince
				u.LastEarning = n.LastEarning
			}
		}
		if u.DaysSince < 0 {
			u.NeverEarned = true
			out = append(out, u)
			continue
		}
		if u.DaysSince > days {
			out = append(out, u)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NeverEarned != out[j].NeverEarned {
			return out[i].NeverEarned
		}
		return out[i].DaysSince > out[j].DaysSince
	})
	return out, nil
}
