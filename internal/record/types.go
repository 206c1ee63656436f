package record

import (
	"sort"
	"strings"
	"time"
)

// EarningStatus is the settlement state of an earning.
type EarningStatus string

const (
	StatusCompleted  EarningStatus = "completed"
	StatusPending    EarningStatus = "pending"
	StatusFailed     EarningStatus = "failed"
	StatusProcessing EarningStatus = "processing"
)

// ValidEarningStatuses defines allowed earning statuses.
var ValidEarningStatuses = map[EarningStatus]bool{
	StatusCompleted:  true,
	StatusPending:    true,
	StatusFailed:     true,
	StatusProcessing: true,
}

// Earning is a single payout produced by a node.
type Earning struct {
	ID          string        `json:"id"`
	NodeID      string        `json:"nodeId"`
	LicenseType string        `json:"licenseType,omitempty"`
	Amount      float64       `json:"amount"`
	Date        string        `json:"date"` // YYYY-MM-DD
	Status      EarningStatus `json:"status"`
	Timestamp   int64         `json:"timestamp"` // epoch ms of Date at 00:00 UTC
}

// LicenseStatus is the operating mode of a license.
type LicenseStatus string

const (
	LicenseSelfRun       LicenseStatus = "self-run"
	LicenseLeasedBound   LicenseStatus = "leased-bound"
	LicenseLeasedUnbound LicenseStatus = "leased-unbound"
	LicenseAvailable     LicenseStatus = "available"
)

// ValidLicenseStatuses defines allowed license statuses.
var ValidLicenseStatuses = map[LicenseStatus]bool{
	LicenseSelfRun:       true,
	LicenseLeasedBound:   true,
	LicenseLeasedUnbound: true,
	LicenseAvailable:     true,
}

// IsLeased reports whether the status is one of the leased states.
func (s LicenseStatus) IsLeased() bool {
	return strings.HasPrefix(string(s), "leased")
}

// LeaseInfo describes the customer side of a leased license.
type LeaseInfo struct {
	CustomerName    string  `json:"customerName"`
	CustomerContact string  `json:"customerContact,omitempty"`
	StartDate       string  `json:"startDate,omitempty"` // YYYY-MM-DD
	DurationMonths  int     `json:"durationMonths,omitempty"`
	RevenueShare    float64 `json:"revenueShare,omitempty"` // percent kept by the customer
	Fee             float64 `json:"fee,omitempty"`
}

// BindingInfo tracks whether a license is currently producing earnings.
type BindingInfo struct {
	IsBound      bool       `json:"isBound"`
	PhoneID      string     `json:"phoneId,omitempty"`
	LastActive   *time.Time `json:"lastActive,omitempty"`
	DowntimeDays int        `json:"downtimeDays"`
}

// License is one entry of the license inventory.
type License struct {
	LicenseID   string        `json:"licenseId"`
	Status      LicenseStatus `json:"status"`
	LeaseInfo   *LeaseInfo    `json:"leaseInfo,omitempty"`
	BindingInfo BindingInfo   `json:"bindingInfo"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Notes       string        `json:"notes"`
}

// LicenseSet is the license collection keyed by license id.
type LicenseSet map[string]License

// IDs returns the license ids in ascending order.
func (s LicenseSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sorted returns the licenses ordered by id.
func (s LicenseSet) Sorted() []License {
	out := make([]License, 0, len(s))
	for _, id := range s.IDs() {
		out = append(out, s[id])
	}
	return out
}

// Clone returns a shallow copy of the set.
func (s LicenseSet) Clone() LicenseSet {
	out := make(LicenseSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// SortEarnings orders earnings newest first, breaking ties by id so the
// order is stable across loads.
func SortEarnings(earnings []Earning) {
	sort.SliceStable(earnings, func(i, j int) bool {
		if earnings[i].Timestamp != earnings[j].Timestamp {
			return earnings[i].Timestamp > earnings[j].Timestamp
		}
		return earnings[i].ID < earnings[j].ID
	})
}
