package license

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/nodeledger/internal/clock"
	"github.com/roach88/nodeledger/internal/record"
	"github.com/roach88/nodeledger/internal/store"
)

// ErrNotFound is wrapped by errors about a license id that is not stored.
var ErrNotFound = errors.New("license not found")

// Tracker reads and mutates the license collection. Every mutation loads
// the collection, changes it, and writes it back with a single Set.
//
// Tracker does not lock; callers serialize mutations.
type Tracker struct {
	kv     store.KV
	clock  clock.Clock
	logger *zap.Logger
}

// NewTracker creates a tracker over kv. A nil clock means clock.System and
// a nil logger means zap.NewNop.
func NewTracker(kv store.KV, clk clock.Clock, logger *zap.Logger) *Tracker {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{kv: kv, clock: clk, logger: logger}
}

// Load returns the stored collection. A missing key is an empty set.
func (t *Tracker) Load(ctx context.Context) (record.LicenseSet, error) {
	set := record.LicenseSet{}
	if _, err := store.GetJSON(ctx, t.kv, store.KeyLicenses, &set); err != nil {
		return nil, record.WrapStorageError("load licenses", err)
	}
	return set, nil
}

// Save replaces the stored collection.
func (t *Tracker) Save(ctx context.Context, set record.LicenseSet) error {
	if set == nil {
		set = record.LicenseSet{}
	}
	if err := store.PutJSON(ctx, t.kv, store.KeyLicenses, set); err != nil {
		return record.WrapStorageError("save licenses", err)
	}
	return nil
}

// Get returns one license.
func (t *Tracker) Get(ctx context.Context, id string) (record.License, error) {
	set, err := t.Load(ctx)
	if err != nil {
		return record.License{}, err
	}
	lic, ok := set[record.NormalizeAddress(id)]
	if !ok {
		return record.License{}, notFound("get license", id)
	}
	return lic, nil
}

// Add stores a new license. An id that is already stored is a DUPLICATE
// error.
func (t *Tracker) Add(ctx context.Context, lic record.License) (record.License, error) {
	id, err := record.ValidateAndNormalizeAddress(lic.LicenseID)
	if err != nil {
		return record.License{}, &record.Error{Kind: record.KindFormat, Op: "add license", Err: err}
	}
	if !record.ValidLicenseStatuses[lic.Status] {
		return record.License{}, record.NewFormatError("add license", fmt.Sprintf("unknown license status %q", lic.Status))
	}

	set, err := t.Load(ctx)
	if err != nil {
		return record.License{}, err
	}
	if _, dup := set[id]; dup {
		return record.License{}, record.NewDuplicateError("add license", "license "+id+" already exists")
	}

	now := t.clock.Now()
	lic.LicenseID = id
	lic.CreatedAt = now
	lic.UpdatedAt = now
	if !lic.Status.IsLeased() {
		lic.LeaseInfo = nil
	}
	set[id] = lic
	if err := t.Save(ctx, set); err != nil {
		return record.License{}, err
	}
	return lic, nil
}

// Patch holds optional field updates. Nil fields are left unchanged.
type Patch struct {
	Notes   *string
	PhoneID *string
}

// Update applies patch to one license.
func (t *Tracker) Update(ctx context.Context, id string, patch Patch) (record.License, error) {
	return t.mutate(ctx, "update license", id, func(lic *record.License) {
		if patch.Notes != nil {
			lic.Notes = *patch.Notes
		}
		if patch.PhoneID != nil {
			lic.BindingInfo.PhoneID = strings.TrimSpace(*patch.PhoneID)
		}
	})
}

// SetStatus sets the license status. Lease info is replaced by lease for
// leased statuses (a nil lease keeps the stored one) and cleared
// otherwise.
func (t *Tracker) SetStatus(ctx context.Context, id string, status record.LicenseStatus, lease *record.LeaseInfo) (record.License, error) {
	if !record.ValidLicenseStatuses[status] {
		return record.License{}, record.NewFormatError("set status", fmt.Sprintf("unknown license status %q", status))
	}
	return t.mutate(ctx, "set status", id, func(lic *record.License) {
		lic.Status = status
		switch {
		case !status.IsLeased():
			lic.LeaseInfo = nil
		case lease != nil:
			l := *lease
			lic.LeaseInfo = &l
		case lic.LeaseInfo == nil:
			lic.LeaseInfo = &record.LeaseInfo{}
		}
	})
}

// SetBinding sets the binding flag explicitly. phoneID replaces the stored
// phone when non-empty.
func (t *Tracker) SetBinding(ctx context.Context, id string, isBound bool, phoneID string) (record.License, error) {
	return t.mutate(ctx, "set binding", id, func(lic *record.License) {
		if phoneID = strings.TrimSpace(phoneID); phoneID != "" {
			lic.BindingInfo.PhoneID = phoneID
		}
		if isBound {
			bind(lic, t.clock.Now())
		} else {
			unbind(lic, t.clock.Now())
		}
	})
}

// Delete removes one license.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	set, err := t.Load(ctx)
	if err != nil {
		return err
	}
	key := record.NormalizeAddress(id)
	if _, ok := set[key]; !ok {
		return notFound("delete license", id)
	}
	delete(set, key)
	return t.Save(ctx, set)
}

func (t *Tracker) mutate(ctx context.Context, op, id string, apply func(*record.License)) (record.License, error) {
	set, err := t.Load(ctx)
	if err != nil {
		return record.License{}, err
	}
	key := record.NormalizeAddress(id)
	lic, ok := set[key]
	if !ok {
		return record.License{}, notFound(op, id)
	}
	apply(&lic)
	lic.UpdatedAt = t.clock.Now()
	set[key] = lic
	if err := t.Save(ctx, set); err != nil {
		return record.License{}, err
	}
	return lic, nil
}

// BindReport summarizes a MarkBound pass.
type BindReport struct {
	// Bound lists the license ids marked bound.
	Bound []string `json:"bound"`
	// Missing lists node ids with no matching license.
	Missing []string `json:"missing,omitempty"`
	// Ambiguous lists node ids matching more than one license.
	Ambiguous []string `json:"ambiguous,omitempty"`
	// Failed lists the license ids that matched but could not be saved.
	Failed []string `json:"failed,omitempty"`
}

// Inconsistencies counts the node ids that were skipped.
func (r BindReport) Inconsistencies() int {
	return len(r.Missing) + len(r.Ambiguous)
}

// MarkBound flips isBound to true for the license of every node id. A node
// without exactly one matching license is a state inconsistency: it is
// logged and skipped. Only a storage failure returns an error.
func (t *Tracker) MarkBound(ctx context.Context, nodeIDs []string) (BindReport, error) {
	var report BindReport
	if len(nodeIDs) == 0 {
		return report, nil
	}

	set, err := t.Load(ctx)
	if err != nil {
		return report, err
	}
	ids := set.IDs()
	now := t.clock.Now()

	for _, nodeID := range distinct(nodeIDs) {
		var matches []string
		for _, id := range ids {
			if record.MatchesNode(id, nodeID) {
				matches = append(matches, id)
			}
		}

		switch len(matches) {
		case 0:
			report.Missing = append(report.Missing, nodeID)
			t.logger.Warn("binding skipped",
				zap.String("node_id", nodeID),
				zap.Error(record.NewStateError("mark bound", "no license matches node")))
		case 1:
			if slices.Contains(report.Bound, matches[0]) {
				continue
			}
			lic := set[matches[0]]
			bind(&lic, now)
			lic.UpdatedAt = now
			set[matches[0]] = lic
			report.Bound = append(report.Bound, matches[0])
		default:
			report.Ambiguous = append(report.Ambiguous, nodeID)
			t.logger.Warn("binding skipped",
				zap.String("node_id", nodeID),
				zap.Strings("license_ids", matches),
				zap.Error(record.NewStateError("mark bound", "node matches several licenses")))
		}
	}

	if len(report.Bound) == 0 {
		return report, nil
	}
	if err := t.Save(ctx, set); err != nil {
		report.Failed, report.Bound = report.Bound, nil
		return report, err
	}
	t.logger.Debug("licenses bound", zap.Strings("license_ids", report.Bound))
	return report, nil
}

func bind(lic *record.License, now time.Time) {
	at := now
	lic.BindingInfo.IsBound = true
	lic.BindingInfo.LastActive = &at
	lic.BindingInfo.DowntimeDays = 0
}

// unbind computes downtime only on the true to false transition. An
// already unbound license keeps its frozen value.
func unbind(lic *record.License, now time.Time) {
	if !lic.BindingInfo.IsBound {
		return
	}
	lic.BindingInfo.IsBound = false
	if lic.BindingInfo.LastActive != nil {
		lic.BindingInfo.DowntimeDays = record.DaysBetween(*lic.BindingInfo.LastActive, now)
	} else {
		lic.BindingInfo.DowntimeDays = 0
	}
}

func notFound(op, id string) error {
	return &record.Error{Kind: record.KindState, Op: op, Message: id, Err: ErrNotFound}
}

// distinct returns the normalized node ids without repeats, sorted.
func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = record.NormalizeAddress(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
