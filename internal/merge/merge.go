// Package merge applies a merge policy to validated candidates and
// computes the collection that replaces the stored one.
//
// The package is pure: it never touches the store. The caller commits
// Outcome.Collection with a single write so a batch is applied whole or not
// at all.
package merge

import (
	"fmt"
	"slices"
	"time"

	"github.com/roach88/nodeledger/internal/reconcile"
	"github.com/roach88/nodeledger/internal/record"
)

// IDGenerator produces record ids.
type IDGenerator interface {
	Generate() string
}

// Outcome is the result of merging earnings.
type Outcome struct {
	Policy Policy `json:"policy"`
	// Collection is the complete post-merge collection.
	Collection []record.Earning `json:"-"`
	// Added holds the records that were not stored before, with their
	// final ids.
	Added []record.Earning `json:"added"`
	// Duplicates holds flagged candidates. Under AddAll they were stored
	// anyway; under Skip they were withheld.
	Duplicates     []record.Earning `json:"duplicates,omitempty"`
	AddedCount     int              `json:"addedCount"`
	SkippedCount   int              `json:"skippedCount"`
	DuplicateCount int              `json:"duplicateCount"`
	RemovedCount   int              `json:"removedCount"`
}

// Changed reports whether the collection differs from the stored one.
func (o Outcome) Changed() bool {
	return o.AddedCount > 0 || o.RemovedCount > 0
}

// Earnings merges candidates into existing under policy. Neither input is
// modified.
//
// Skip and AddAll keep stored records untouched and give every accepted
// candidate a fresh id. ReplaceAll keeps a candidate's id when it is
// present and unique within the batch, so restoring a snapshot preserves
// identity.
func Earnings(existing, candidates []record.Earning, policy Policy, ids IDGenerator) (Outcome, error) {
	out := Outcome{Policy: policy}

	switch policy {
	case Skip:
		p := reconcile.Earnings(existing, candidates)
		out.Collection = slices.Grow(clone(existing), p.UniqueCount)
		for _, c := range p.Uniques {
			c.ID = ids.Generate()
			out.Collection = append(out.Collection, c)
			out.Added = append(out.Added, c)
		}
		out.Duplicates = p.Duplicates
		out.DuplicateCount = p.DuplicateCount
		out.SkippedCount = p.DuplicateCount

	case AddAll:
		p := reconcile.Earnings(existing, candidates)
		out.Collection = slices.Grow(clone(existing), len(candidates))
		for i, c := range candidates {
			c.ID = ids.Generate()
			out.Collection = append(out.Collection, c)
			out.Added = append(out.Added, c)
			if p.IsDuplicate[i] {
				out.Duplicates = append(out.Duplicates, c)
			}
		}
		out.DuplicateCount = p.DuplicateCount

	case ReplaceAll:
		p := reconcile.Earnings(nil, candidates)
		used := make(map[string]bool, len(candidates))
		out.Collection = make([]record.Earning, 0, len(candidates))
		for _, c := range candidates {
			if c.ID == "" || used[c.ID] {
				c.ID = ids.Generate()
			}
			used[c.ID] = true
			out.Collection = append(out.Collection, c)
		}
		out.Added = clone(out.Collection)
		out.Duplicates = p.Duplicates
		out.DuplicateCount = p.DuplicateCount
		out.RemovedCount = len(existing)

	default:
		return Outcome{}, fmt.Errorf("merge earnings: %w %d", ErrUnknownPolicy, int(policy))
	}

	out.AddedCount = len(out.Added)
	return out, nil
}

// LicenseOutcome is the result of merging licenses.
type LicenseOutcome struct {
	Policy         Policy            `json:"policy"`
	Collection     record.LicenseSet `json:"-"`
	Added          []string          `json:"added"`
	Updated        []string          `json:"updated,omitempty"`
	Skipped        []string          `json:"skipped,omitempty"`
	AddedCount     int               `json:"addedCount"`
	UpdatedCount   int               `json:"updatedCount"`
	SkippedCount   int               `json:"skippedCount"`
	DuplicateCount int               `json:"duplicateCount"`
	RemovedCount   int               `json:"removedCount"`
}

// Changed reports whether the license set differs from the stored one.
func (o LicenseOutcome) Changed() bool {
	return o.AddedCount > 0 || o.UpdatedCount > 0 || o.RemovedCount > 0
}

// Licenses merges license candidates into existing under policy.
//
// Skip adds unknown ids only. AddAll upserts: a known id is overwritten
// but keeps its stored createdAt. Both stamp updatedAt with now.
// ReplaceAll stores the candidates verbatim; a repeated id keeps its last
// occurrence.
func Licenses(existing record.LicenseSet, candidates []record.License, policy Policy, now time.Time) (LicenseOutcome, error) {
	out := LicenseOutcome{Policy: policy}
	p := reconcile.Licenses(existing, candidates)
	out.DuplicateCount = p.DuplicateCount

	switch policy {
	case Skip:
		out.Collection = existing.Clone()
		for i, c := range candidates {
			if p.IsDuplicate[i] {
				out.Skipped = append(out.Skipped, c.LicenseID)
				continue
			}
			c.UpdatedAt = now
			out.Collection[c.LicenseID] = c
			out.Added = append(out.Added, c.LicenseID)
		}

	case AddAll:
		out.Collection = existing.Clone()
		added := map[string]bool{}
		for _, c := range candidates {
			c.UpdatedAt = now
			if prev, ok := out.Collection[c.LicenseID]; ok {
				c.CreatedAt = prev.CreatedAt
				if !added[c.LicenseID] {
					out.Updated = append(out.Updated, c.LicenseID)
				}
			} else {
				out.Added = append(out.Added, c.LicenseID)
				added[c.LicenseID] = true
			}
			out.Collection[c.LicenseID] = c
		}

	case ReplaceAll:
		out.Collection = make(record.LicenseSet, len(candidates))
		for _, c := range candidates {
			out.Collection[c.LicenseID] = c
			out.Added = appendOnce(out.Added, c.LicenseID)
		}
		out.RemovedCount = len(existing)

	default:
		return LicenseOutcome{}, fmt.Errorf("merge licenses: %w %d", ErrUnknownPolicy, int(policy))
	}

	if out.Collection == nil {
		out.Collection = record.LicenseSet{}
	}
	out.AddedCount = len(out.Added)
	out.UpdatedCount = len(out.Updated)
	out.SkippedCount = len(out.Skipped)
	return out, nil
}

func appendOnce(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func clone(earnings []record.Earning) []record.Earning {
	if earnings == nil {
		return []record.Earning{}
	}
	out := make([]record.Earning, len(earnings))
	copy(out, earnings)
	return out
}
