// Package reconcile finds candidate records that repeat records already
// stored or earlier records of the same batch.
//
// Matching is exact. Two earnings match when node id, amount and date are
// all equal; there is no tolerance on amount or date. A match is advisory:
// the merge policy decides whether duplicates are kept.
package reconcile

import (
	"github.com/roach88/nodeledger/internal/record"
)

// Key is the composite duplicate key of an earning.
type Key struct {
	NodeID string
	Amount float64
	Date   string
}

// KeyOf returns the duplicate key of e.
func KeyOf(e record.Earning) Key {
	return Key{NodeID: e.NodeID, Amount: e.Amount, Date: e.Date}
}

// Partition splits a candidate batch into uniques and duplicates.
// IsDuplicate is parallel to the candidate slice.
type Partition struct {
	Uniques        []record.Earning
	Duplicates     []record.Earning
	UniqueCount    int
	DuplicateCount int
	IsDuplicate    []bool
}

// Earnings partitions candidates against the existing collection and
// against each other. The first occurrence of a key inside the batch is
// unique; later ones are duplicates.
func Earnings(existing, candidates []record.Earning) Partition {
	seen := make(map[Key]struct{}, len(existing)+len(candidates))
	for _, e := range existing {
		seen[KeyOf(e)] = struct{}{}
	}

	p := Partition{IsDuplicate: make([]bool, len(candidates))}
	for i, c := range candidates {
		k := KeyOf(c)
		if _, dup := seen[k]; dup {
			p.IsDuplicate[i] = true
			p.Duplicates = append(p.Duplicates, c)
			continue
		}
		seen[k] = struct{}{}
		p.Uniques = append(p.Uniques, c)
	}
	p.UniqueCount = len(p.Uniques)
	p.DuplicateCount = len(p.Duplicates)
	return p
}

// LicensePartition splits license candidates by whether their id is
// already known.
type LicensePartition struct {
	New            []record.License
	Duplicates     []record.License
	NewCount       int
	DuplicateCount int
	IsDuplicate    []bool
}

// Licenses partitions license candidates by licenseId against the existing
// set and earlier candidates of the batch.
func Licenses(existing record.LicenseSet, candidates []record.License) LicensePartition {
	seen := make(map[string]struct{}, len(existing)+len(candidates))
	for id := range existing {
		seen[id] = struct{}{}
	}

	p := LicensePartition{IsDuplicate: make([]bool, len(candidates))}
	for i, c := range candidates {
		if _, dup := seen[c.LicenseID]; dup {
			p.IsDuplicate[i] = true
			p.Duplicates = append(p.Duplicates, c)
			continue
		}
		seen[c.LicenseID] = struct{}{}
		p.New = append(p.New, c)
	}
	p.NewCount = len(p.New)
	p.DuplicateCount = len(p.Duplicates)
	return p
}

// DuplicateKeys returns the keys that occur more than once in earnings.
func DuplicateKeys(earnings []record.Earning) map[Key]int {
	counts := make(map[Key]int, len(earnings))
	for _, e := range earnings {
		counts[KeyOf(e)]++
	}
	for k, n := range counts {
		if n < 2 {
			delete(counts, k)
		}
	}
	return counts
}
