// Package export serializes the stored collections.
//
// JSON is a full fidelity round trip. CSV flattens records and fills
// missing optional fields with Unmapped or N/A. Markdown is a lossy human
// report.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/nodeledger/internal/record"
)

// Format is an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat parses a format name. "md" is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown export format %q: want json, csv or markdown", s)
	}
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// SnapshotVersion is the version written into snapshots.
const SnapshotVersion = 1

// Snapshot is a full point-in-time copy of both collections.
type Snapshot struct {
	Version    int               `json:"version"`
	ExportedAt time.Time         `json:"exportedAt"`
	Earnings   []record.Earning  `json:"earnings"`
	Licenses   record.LicenseSet `json:"licenses"`
}

// NewSnapshot builds a snapshot. Nil collections become empty ones so the
// JSON never carries null.
func NewSnapshot(earnings []record.Earning, licenses record.LicenseSet, now time.Time) Snapshot {
	if earnings == nil {
		earnings = []record.Earning{}
	}
	if licenses == nil {
		licenses = record.LicenseSet{}
	}
	return Snapshot{Version: SnapshotVersion, ExportedAt: now.UTC(), Earnings: earnings, Licenses: licenses}
}

// EarningsJSON writes the earnings as an indented JSON array.
func EarningsJSON(w io.Writer, earnings []record.Earning) error {
	if earnings == nil {
		earnings = []record.Earning{}
	}
	return writeJSON(w, earnings)
}

// LicensesJSON writes the licenses as a JSON object keyed by license id.
func LicensesJSON(w io.Writer, licenses record.LicenseSet) error {
	if licenses == nil {
		licenses = record.LicenseSet{}
	}
	return writeJSON(w, licenses)
}

// SnapshotJSON writes snap as indented JSON.
func SnapshotJSON(w io.Writer, snap Snapshot) error {
	return writeJSON(w, snap)
}

// ReadSnapshot decodes a snapshot written by SnapshotJSON.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version == 0 || snap.Version > SnapshotVersion {
		return Snapshot{}, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return snap, nil
}

// Write renders snap in format f. CSV writes the earnings table, a blank
// line, then the license table.
func Write(w io.Writer, f Format, snap Snapshot) error {
	switch f {
	case FormatJSON:
		return SnapshotJSON(w, snap)
	case FormatCSV:
		if err := EarningsCSV(w, snap.Earnings); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		return LicensesCSV(w, snap.Licenses)
	case FormatMarkdown:
		return Markdown(w, snap.Earnings, snap.Licenses, snap.ExportedAt)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
