// Package backup decides when a full snapshot export is due and performs
// it.
//
// State is two store keys: the settings object and a raw change counter.
// Callers increment the counter on every mutating operation and then ask
// separately whether a backup is due. The decision itself, ShouldTrigger,
// is a pure function of settings, counter and clock.
package backup

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/nodeledger/internal/export"
)

// Frequency selects what triggers an automatic backup.
type Frequency string

const (
	Manual         Frequency = "manual"
	Daily          Frequency = "daily"
	Weekly         Frequency = "weekly"
	Every10Changes Frequency = "every_10_changes"
	Every25Changes Frequency = "every_25_changes"
	Every50Changes Frequency = "every_50_changes"
)

// Frequencies lists the accepted frequencies.
var Frequencies = []Frequency{Manual, Daily, Weekly, Every10Changes, Every25Changes, Every50Changes}

// ParseFrequency parses a frequency name. Dashes are accepted in place of
// underscores.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range Frequencies {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown backup frequency %q", s)
}

// Threshold returns the change count of a change-driven frequency, or 0.
func (f Frequency) Threshold() int {
	switch f {
	case Every10Changes:
		return 10
	case Every25Changes:
		return 25
	case Every50Changes:
		return 50
	default:
		return 0
	}
}

// Interval returns the period of a time-driven frequency, or 0.
func (f Frequency) Interval() time.Duration {
	switch f {
	case Daily:
		return 24 * time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Settings is the persisted scheduler configuration and history.
type Settings struct {
	Enabled   bool      `json:"enabled"`
	Frequency Frequency `json:"frequency"`
	// ChangeThreshold is derived from Frequency; 0 for time-driven and
	// manual frequencies.
	ChangeThreshold int `json:"changeThreshold"`
	// LastBackupTimestamp is epoch milliseconds; 0 means never.
	LastBackupTimestamp   int64         `json:"lastBackupTimestamp"`
	LastBackupChangeCount int           `json:"lastBackupChangeCount"`
	TotalBackups          int           `json:"totalBackups"`
	Format                export.Format `json:"format"`
}

// DefaultSettings returns disabled weekly JSON backups.
func DefaultSettings() Settings {
	return Settings{Enabled: false, Frequency: Weekly, Format: export.FormatJSON}
}

// Validate checks frequency and format.
func (s Settings) Validate() error {
	if _, err := ParseFrequency(string(s.Frequency)); err != nil {
		return err
	}
	if _, err := export.ParseFormat(string(s.Format)); err != nil {
		return err
	}
	return nil
}

// normalized fills derived fields.
func (s Settings) normalized() Settings {
	if s.Format == "" {
		s.Format = export.FormatJSON
	}
	s.ChangeThreshold = s.Frequency.Threshold()
	return s
}

// LastBackup returns the time of the last backup and whether there was one.
func (s Settings) LastBackup() (time.Time, bool) {
	if s.LastBackupTimestamp == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(s.LastBackupTimestamp).UTC(), true
}

// ShouldTrigger reports whether an automatic backup is due.
//
// Change-driven frequencies fire when counter reaches the threshold.
// Daily and weekly fire when no backup exists yet or the interval has
// elapsed. Manual and disabled schedulers never fire.
func ShouldTrigger(s Settings, counter int, now time.Time) bool {
	if !s.Enabled {
		return false
	}
	switch s.Frequency {
	case Every10Changes, Every25Changes, Every50Changes:
		return counter >= s.Frequency.Threshold()
	case Daily, Weekly:
		last, ok := s.LastBackup()
		if !ok {
			return true
		}
		return now.Sub(last) >= s.Frequency.Interval()
	case Manual:
		return false
	default:
		return false
	}
}
