package ledger

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/nodeledger/internal/backup"
	"github.com/roach88/nodeledger/internal/export"
	"github.com/roach88/nodeledger/internal/merge"
	"github.com/roach88/nodeledger/internal/record"
	"github.com/roach88/nodeledger/internal/validate"
)

// Snapshot returns both collections as one exportable document.
func (l *Ledger) Snapshot(ctx context.Context) (export.Snapshot, error) {
	return l.snapshot(ctx)
}

// Export writes the full snapshot to w in format.
func (l *Ledger) Export(ctx context.Context, w io.Writer, format export.Format) error {
	snap, err := l.snapshot(ctx)
	if err != nil {
		return err
	}
	return export.Write(w, format, snap)
}

// RestoreReport describes a restore.
type RestoreReport struct {
	Earnings merge.Outcome        `json:"earnings"`
	Licenses merge.LicenseOutcome `json:"licenses"`
	Backup   *backup.Result       `json:"backup,omitempty"`
}

// Restore replaces both collections with the contents of snap. Every
// record is validated first and a single invalid record aborts the
// restore before anything is written. Earning ids are kept.
//
// The two collections are separate keys: if the license write fails the
// earnings are already replaced, and the error says so.
func (l *Ledger) Restore(ctx context.Context, snap export.Snapshot) (RestoreReport, error) {
	var report RestoreReport

	earnings, err := restoredEarnings(snap.Earnings)
	if err != nil {
		return report, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	licenses, err := restoredLicenses(snap.Licenses, now)
	if err != nil {
		return report, err
	}
	existing, err := l.loadEarnings(ctx)
	if err != nil {
		return report, err
	}
	existingLicenses, err := l.licenses.Load(ctx)
	if err != nil {
		return report, err
	}

	report.Earnings, err = merge.Earnings(existing, earnings, merge.ReplaceAll, l.ids)
	if err != nil {
		return report, err
	}
	report.Licenses, err = merge.Licenses(existingLicenses, licenses, merge.ReplaceAll, now)
	if err != nil {
		return report, err
	}

	if err := l.saveEarnings(ctx, report.Earnings.Collection); err != nil {
		return report, err
	}
	if err := l.licenses.Save(ctx, report.Licenses.Collection); err != nil {
		return report, fmt.Errorf("restore: earnings replaced but licenses kept: %w", err)
	}
	l.logger.Info("snapshot restored",
		zap.Int("earnings", len(report.Earnings.Collection)),
		zap.Int("licenses", len(report.Licenses.Collection)),
		zap.Time("exported_at", snap.ExportedAt))

	report.Backup = l.changed(ctx, "restore")
	return report, nil
}

// RestoreFrom reads a JSON snapshot from r and restores it.
func (l *Ledger) RestoreFrom(ctx context.Context, r io.Reader) (RestoreReport, error) {
	snap, err := export.ReadSnapshot(r)
	if err != nil {
		return RestoreReport{}, formatError("restore", err)
	}
	return l.Restore(ctx, snap)
}

func restoredEarnings(in []record.Earning) ([]record.Earning, error) {
	if len(in) == 0 {
		return []record.Earning{}, nil
	}
	cs := make([]record.Candidate, len(in))
	for i, e := range in {
		cs[i] = record.FromEarning(e)
	}
	if err := firstInvalid("restore earnings", validate.Earnings(cs)); err != nil {
		return nil, err
	}
	out := make([]record.Earning, 0, len(cs))
	for _, c := range cs {
		e, err := record.ToEarning(c)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func restoredLicenses(in record.LicenseSet, now time.Time) ([]record.License, error) {
	if len(in) == 0 {
		return []record.License{}, nil
	}
	// The map key fills in a missing licenseId, as on JSON import.
	ids := in.IDs()
	cs := make([]record.Candidate, len(ids))
	for i, id := range ids {
		lic := in[id]
		if strings.TrimSpace(lic.LicenseID) == "" {
			lic.LicenseID = id
		}
		cs[i] = record.FromLicense(lic)
	}
	if err := firstInvalid("restore licenses", validate.Licenses(cs, nil)); err != nil {
		return nil, err
	}
	out := make([]record.License, 0, len(cs))
	for _, c := range cs {
		lic, err := record.ToLicense(c, now)
		if err != nil {
			return nil, err
		}
		out = append(out, lic)
	}
	return out, nil
}

func firstInvalid(op string, batch validate.BatchResult) error {
	errs := batch.AllErrors()
	if len(errs) == 0 {
		return nil
	}
	return &record.Error{
		Kind:    record.KindFormat,
		Op:      op,
		Message: fmt.Sprintf("%d invalid record(s)", batch.InvalidCount),
		Err:     errs[0],
	}
}

// BackupStatus is the backup settings together with the pending change
// count and whether a backup is due now.
type BackupStatus struct {
	Settings backup.Settings `json:"settings"`
	Changes  int             `json:"changes"`
	Due      bool            `json:"due"`
}

// BackupStatus reports the backup state.
func (l *Ledger) BackupStatus(ctx context.Context) (BackupStatus, error) {
	settings, err := l.backups.Settings(ctx)
	if err != nil {
		return BackupStatus{}, err
	}
	n, err := l.backups.Counter(ctx)
	if err != nil {
		return BackupStatus{}, err
	}
	return BackupStatus{
		Settings: settings,
		Changes:  n,
		Due:      backup.ShouldTrigger(settings, n, l.clock.Now()),
	}, nil
}

// SaveBackupSettings validates and stores the backup settings. The backup
// history fields are kept from the stored settings, and an empty format
// keeps the stored format.
func (l *Ledger) SaveBackupSettings(ctx context.Context, settings backup.Settings) (backup.Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.backups.Settings(ctx)
	if err != nil {
		return backup.Settings{}, err
	}
	if settings.Format == "" {
		settings.Format = current.Format
	}
	settings.LastBackupTimestamp = current.LastBackupTimestamp
	settings.LastBackupChangeCount = current.LastBackupChangeCount
	settings.TotalBackups = current.TotalBackups
	if err := l.backups.SaveSettings(ctx, settings); err != nil {
		return backup.Settings{}, err
	}
	return l.backups.Settings(ctx)
}

// BackupNow writes a backup regardless of the schedule.
func (l *Ledger) BackupNow(ctx context.Context) (backup.Result, error) {
	if l.sink == nil {
		return backup.Result{}, ErrNoBackupSink
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backups.Run(ctx, l.render, l.sink)
}
