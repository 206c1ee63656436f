package ledger

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/roach88/nodeledger/internal/backup"
	"github.com/roach88/nodeledger/internal/license"
	"github.com/roach88/nodeledger/internal/merge"
	"github.com/roach88/nodeledger/internal/parse"
	"github.com/roach88/nodeledger/internal/record"
	"github.com/roach88/nodeledger/internal/validate"
)

// ImportReport describes an earnings import from raw input to commit.
type ImportReport struct {
	Policy     merge.Policy         `json:"policy"`
	Unparsed   []parse.Unparsed     `json:"unparsed,omitempty"`
	Validation validate.BatchResult `json:"validation"`
	Outcome    merge.Outcome        `json:"outcome"`
	Binding    license.BindReport   `json:"binding"`
	// Backup is set when the import triggered an automatic backup.
	Backup *backup.Result `json:"backup,omitempty"`
}

// LicenseImportReport describes a license import.
type LicenseImportReport struct {
	Policy     merge.Policy         `json:"policy"`
	Unparsed   []parse.Unparsed     `json:"unparsed,omitempty"`
	Validation validate.BatchResult `json:"validation"`
	Outcome    merge.LicenseOutcome `json:"outcome"`
	Backup     *backup.Result       `json:"backup,omitempty"`
}

// ImportText parses pasted dashboard text and imports the earnings found.
// Fragments the parser could not read are reported in Unparsed.
func (l *Ledger) ImportText(ctx context.Context, input string, policy merge.Policy) (ImportReport, error) {
	res, err := parse.Text(input)
	if err != nil {
		return ImportReport{Policy: policy}, formatError("import text", err)
	}
	report, err := l.ImportCandidates(ctx, res.Records, policy)
	report.Unparsed = res.Unparsed
	return report, err
}

// ImportCSV imports earnings from CSV. A nil cols detects the columns from
// the header.
func (l *Ledger) ImportCSV(ctx context.Context, r io.Reader, cols *parse.ColumnMap, policy merge.Policy) (ImportReport, error) {
	res, err := parse.EarningsCSV(r, cols)
	if err != nil {
		return ImportReport{Policy: policy}, formatError("import csv", err)
	}
	report, err := l.ImportCandidates(ctx, res.Records, policy)
	report.Unparsed = res.Unparsed
	return report, err
}

// ImportJSON imports an array of earnings. path optionally selects the
// array inside a larger document, e.g. "$.earnings" in a snapshot.
func (l *Ledger) ImportJSON(ctx context.Context, data []byte, path string, policy merge.Policy) (ImportReport, error) {
	res, err := parse.EarningsJSON(data, path)
	if err != nil {
		return ImportReport{Policy: policy}, formatError("import json", err)
	}
	report, err := l.ImportCandidates(ctx, res.Records, policy)
	report.Unparsed = res.Unparsed
	return report, err
}

// ImportCandidates validates, merges and commits earning candidates.
//
// Invalid candidates are reported and left out; the call fails with
// ErrNothingToImport only when none is valid. When the merge changes
// nothing (a skip import of known records) nothing is written and the
// change counter does not move.
func (l *Ledger) ImportCandidates(ctx context.Context, cs []record.Candidate, policy merge.Policy) (ImportReport, error) {
	report := ImportReport{Policy: policy}
	if !policy.Valid() {
		return report, fmt.Errorf("import earnings: %w %d", merge.ErrUnknownPolicy, int(policy))
	}

	report.Validation = validate.Earnings(cs)
	batch := make([]record.Earning, 0, report.Validation.ValidCount)
	for _, res := range report.Validation.Results {
		if !res.IsValid {
			continue
		}
		e, err := record.ToEarning(cs[res.Index])
		if err != nil {
			return report, err
		}
		batch = append(batch, e)
	}
	if len(batch) == 0 {
		return report, formatError("import earnings", ErrNothingToImport)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.loadEarnings(ctx)
	if err != nil {
		return report, err
	}
	outcome, err := merge.Earnings(existing, batch, policy, l.ids)
	if err != nil {
		return report, err
	}
	report.Outcome = outcome
	if !outcome.Changed() {
		l.logger.Info("earnings import changed nothing",
			zap.Stringer("policy", policy),
			zap.Int("duplicates", outcome.DuplicateCount))
		return report, nil
	}

	if err := l.saveEarnings(ctx, outcome.Collection); err != nil {
		return report, err
	}
	l.logger.Info("earnings imported",
		zap.Stringer("policy", policy),
		zap.Int("added", outcome.AddedCount),
		zap.Int("duplicates", outcome.DuplicateCount),
		zap.Int("invalid", report.Validation.InvalidCount),
		zap.Int("total", len(outcome.Collection)))

	report.Binding = l.bindNodes(ctx, outcome.Added)
	report.Backup = l.changed(ctx, "import earnings")
	return report, nil
}

// ImportLicensesCSV imports licenses from CSV using cols to map headers to
// fields.
func (l *Ledger) ImportLicensesCSV(ctx context.Context, r io.Reader, cols parse.LicenseColumns, policy merge.Policy) (LicenseImportReport, error) {
	res, err := parse.LicensesCSV(r, cols)
	if err != nil {
		return LicenseImportReport{Policy: policy}, formatError("import licenses csv", err)
	}
	report, err := l.ImportLicenseCandidates(ctx, res.Records, policy)
	report.Unparsed = res.Unparsed
	return report, err
}

// ImportLicensesJSON imports a license object keyed by license id. path
// optionally selects the object, e.g. "$.licenses" in a snapshot.
func (l *Ledger) ImportLicensesJSON(ctx context.Context, data []byte, path string, policy merge.Policy) (LicenseImportReport, error) {
	res, err := parse.LicensesJSON(data, path)
	if err != nil {
		return LicenseImportReport{Policy: policy}, formatError("import licenses json", err)
	}
	report, err := l.ImportLicenseCandidates(ctx, res.Records, policy)
	report.Unparsed = res.Unparsed
	return report, err
}

// ImportLicenseCandidates validates, merges and commits license
// candidates. Ids that already exist are reported as duplicates and
// handled by policy; they never make a candidate invalid.
func (l *Ledger) ImportLicenseCandidates(ctx context.Context, cs []record.Candidate, policy merge.Policy) (LicenseImportReport, error) {
	report := LicenseImportReport{Policy: policy}
	if !policy.Valid() {
		return report, fmt.Errorf("import licenses: %w %d", merge.ErrUnknownPolicy, int(policy))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.licenses.Load(ctx)
	if err != nil {
		return report, err
	}
	report.Validation = validate.Licenses(cs, existing)
	now := l.clock.Now()
	batch := make([]record.License, 0, report.Validation.ValidCount)
	for _, res := range report.Validation.Results {
		if !res.IsValid {
			continue
		}
		lic, err := record.ToLicense(cs[res.Index], now)
		if err != nil {
			return report, err
		}
		batch = append(batch, lic)
	}
	if len(batch) == 0 {
		return report, formatError("import licenses", ErrNothingToImport)
	}

	outcome, err := merge.Licenses(existing, batch, policy, now)
	if err != nil {
		return report, err
	}
	report.Outcome = outcome
	if !outcome.Changed() {
		l.logger.Info("license import changed nothing",
			zap.Stringer("policy", policy),
			zap.Int("duplicates", outcome.DuplicateCount))
		return report, nil
	}

	if err := l.licenses.Save(ctx, outcome.Collection); err != nil {
		return report, err
	}
	l.logger.Info("licenses imported",
		zap.Stringer("policy", policy),
		zap.Int("added", outcome.AddedCount),
		zap.Int("updated", outcome.UpdatedCount),
		zap.Int("skipped", outcome.SkippedCount),
		zap.Int("invalid", report.Validation.InvalidCount))

	report.Backup = l.changed(ctx, "import licenses")
	return report, nil
}
