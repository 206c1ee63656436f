package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeledger/internal/ledger"
	"github.com/roach88/nodeledger/internal/merge"
	"github.com/roach88/nodeledger/internal/parse"
)

// ImportOptions holds flags for the import commands.
type ImportOptions struct {
	*RootOptions
	Source  string // "text" | "csv" | "json"; empty detects from the file name
	Policy  string
	Path    string // JSONPath selecting the records inside a larger document
	Columns string // explicit CSV mapping, field=Header,...
}

// ReportError carries the partial report of a failed import so the JSON
// error response can include the validation details.
type ReportError struct {
	Err    error
	Report any
}

func (e *ReportError) Error() string { return e.Err.Error() }
func (e *ReportError) Unwrap() error { return e.Err }

// NewImportCommand creates the import command group.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import earnings or licenses",
		Long: `Import earnings or licenses from a file or standard input.

Records are validated and checked for duplicates before they are merged.
The policy decides what happens to duplicates:
  skip         keep existing records, add only new ones
  add-all      add every valid record, duplicates included
  replace-all  replace the stored collection with the import`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newImportEarningsCommand(rootOpts))
	cmd.AddCommand(newImportLicensesCommand(rootOpts))
	return cmd
}

func newImportEarningsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "earnings [file|-]",
		Short: "Import earnings from pasted text, CSV or JSON",
		Long: `Import earnings from pasted dashboard text, CSV or JSON.

The source is detected from the file extension (.csv, .json, anything
else is text) unless --source is given. Reads standard input when the
file is "-" or omitted.

Examples:
  nodeledger import earnings dashboard.txt
  nodeledger import earnings payouts.csv --policy skip
  nodeledger import earnings payouts.csv --columns "date=Paid On,nodeId=Device,amount=USD"
  nodeledger import earnings backup.json --path '$.earnings' --policy replace-all`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportEarnings(opts, cmd, args)
		},
	}

	addImportFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Columns, "columns", "", "CSV column mapping, field=Header pairs separated by commas")
	return cmd
}

func newImportLicensesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "licenses [file|-]",
		Short: "Import licenses from CSV or JSON",
		Long: `Import licenses from CSV or a JSON object keyed by license id.

Examples:
  nodeledger import licenses inventory.csv
  nodeledger import licenses backup.json --path '$.licenses' --policy add-all`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportLicenses(opts, cmd, args)
		},
	}

	addImportFlags(cmd, opts)
	return cmd
}

func addImportFlags(cmd *cobra.Command, opts *ImportOptions) {
	cmd.Flags().StringVar(&opts.Source, "source", "", "input kind: text, csv or json (default: from file extension)")
	cmd.Flags().StringVar(&opts.Policy, "policy", "", "duplicate policy: skip, add-all or replace-all (default from config)")
	cmd.Flags().StringVar(&opts.Path, "path", "", "JSONPath selecting the records in a JSON document")
}

func runImportEarnings(opts *ImportOptions, cmd *cobra.Command, args []string) error {
	f := opts.formatter(cmd)
	name, data, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	source, err := detectSource(opts.Source, name)
	if err != nil {
		return err
	}

	return opts.withSession(func(ctx context.Context, s *session) error {
		policy, err := resolvePolicy(opts.Policy, s.cfg.EarningsPolicy)
		if err != nil {
			return err
		}
		f.VerboseLog("Importing earnings from %s as %s with policy %s", name, source, policy)

		var report ledger.ImportReport
		switch source {
		case "csv":
			cols, err := csvColumns(opts.Columns, data)
			if err != nil {
				return err
			}
			report, err = s.ledger.ImportCSV(ctx, bytes.NewReader(data), cols, policy)
			if err != nil {
				return &ReportError{Err: err, Report: report}
			}
		case "json":
			report, err = s.ledger.ImportJSON(ctx, data, opts.Path, policy)
			if err != nil {
				return &ReportError{Err: err, Report: report}
			}
		default:
			report, err = s.ledger.ImportText(ctx, string(data), policy)
			if err != nil {
				return &ReportError{Err: err, Report: report}
			}
		}

		if f.Format == "json" {
			return f.Success(report)
		}
		printImportReport(cmd.OutOrStdout(), report)
		return nil
	})
}

func runImportLicenses(opts *ImportOptions, cmd *cobra.Command, args []string) error {
	f := opts.formatter(cmd)
	name, data, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	source, err := detectSource(opts.Source, name)
	if err != nil {
		return err
	}

	return opts.withSession(func(ctx context.Context, s *session) error {
		policy, err := resolvePolicy(opts.Policy, s.cfg.LicensesPolicy)
		if err != nil {
			return err
		}
		f.VerboseLog("Importing licenses from %s as %s with policy %s", name, source, policy)

		var report ledger.LicenseImportReport
		switch source {
		case "csv":
			report, err = s.ledger.ImportLicensesCSV(ctx, bytes.NewReader(data), nil, policy)
		case "json":
			report, err = s.ledger.ImportLicensesJSON(ctx, data, opts.Path, policy)
		default:
			return NewExitError(ExitCommandError, "licenses can only be imported from csv or json")
		}
		if err != nil {
			return &ReportError{Err: err, Report: report}
		}

		if f.Format == "json" {
			return f.Success(report)
		}
		printLicenseImportReport(cmd.OutOrStdout(), report)
		return nil
	})
}

// readInput reads the named file, or standard input for "-" or no
// argument. It returns the display name alongside the content.
func readInput(cmd *cobra.Command, args []string) (string, []byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", nil, WrapExitError(ExitCommandError, "failed to read standard input", err)
		}
		return "stdin", data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", nil, WrapExitError(ExitCommandError, "failed to read input file", err)
	}
	return args[0], data, nil
}

func detectSource(flag, name string) (string, error) {
	if flag != "" {
		switch s := strings.ToLower(flag); s {
		case "text", "csv", "json":
			return s, nil
		default:
			return "", NewExitError(ExitCommandError, fmt.Sprintf("invalid source %q: must be text, csv or json", flag))
		}
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "csv", nil
	case ".json":
		return "json", nil
	default:
		return "text", nil
	}
}

// resolvePolicy parses the flag value, falling back to the configured
// default when the flag is empty.
func resolvePolicy(flag string, configured func() (merge.Policy, error)) (merge.Policy, error) {
	if flag == "" {
		return configured()
	}
	p, err := merge.ParsePolicy(flag)
	if err != nil {
		return p, WrapExitError(ExitCommandError, "invalid --policy", err)
	}
	return p, nil
}

// csvColumns turns --columns into a ColumnMap against the CSV header. An
// empty flag returns nil so the parser detects the columns itself.
func csvColumns(flag string, data []byte) (*parse.ColumnMap, error) {
	if flag == "" {
		return nil, nil
	}
	names := map[string]string{}
	for _, pair := range strings.Split(flag, ",") {
		field, header, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(field) == "" || strings.TrimSpace(header) == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid --columns entry %q: want field=Header", pair))
		}
		names[strings.TrimSpace(field)] = strings.TrimSpace(header)
	}

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read csv header", err)
	}
	cols, err := parse.ColumnsFromNames(header, names)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --columns", err)
	}
	return &cols, nil
}

func printImportReport(w io.Writer, r ledger.ImportReport) {
	o := r.Outcome
	fmt.Fprintf(w, "Imported %d earning(s) with policy %s\n", o.AddedCount, r.Policy)
	fmt.Fprintf(w, "  valid: %d  invalid: %d  duplicates: %d\n",
		r.Validation.ValidCount, r.Validation.InvalidCount, o.DuplicateCount)
	if o.SkippedCount > 0 {
		fmt.Fprintf(w, "  skipped: %d\n", o.SkippedCount)
	}
	if o.RemovedCount > 0 {
		fmt.Fprintf(w, "  replaced: %d\n", o.RemovedCount)
	}
	for _, issue := range r.Validation.AllErrors() {
		fmt.Fprintf(w, "  ! %s\n", issue)
	}
	for _, u := range r.Unparsed {
		fmt.Fprintf(w, "  ? %s\n", u)
	}
	if n := len(r.Binding.Bound); n > 0 {
		fmt.Fprintf(w, "  licenses bound: %s\n", strings.Join(r.Binding.Bound, ", "))
	}
	if n := len(r.Binding.Failed); n > 0 {
		fmt.Fprintf(w, "  licenses not bound (storage error): %s\n", strings.Join(r.Binding.Failed, ", "))
	}
	if r.Backup != nil {
		fmt.Fprintf(w, "  backup written: %s\n", r.Backup.Location)
	}
}

func printLicenseImportReport(w io.Writer, r ledger.LicenseImportReport) {
	o := r.Outcome
	fmt.Fprintf(w, "Imported licenses with policy %s\n", r.Policy)
	fmt.Fprintf(w, "  added: %d  updated: %d  skipped: %d  invalid: %d\n",
		o.AddedCount, o.UpdatedCount, o.SkippedCount, r.Validation.InvalidCount)
	for _, issue := range r.Validation.AllErrors() {
		fmt.Fprintf(w, "  ! %s\n", issue)
	}
	for _, u := range r.Unparsed {
		fmt.Fprintf(w, "  ? %s\n", u)
	}
	if r.Backup != nil {
		fmt.Fprintf(w, "  backup written: %s\n", r.Backup.Location)
	}
}
