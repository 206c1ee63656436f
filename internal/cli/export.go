package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeledger/internal/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	To  string
	Out string
}

// exportTargets are the collections export accepts.
var exportTargets = []string{"earnings", "licenses", "snapshot"}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export earnings|licenses|snapshot",
		Short: "Export records as JSON, CSV or Markdown",
		Long: `Export earnings, licenses or a full snapshot of both.

A JSON snapshot can be restored with "nodeledger restore". CSV of a
snapshot holds both tables separated by a blank line. Markdown renders
the summary report.

Examples:
  nodeledger export snapshot --out backup.json
  nodeledger export earnings --to csv --out earnings.csv
  nodeledger export licenses --to markdown`,
		Args:          cobra.ExactArgs(1),
		ValidArgs:     exportTargets,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "json", "export format: json, csv or markdown")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write to this file instead of standard output")
	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command, target string) error {
	format, err := export.ParseFormat(opts.To)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --to", err)
	}

	return opts.withSession(func(ctx context.Context, s *session) error {
		snap, err := s.ledger.Snapshot(ctx)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		switch target {
		case "snapshot":
			err = export.Write(&buf, format, snap)
		case "earnings":
			err = writeEarnings(&buf, format, snap)
		case "licenses":
			err = writeLicenses(&buf, format, snap)
		default:
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown export target %q: must be one of %v", target, exportTargets))
		}
		if err != nil {
			return WrapExitError(ExitFailure, "export failed", err)
		}

		if opts.Out == "" {
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		if err := os.WriteFile(opts.Out, buf.Bytes(), 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write export", err)
		}
		f := opts.formatter(cmd)
		if f.Format == "json" {
			return f.Success(map[string]any{
				"target": target,
				"format": string(format),
				"path":   opts.Out,
				"bytes":  buf.Len(),
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s as %s to %s (%d bytes)\n", target, format, opts.Out, buf.Len())
		return nil
	})
}

func writeEarnings(w io.Writer, format export.Format, snap export.Snapshot) error {
	switch format {
	case export.FormatCSV:
		return export.EarningsCSV(w, snap.Earnings)
	case export.FormatMarkdown:
		return export.Markdown(w, snap.Earnings, nil, snap.ExportedAt)
	default:
		return export.EarningsJSON(w, snap.Earnings)
	}
}

func writeLicenses(w io.Writer, format export.Format, snap export.Snapshot) error {
	switch format {
	case export.FormatCSV:
		return export.LicensesCSV(w, snap.Licenses)
	case export.FormatMarkdown:
		return export.Markdown(w, nil, snap.Licenses, snap.ExportedAt)
	default:
		return export.LicensesJSON(w, snap.Licenses)
	}
}
