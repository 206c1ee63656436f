package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeledger/internal/backup"
	"github.com/roach88/nodeledger/internal/export"
	"github.com/roach88/nodeledger/internal/ledger"
)

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <snapshot.json>",
		Short: "Replace all records with a JSON snapshot",
		Long: `Replace the stored earnings and licenses with the contents of a JSON
snapshot written by "nodeledger export snapshot" or a backup.

Every record is validated first; a single invalid record aborts the
restore and nothing is changed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(rootOpts, cmd, args[0])
		},
	}
}

func runRestore(opts *RootOptions, cmd *cobra.Command, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open snapshot", err)
	}
	defer file.Close()

	return opts.withSession(func(ctx context.Context, s *session) error {
		report, err := s.ledger.RestoreFrom(ctx, file)
		if err != nil {
			return err
		}
		f := opts.formatter(cmd)
		if f.Format == "json" {
			return f.Success(report)
		}
		fmt.Fprintf(f.Writer, "Restored %d earning(s) and %d license(s) from %s\n",
			len(report.Earnings.Collection), len(report.Licenses.Collection), path)
		if report.Backup != nil {
			fmt.Fprintf(f.Writer, "  backup written: %s\n", report.Backup.Location)
		}
		return nil
	})
}

// BackupOptions holds flags for the backup commands.
type BackupOptions struct {
	*RootOptions
	Enabled   bool
	Frequency string
	To        string
}

// NewBackupCommand creates the backup command group.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Inspect, configure and run backups",
		Long: `Backups are full snapshots written to the configured backup directory.

When enabled, a backup runs automatically after a number of changes
(every_10_changes, every_25_changes, every_50_changes) or once the
interval has passed (daily, weekly). Manual backups only run on request.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newBackupStatusCommand(rootOpts))
	cmd.AddCommand(newBackupConfigureCommand(rootOpts))
	cmd.AddCommand(newBackupRunCommand(rootOpts))
	return cmd
}

func newBackupStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show backup settings and pending changes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(func(ctx context.Context, s *session) error {
				st, err := s.ledger.BackupStatus(ctx)
				if err != nil {
					return err
				}
				f := rootOpts.formatter(cmd)
				if f.Format == "json" {
					return f.Success(st)
				}
				printBackupStatus(f, st)
				return nil
			})
		},
	}
}

func printBackupStatus(f *OutputFormatter, st ledger.BackupStatus) {
	last := "never"
	if t, ok := st.Settings.LastBackup(); ok {
		last = t.UTC().Format(time.RFC3339)
	}
	threshold := export.NotAvailable
	if st.Settings.ChangeThreshold > 0 {
		threshold = fmt.Sprint(st.Settings.ChangeThreshold)
	}
	f.Table([]string{"Backup", "Value"}, [][]string{
		{"Enabled", fmt.Sprint(st.Settings.Enabled)},
		{"Frequency", string(st.Settings.Frequency)},
		{"Change threshold", threshold},
		{"Format", string(st.Settings.Format)},
		{"Changes since last backup", fmt.Sprint(st.Changes)},
		{"Last backup", last},
		{"Total backups", fmt.Sprint(st.Settings.TotalBackups)},
		{"Due", fmt.Sprint(st.Due)},
	})
}

func newBackupConfigureCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BackupOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Change the backup settings",
		Long: `Change the stored backup settings. Flags that are not given keep their
stored value.

Examples:
  nodeledger backup configure --enabled --frequency every_10_changes
  nodeledger backup configure --to csv
  nodeledger backup configure --enabled=false`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupConfigure(opts, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Enabled, "enabled", false, "turn automatic backups on or off")
	cmd.Flags().StringVar(&opts.Frequency, "frequency", "", "manual, daily, weekly, every_10_changes, every_25_changes or every_50_changes")
	cmd.Flags().StringVar(&opts.To, "to", "", "backup format: json, csv or markdown")
	return cmd
}

func runBackupConfigure(opts *BackupOptions, cmd *cobra.Command) error {
	return opts.withSession(func(ctx context.Context, s *session) error {
		st, err := s.ledger.BackupStatus(ctx)
		if err != nil {
			return err
		}
		settings := st.Settings
		if cmd.Flags().Changed("enabled") {
			settings.Enabled = opts.Enabled
		}
		if opts.Frequency != "" {
			freq, err := backup.ParseFrequency(opts.Frequency)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --frequency", err)
			}
			settings.Frequency = freq
		}
		if opts.To != "" {
			format, err := export.ParseFormat(opts.To)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --to", err)
			}
			settings.Format = format
		}

		if _, err := s.ledger.SaveBackupSettings(ctx, settings); err != nil {
			return err
		}
		st, err = s.ledger.BackupStatus(ctx)
		if err != nil {
			return err
		}

		f := opts.formatter(cmd)
		if f.Format == "json" {
			return f.Success(st)
		}
		fmt.Fprintln(f.Writer, "Backup settings saved")
		printBackupStatus(f, st)
		return nil
	})
}

func newBackupRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "run",
		Short:         "Write a backup now",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(func(ctx context.Context, s *session) error {
				res, err := s.ledger.BackupNow(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "backup failed", err)
				}
				f := rootOpts.formatter(cmd)
				if f.Format == "json" {
					return f.Success(res)
				}
				fmt.Fprintf(f.Writer, "Backup written: %s (%s, %d bytes)\n", res.Location, res.Format, res.Bytes)
				return nil
			})
		},
	}
}
