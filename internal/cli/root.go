package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/nodeledger/internal/backup"
	"github.com/roach88/nodeledger/internal/clock"
	"github.com/roach88/nodeledger/internal/config"
	"github.com/roach88/nodeledger/internal/ledger"
	"github.com/roach88/nodeledger/internal/logging"
	"github.com/roach88/nodeledger/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string
	Backend    string

	// Config, Logger and Clock are resolved on first use when nil. Tests
	// set them directly.
	Config *config.Config
	Logger *zap.Logger
	Clock  clock.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the nodeledger CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodeledger",
		Short: "Track node earnings and the license inventory",
		Long: `nodeledger keeps node earnings and node licenses in a local store.

Earnings are imported from pasted dashboard text, CSV or JSON, validated,
checked for duplicates and merged under a policy (skip, add-all or
replace-all). Licenses are bound automatically when their node earns.
Backups are written after a configurable number of changes or time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the database (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "store backend: sqlite, bolt or memory (overrides config)")

	// Add subcommands
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewEarningsCommand(opts))
	cmd.AddCommand(NewLicenseCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewUnboundCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
// Errors are reported on stdout in the selected format.
func Execute(args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	f := &OutputFormatter{Format: opts.Format, Writer: stdout, ErrWriter: stderr, Verbose: opts.Verbose}
	if !isValidFormat(f.Format) {
		f.Format = "text"
	}
	_ = f.Error(ErrorCode(err), err.Error(), errorDetails(err))
	return GetExitCode(err)
}

func errorDetails(err error) any {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Report
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// session is one opened store with the ledger over it.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	kv     store.KV
	ledger *ledger.Ledger
}

func (s *session) Close() error {
	_ = s.logger.Sync()
	return s.kv.Close()
}

// open resolves configuration, flags and logger, then opens the store.
func (o *RootOptions) open() (*session, error) {
	cfg := o.Config
	if cfg == nil {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
		}
		cfg = loaded
		o.Config = cfg
	}
	if o.Database != "" {
		cfg.Store.Path = o.Database
	}
	if o.Backend != "" {
		cfg.Store.Backend = o.Backend
	}

	logger := o.Logger
	if logger == nil {
		level := cfg.Log.Level
		if o.Verbose {
			level = "debug"
		}
		built, err := logging.New(level, cfg.Log.Development)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to build logger", err)
		}
		logger = built
		o.Logger = logger
	}

	defaults, err := cfg.BackupDefaults()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid backup configuration", err)
	}

	kv, err := store.OpenBackend(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("store opened", zap.String("backend", cfg.Store.Backend), zap.String("path", cfg.Store.Path))

	lopts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithBackupDefaults(defaults),
		ledger.WithBackupSink(backup.DirSink{Dir: cfg.Backup.Dir}),
	}
	if o.Clock != nil {
		lopts = append(lopts, ledger.WithClock(o.Clock))
	}
	return &session{cfg: cfg, logger: logger, kv: kv, ledger: ledger.New(kv, lopts...)}, nil
}

// withSession opens a session, runs fn and closes the session.
func (o *RootOptions) withSession(fn func(ctx context.Context, s *session) error) error {
	ctx := context.Background()
	s, err := o.open()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}
