package backup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/nodeledger/internal/clock"
	"github.com/roach88/nodeledger/internal/export"
	"github.com/roach88/nodeledger/internal/record"
	"github.com/roach88/nodeledger/internal/store"
)

// Exporter renders a full snapshot in the requested format.
type Exporter func(ctx context.Context, format export.Format) ([]byte, error)

// Result describes a completed backup.
type Result struct {
	Location    string    `json:"location"`
	Format      string    `json:"format"`
	Bytes       int       `json:"bytes"`
	ChangeCount int       `json:"changeCount"`
	At          time.Time `json:"at"`
}

// Scheduler owns the backup settings and change counter in the store.
type Scheduler struct {
	kv       store.KV
	clock    clock.Clock
	logger   *zap.Logger
	defaults Settings
}

// NewScheduler creates a scheduler. defaults apply until settings are
// saved for the first time.
func NewScheduler(kv store.KV, clk clock.Clock, logger *zap.Logger, defaults Settings) *Scheduler {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{kv: kv, clock: clk, logger: logger, defaults: defaults.normalized()}
}

// Settings loads the stored settings, falling back to the defaults.
func (s *Scheduler) Settings(ctx context.Context) (Settings, error) {
	settings := s.defaults
	if _, err := store.GetJSON(ctx, s.kv, store.KeyBackupSettings, &settings); err != nil {
		return Settings{}, record.WrapStorageError("load backup settings", err)
	}
	return settings.normalized(), nil
}

// SaveSettings validates and stores settings.
func (s *Scheduler) SaveSettings(ctx context.Context, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return record.NewFormatError("save backup settings", err.Error())
	}
	if err := store.PutJSON(ctx, s.kv, store.KeyBackupSettings, settings.normalized()); err != nil {
		return record.WrapStorageError("save backup settings", err)
	}
	return nil
}

// Counter returns the number of changes since the last backup.
func (s *Scheduler) Counter(ctx context.Context) (int, error) {
	var n int
	if _, err := store.GetJSON(ctx, s.kv, store.KeyChangeCounter, &n); err != nil {
		return 0, record.WrapStorageError("load change counter", err)
	}
	return n, nil
}

// Increment adds one change and returns the new count.
func (s *Scheduler) Increment(ctx context.Context) (int, error) {
	n, err := s.Counter(ctx)
	if err != nil {
		return 0, err
	}
	n++
	if err := s.setCounter(ctx, n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Scheduler) setCounter(ctx context.Context, n int) error {
	if err := store.PutJSON(ctx, s.kv, store.KeyChangeCounter, n); err != nil {
		return record.WrapStorageError("save change counter", err)
	}
	return nil
}

// Check reports whether a backup is due now.
func (s *Scheduler) Check(ctx context.Context) (bool, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return false, err
	}
	n, err := s.Counter(ctx)
	if err != nil {
		return false, err
	}
	return ShouldTrigger(settings, n, s.clock.Now()), nil
}

// Run performs a backup regardless of the schedule: export, hand to sink,
// reset the counter, record the backup in the settings.
func (s *Scheduler) Run(ctx context.Context, exp Exporter, sink Sink) (Result, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return Result{}, err
	}
	n, err := s.Counter(ctx)
	if err != nil {
		return Result{}, err
	}

	data, err := exp(ctx, settings.Format)
	if err != nil {
		return Result{}, fmt.Errorf("export backup: %w", err)
	}

	now := s.clock.Now()
	name := FileName(now, settings.TotalBackups+1, settings.Format)
	location, err := sink.Write(ctx, name, data)
	if err != nil {
		return Result{}, fmt.Errorf("write backup: %w", err)
	}

	if err := s.setCounter(ctx, 0); err != nil {
		return Result{}, err
	}
	settings.LastBackupTimestamp = now.UnixMilli()
	settings.LastBackupChangeCount = n
	settings.TotalBackups++
	if err := store.PutJSON(ctx, s.kv, store.KeyBackupSettings, settings); err != nil {
		return Result{}, record.WrapStorageError("save backup settings", err)
	}

	res := Result{Location: location, Format: string(settings.Format), Bytes: len(data), ChangeCount: n, At: now}
	s.logger.Info("backup written",
		zap.String("location", location),
		zap.Int("bytes", len(data)),
		zap.Int("changes", n),
		zap.Int("total_backups", settings.TotalBackups))
	return res, nil
}

// MaybeRun runs a backup when one is due. ran is false when nothing was
// due.
func (s *Scheduler) MaybeRun(ctx context.Context, exp Exporter, sink Sink) (res Result, ran bool, err error) {
	due, err := s.Check(ctx)
	if err != nil || !due {
		return Result{}, false, err
	}
	res, err = s.Run(ctx, exp, sink)
	if err != nil {
		return Result{}, false, err
	}
	return res, true, nil
}

// FileName names the seq-th backup taken at t. The sequence keeps names
// unique when two backups run within the same second.
func FileName(t time.Time, seq int, format export.Format) string {
	return fmt.Sprintf("nodeledger-backup-%s-%04d.%s", t.UTC().Format("20060102-150405"), seq, format.Ext())
}
