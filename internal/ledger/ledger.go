package ledger

import (
	"bytes"
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/roach88/nodeledger/internal/backup"
	"github.com/roach88/nodeledger/internal/clock"
	"github.com/roach88/nodeledger/internal/export"
	"github.com/roach88/nodeledger/internal/license"
	"github.com/roach88/nodeledger/internal/merge"
	"github.com/roach88/nodeledger/internal/record"
	"github.com/roach88/nodeledger/internal/store"
)

// Ledger owns the earnings and license collections of one store.
type Ledger struct {
	mu sync.Mutex

	kv       store.KV
	clock    clock.Clock
	ids      merge.IDGenerator
	logger   *zap.Logger
	sink     backup.Sink
	defaults backup.Settings

	licenses *license.Tracker
	backups  *backup.Scheduler
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the clock used for timestamps, recency views and the
// backup schedule. Default: clock.System.
func WithClock(c clock.Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithIDGenerator sets the generator of earning ids. Default:
// UUIDv7Generator.
func WithIDGenerator(g merge.IDGenerator) Option {
	return func(l *Ledger) {
		l.ids = g
	}
}

// WithLogger sets the logger. Default: zap.NewNop.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithBackupSink sets where backups are written. Without a sink the change
// counter still advances but no automatic backup runs.
func WithBackupSink(s backup.Sink) Option {
	return func(l *Ledger) {
		l.sink = s
	}
}

// WithBackupDefaults sets the backup settings used until settings are
// saved for the first time.
func WithBackupDefaults(s backup.Settings) Option {
	return func(l *Ledger) {
		l.defaults = s
	}
}

// New creates a Ledger over kv. The ledger does not own kv; the caller
// closes it.
func New(kv store.KV, opts ...Option) *Ledger {
	l := &Ledger{
		kv:       kv,
		clock:    clock.System{},
		ids:      UUIDv7Generator{},
		logger:   zap.NewNop(),
		defaults: backup.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.licenses = license.NewTracker(kv, l.clock, l.logger.Named("license"))
	l.backups = backup.NewScheduler(kv, l.clock, l.logger.Named("backup"), l.defaults)
	return l
}

func (l *Ledger) loadEarnings(ctx context.Context) ([]record.Earning, error) {
	var earnings []record.Earning
	if _, err := store.GetJSON(ctx, l.kv, store.KeyEarnings, &earnings); err != nil {
		return nil, record.WrapStorageError("load earnings", err)
	}
	if earnings == nil {
		earnings = []record.Earning{}
	}
	return earnings, nil
}

// saveEarnings replaces the stored collection with one write. On failure
// the previous value stays visible.
func (l *Ledger) saveEarnings(ctx context.Context, earnings []record.Earning) error {
	if earnings == nil {
		earnings = []record.Earning{}
	}
	if err := store.PutJSON(ctx, l.kv, store.KeyEarnings, earnings); err != nil {
		return record.WrapStorageError("save earnings", err)
	}
	return nil
}

// bindNodes marks the licenses of the given earnings as bound. Failures are
// logged; the earnings are already committed.
func (l *Ledger) bindNodes(ctx context.Context, earnings []record.Earning) license.BindReport {
	nodes := make([]string, 0, len(earnings))
	for _, e := range earnings {
		nodes = append(nodes, e.NodeID)
	}
	report, err := l.licenses.MarkBound(ctx, nodes)
	if err != nil {
		l.logger.Error("binding update failed", zap.Int("nodes", len(nodes)), zap.Error(err))
	}
	return report
}

// changed records one mutation and runs a backup when it is due. A failed
// backup is logged and never fails the mutation that triggered it.
func (l *Ledger) changed(ctx context.Context, op string) *backup.Result {
	n, err := l.backups.Increment(ctx)
	if err != nil {
		l.logger.Error("change not counted", zap.String("op", op), zap.Error(err))
		return nil
	}
	l.logger.Debug("change counted", zap.String("op", op), zap.Int("changes", n))
	if l.sink == nil {
		return nil
	}
	res, ran, err := l.backups.MaybeRun(ctx, l.render, l.sink)
	if err != nil {
		l.logger.Error("automatic backup failed", zap.String("op", op), zap.Error(err))
		return nil
	}
	if !ran {
		return nil
	}
	return &res
}

// snapshot reads both collections. Callers may hold mu.
func (l *Ledger) snapshot(ctx context.Context) (export.Snapshot, error) {
	earnings, err := l.loadEarnings(ctx)
	if err != nil {
		return export.Snapshot{}, err
	}
	record.SortEarnings(earnings)
	licenses, err := l.licenses.Load(ctx)
	if err != nil {
		return export.Snapshot{}, err
	}
	return export.NewSnapshot(earnings, licenses, l.clock.Now()), nil
}

// render is the backup.Exporter of the ledger.
func (l *Ledger) render(ctx context.Context, format export.Format) ([]byte, error) {
	snap, err := l.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
