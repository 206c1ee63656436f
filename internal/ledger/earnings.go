package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/nodeledger/internal/record"
)

// EarningPatch changes the mutable fields of an earning. Nil fields are
// left alone. Node, amount and date are the duplicate key and cannot be
// patched; delete and re-import instead.
type EarningPatch struct {
	Status      *record.EarningStatus
	LicenseType *string
}

// UpdateEarning applies patch to the earning with the given id.
func (l *Ledger) UpdateEarning(ctx context.Context, id string, patch EarningPatch) (record.Earning, error) {
	if patch.Status != nil {
		status := record.EarningStatus(strings.ToLower(strings.TrimSpace(string(*patch.Status))))
		if !record.ValidEarningStatuses[status] {
			return record.Earning{}, record.NewFormatError("update earning", fmt.Sprintf("unknown status %q", *patch.Status))
		}
		patch.Status = &status
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	earnings, err := l.loadEarnings(ctx)
	if err != nil {
		return record.Earning{}, err
	}
	i := slices.IndexFunc(earnings, func(e record.Earning) bool { return e.ID == id })
	if i < 0 {
		return record.Earning{}, &record.Error{Kind: record.KindState, Op: "update earning", Message: id, Err: ErrEarningNotFound}
	}
	if patch.Status != nil {
		earnings[i].Status = *patch.Status
	}
	if patch.LicenseType != nil {
		earnings[i].LicenseType = strings.TrimSpace(*patch.LicenseType)
	}
	if err := l.saveEarnings(ctx, earnings); err != nil {
		return record.Earning{}, err
	}
	l.logger.Info("earning updated", zap.String("id", id))
	l.changed(ctx, "update earning")
	return earnings[i], nil
}

// DeleteEarnings removes the earnings with the given ids and returns how
// many were removed. Unknown ids are ignored; when none matched nothing is
// written.
func (l *Ledger) DeleteEarnings(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	earnings, err := l.loadEarnings(ctx)
	if err != nil {
		return 0, err
	}
	kept := slices.DeleteFunc(slices.Clone(earnings), func(e record.Earning) bool {
		return slices.Contains(ids, e.ID)
	})
	removed := len(earnings) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := l.saveEarnings(ctx, kept); err != nil {
		return 0, err
	}
	l.logger.Info("earnings deleted", zap.Int("removed", removed), zap.Int("total", len(kept)))
	l.changed(ctx, "delete earnings")
	return removed, nil
}

// ClearEarnings removes every earning and returns how many there were.
func (l *Ledger) ClearEarnings(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	earnings, err := l.loadEarnings(ctx)
	if err != nil {
		return 0, err
	}
	if len(earnings) == 0 {
		return 0, nil
	}
	if err := l.saveEarnings(ctx, nil); err != nil {
		return 0, err
	}
	l.logger.Info("earnings cleared", zap.Int("removed", len(earnings)))
	l.changed(ctx, "clear earnings")
	return len(earnings), nil
}
