package ledger

import (
	"errors"

	"github.com/roach88/nodeledger/internal/record"
)

var (
	// ErrNothingToImport is returned when no candidate of a batch passed
	// validation. The report still carries every issue found.
	ErrNothingToImport = errors.New("nothing to import: no valid records")

	// ErrEarningNotFound is wrapped by errors about an unknown earning id.
	ErrEarningNotFound = errors.New("earning not found")

	// ErrNoBackupSink is returned by BackupNow when the ledger was built
	// without a sink.
	ErrNoBackupSink = errors.New("no backup destination configured")
)

// IsNothingToImport reports whether err means a batch had no valid record.
func IsNothingToImport(err error) bool {
	return errors.Is(err, ErrNothingToImport)
}

func formatError(op string, err error) error {
	return &record.Error{Kind: record.KindFormat, Op: op, Err: err}
}
