package record

import (
	"errors"
	"fmt"
)

// Kind categorizes failures raised while ingesting or mutating records.
type Kind string

const (
	// KindFormat marks malformed input: bad date, non-numeric amount,
	// malformed license address. Blocks the record, not the batch.
	KindFormat Kind = "FORMAT"

	// KindDuplicate marks an advisory duplicate condition.
	KindDuplicate Kind = "DUPLICATE"

	// KindStorage marks an underlying store failure. Fatal to the operation.
	KindStorage Kind = "STORAGE"

	// KindState marks a state inconsistency such as binding a license that
	// does not exist. Logged and skipped by bulk operations.
	KindState Kind = "STATE_INCONSISTENCY"
)

// Error is a categorized record error.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewFormatError creates a FORMAT error.
func NewFormatError(op, message string) *Error {
	return &Error{Kind: KindFormat, Op: op, Message: message}
}

// NewStateError creates a STATE_INCONSISTENCY error.
func NewStateError(op, message string) *Error {
	return &Error{Kind: KindState, Op: op, Message: message}
}

// NewDuplicateError creates a DUPLICATE condition.
func NewDuplicateError(op, message string) *Error {
	return &Error{Kind: KindDuplicate, Op: op, Message: message}
}

// WrapStorageError wraps a store failure as a STORAGE error.
func WrapStorageError(op string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

func isKind(err error, kind Kind) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}

// IsFormatError returns true if err is a FORMAT error.
func IsFormatError(err error) bool { return isKind(err, KindFormat) }

// IsStorageError returns true if err is a STORAGE error.
func IsStorageError(err error) bool { return isKind(err, KindStorage) }

// IsStateError returns true if err is a STATE_INCONSISTENCY error.
func IsStateError(err error) bool { return isKind(err, KindState) }

// IsDuplicate returns true if err is a DUPLICATE condition.
func IsDuplicate(err error) bool { return isKind(err, KindDuplicate) }
