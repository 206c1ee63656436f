package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	md "github.com/nao1215/markdown"

	"github.com/roach88/nodeledger/internal/config"
	"github.com/roach88/nodeledger/internal/ledger"
	"github.com/roach88/nodeledger/internal/merge"
	"github.com/roach88/nodeledger/internal/record"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected input (invalid records, unknown ids, nothing to import)
	ExitCommandError = 2 // Command error (bad flags, unreadable files, store failures)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
//
// ExitError carries its own code. Record errors map by kind: storage
// failures are command errors, everything else is a rejected input.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if record.IsStorageError(err) || config.IsValidationError(err) {
		return ExitCommandError
	}
	return ExitFailure
}

// ErrorCode returns the stable code reported in JSON error responses.
func ErrorCode(err error) string {
	var re *record.Error
	switch {
	case ledger.IsNothingToImport(err):
		return "NO_VALID_RECORDS"
	case errors.As(err, &re):
		return string(re.Kind)
	case errors.Is(err, merge.ErrUnknownPolicy):
		return "UNKNOWN_POLICY"
	case config.IsValidationError(err):
		return "CONFIG"
	case GetExitCode(err) == ExitCommandError:
		return "COMMAND"
	default:
		return "ERROR"
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // record error kind or command error code
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Table writes rows as a Markdown table, the text form of every listing.
func (f *OutputFormatter) Table(header []string, rows [][]string) {
	if rows == nil {
		rows = [][]string{}
	}
	doc := md.NewMarkdown(io.Discard)
	doc.Table(md.TableSet{Header: header, Rows: rows})
	io.WriteString(f.Writer, doc.String())
}
