package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeledger/internal/config"
	"github.com/roach88/nodeledger/internal/ledger"
	"github.com/roach88/nodeledger/internal/merge"
	"github.com/roach88/nodeledger/internal/record"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("FORMAT", "no valid records", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "FORMAT", resp.Error.Code)
	assert.Equal(t, "no valid records", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"field": "amount", "index": "3"}
	err := formatter.Error("DUPLICATE", "license already exists", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("Imported 3 earning(s)")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Imported 3 earning(s)")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("FORMAT", "no valid records", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [FORMAT]")
	assert.Contains(t, buf.String(), "no valid records")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"field": "date"}
	err := formatter.Error("FORMAT", "no valid records", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [FORMAT]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Importing earnings from %s", "payouts.csv")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Importing earnings from payouts.csv")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestCLIResponse_JSON(t *testing.T) {
	resp := CLIResponse{
		Status: "ok",
		Data:   map[string]int{"count": 42},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded CLIResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
}

func TestCLIError_JSON(t *testing.T) {
	cliErr := CLIError{
		Code:    "STATE_INCONSISTENCY",
		Message: "license not found",
		Details: []string{"0x01...a278"},
	}

	data, err := json.Marshal(cliErr)
	require.NoError(t, err)

	var decoded CLIError
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "STATE_INCONSISTENCY", decoded.Code)
	assert.Equal(t, "license not found", decoded.Message)
}

func TestOutputFormatter_Table(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	formatter.Table([]string{"License", "Status"}, [][]string{
		{"0x01...a278", "self-run"},
		{"0x02...b389", "available"},
	})

	// Headers are rendered upper case.
	out := buf.String()
	assert.Contains(t, out, "| LICENSE")
	assert.Contains(t, out, "| STATUS")
	assert.Contains(t, out, "0x01...a278")
	assert.Contains(t, out, "available")
}

func TestOutputFormatter_EmptyTable(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	formatter.Table([]string{"ID", "Amount"}, nil)
	assert.Contains(t, buf.String(), "| AMOUNT")
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"exit error", NewExitError(ExitCommandError, "bad flag"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("run: %w", NewExitError(ExitFailure, "x")), ExitFailure},
		{"format error", record.NewFormatError("import", "bad date"), ExitFailure},
		{"state error", record.NewStateError("get license", "not found"), ExitFailure},
		{"storage error", record.WrapStorageError("save", errors.New("disk full")), ExitCommandError},
		{"config error", &config.ValidationError{Err: errors.New("bad backend")}, ExitCommandError},
		{"plain error", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nothing to import", &record.Error{Kind: record.KindFormat, Op: "import", Err: ledger.ErrNothingToImport}, "NO_VALID_RECORDS"},
		{"format", record.NewFormatError("import", "bad"), "FORMAT"},
		{"duplicate", record.NewDuplicateError("add license", "exists"), "DUPLICATE"},
		{"storage", record.WrapStorageError("save", errors.New("io")), "STORAGE"},
		{"state", record.NewStateError("bind", "ambiguous"), "STATE_INCONSISTENCY"},
		{"policy", fmt.Errorf("import: %w", merge.ErrUnknownPolicy), "UNKNOWN_POLICY"},
		{"config", &config.ValidationError{Err: errors.New("x")}, "CONFIG"},
		{"command", NewExitError(ExitCommandError, "bad flag"), "COMMAND"},
		{"other", errors.New("boom"), "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}
