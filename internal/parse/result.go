package parse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/nodeledger/internal/record"
)

var (
	// ErrEmptyInput is returned for empty or whitespace-only input.
	ErrEmptyInput = errors.New("parse: empty input")

	// ErrColumnsNotDetected is returned when a CSV header lacks a required
	// column. The caller must supply an explicit column map.
	ErrColumnsNotDetected = errors.New("parse: required columns not detected")

	// ErrUnexpectedShape is returned when a JSON document is not the
	// expected array or object.
	ErrUnexpectedShape = errors.New("parse: unexpected document shape")
)

// Unparsed is an input fragment that did not yield a candidate.
type Unparsed struct {
	// Line is the 1-based line of the fragment in the input. For JSON it
	// is the 1-based element position.
	Line    int      `json:"line"`
	Raw     string   `json:"raw"`
	Reasons []string `json:"reasons"`
}

func (u Unparsed) String() string {
	return fmt.Sprintf("line %d: %s", u.Line, strings.Join(u.Reasons, "; "))
}

// Result is the outcome of a parse. Success is true iff at least one
// record was extracted.
type Result struct {
	Success  bool               `json:"success"`
	Records  []record.Candidate `json:"records"`
	Unparsed []Unparsed         `json:"unparsed,omitempty"`
}

func (r *Result) add(c record.Candidate) {
	r.Records = append(r.Records, c)
	r.Success = true
}

func (r *Result) reject(line int, raw string, reasons ...string) {
	r.Unparsed = append(r.Unparsed, Unparsed{Line: line, Raw: raw, Reasons: reasons})
}
