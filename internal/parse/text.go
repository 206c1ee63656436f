package parse

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/nodeledger/internal/record"
)

var (
	// Abbreviated "0x01...a278" or a full 40 digit address.
	nodeIDPattern = regexp.MustCompile(`0x[0-9a-fA-F]{2,}\.{3}[0-9a-fA-F]{2,}|0x[0-9a-fA-F]{40}`)
	// Group 1 is the sign; a minus marks a debit, which is not an earning.
	amountPattern = regexp.MustCompile(`([+\-\x{2212}]?)\s?\$\s?([0-9][0-9,]*(?:\.[0-9]+)?)`)
)

const monthWord = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?`

// datePatterns are tried in order; the first match that normalizes wins.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,2}\s+` + monthWord + `\s+\d{4}\b`),
	regexp.MustCompile(`(?i)\b` + monthWord + `\s+\d{1,2},?\s+\d{4}\b`),
	regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`),
}

// statusKeywords map lower-case keywords to statuses, checked in order.
var statusKeywords = []struct {
	keyword string
	status  record.EarningStatus
}{
	{"completed", record.StatusCompleted},
	{"pending", record.StatusPending},
	{"failed", record.StatusFailed},
	{"error", record.StatusFailed},
	{"processing", record.StatusProcessing},
}

// IsBoundary reports whether line starts a new record group, which is the
// case when it carries a node identifier.
func IsBoundary(line string) bool {
	return nodeIDPattern.MatchString(line)
}

// Text extracts earning candidates from free-form pasted text. Records are
// one or more lines; a line carrying a node identifier starts a new one.
func Text(input string) (Result, error) {
	input = norm.NFKC.String(input)

	var lines []string
	var lineNos []int
	for i, raw := range strings.Split(input, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		lineNos = append(lineNos, i+1)
	}
	if len(lines) == 0 {
		return Result{}, ErrEmptyInput
	}

	var res Result
	for _, g := range GroupLines(lines, IsBoundary) {
		c, reasons := extract(g.Lines)
		if len(reasons) > 0 {
			res.reject(lineNos[g.Start], strings.Join(g.Lines, "\n"), reasons...)
			continue
		}
		res.add(c)
	}
	return res, nil
}

// extract pulls the earning fields out of one group. A non-empty reasons
// slice means the group is unusable.
func extract(lines []string) (record.Candidate, []string) {
	text := strings.Join(lines, "\n")
	var reasons []string

	nodeID := nodeIDPattern.FindString(text)
	if nodeID == "" {
		reasons = append(reasons, "no node identifier")
	}

	var amount float64
	if m := amountPattern.FindStringSubmatch(text); m == nil {
		reasons = append(reasons, "no amount")
	} else if m[1] != "" && m[1] != "+" {
		reasons = append(reasons, "negative amount")
	} else if d, err := record.ParseAmountString(m[2]); err != nil {
		reasons = append(reasons, err.Error())
	} else {
		amount = d.InexactFloat64()
	}

	date := findDate(text)
	if date == "" {
		reasons = append(reasons, "no date")
	}

	if len(reasons) > 0 {
		return nil, reasons
	}
	return record.Candidate{
		record.FieldNodeID: nodeID,
		record.FieldAmount: amount,
		record.FieldDate:   date,
		record.FieldStatus: string(findStatus(text)),
	}, nil
}

func findDate(text string) string {
	for _, p := range datePatterns {
		for _, m := range p.FindAllString(text, -1) {
			if d, err := record.NormalizeDate(m); err == nil {
				return d
			}
		}
	}
	return ""
}

func findStatus(text string) record.EarningStatus {
	lower := strings.ToLower(text)
	for _, k := range statusKeywords {
		if strings.Contains(lower, k.keyword) {
			return k.status
		}
	}
	return record.StatusCompleted
}
