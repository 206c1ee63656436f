package record

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decoded amount into a float64. Numbers pass
// through; strings may carry a leading '+', a '$' sign and thousands
// separators ("+ $1,234.50").
func ParseAmount(v any) (float64, error) {
	switch a := v.(type) {
	case float64:
		return a, nil
	case float32:
		return float64(a), nil
	case int:
		return float64(a), nil
	case int64:
		return float64(a), nil
	case json.Number:
		d, err := decimal.NewFromString(a.String())
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", a.String(), err)
		}
		return d.InexactFloat64(), nil
	case string:
		d, err := ParseAmountString(a)
		if err != nil {
			return 0, err
		}
		return d.InexactFloat64(), nil
	case nil:
		return 0, fmt.Errorf("amount is missing")
	default:
		return 0, fmt.Errorf("amount must be numeric, got %T", v)
	}
}

// ParseAmountString parses a human formatted currency amount.
func ParseAmountString(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "+")
	clean = strings.TrimSpace(clean)
	negative := false
	if strings.HasPrefix(clean, "-") {
		negative = true
		clean = strings.TrimSpace(clean[1:])
	}
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// FormatAmount renders an amount with two decimals.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
