package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/PaesslerAG/jsonpath"

	"github.com/roach88/nodeledger/internal/record"
)

// EarningsJSON reads earning candidates from a JSON array. path optionally
// selects the array inside a larger document ("$.earnings" for a
// snapshot).
func EarningsJSON(data []byte, path string) (Result, error) {
	doc, err := decodeJSON(data, path)
	if err != nil {
		return Result{}, err
	}
	items, ok := doc.([]any)
	if !ok {
		return Result{}, fmt.Errorf("%w: earnings must be a JSON array, got %s", ErrUnexpectedShape, kindOf(doc))
	}

	var res Result
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			res.reject(i+1, rawJSON(item), "element is not an object")
			continue
		}
		res.add(record.Candidate(obj))
	}
	return res, nil
}

// LicensesJSON reads license candidates from a JSON object keyed by license
// id. The key fills in a missing licenseId. Candidates are returned in key
// order.
func LicensesJSON(data []byte, path string) (Result, error) {
	doc, err := decodeJSON(data, path)
	if err != nil {
		return Result{}, err
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return Result{}, fmt.Errorf("%w: licenses must be a JSON object keyed by license id, got %s", ErrUnexpectedShape, kindOf(doc))
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var res Result
	for i, k := range keys {
		item, ok := obj[k].(map[string]any)
		if !ok {
			res.reject(i+1, rawJSON(obj[k]), fmt.Sprintf("license %q is not an object", k))
			continue
		}
		c := record.Candidate(item)
		if !c.Present(record.FieldLicenseID) {
			c[record.FieldLicenseID] = k
		}
		res.add(c)
	}
	return res, nil
}

func decodeJSON(data []byte, path string) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if path == "" {
		return doc, nil
	}
	sub, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", path, err)
	}
	return sub, nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func rawJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
