package merge

import (
	"errors"
	"fmt"
	"strings"
)

// Policy decides how candidates interact with stored records.
type Policy int

const (
	// Skip appends unique candidates and never stores duplicates.
	Skip Policy = iota
	// AddAll appends every candidate and flags duplicates for review.
	AddAll
	// ReplaceAll discards the stored collection and stores the candidates.
	ReplaceAll
)

// ErrUnknownPolicy is returned for a policy outside the closed set.
var ErrUnknownPolicy = errors.New("unknown merge policy")

// Policies lists every policy in declaration order.
var Policies = []Policy{Skip, AddAll, ReplaceAll}

// String returns the policy's wire name.
func (p Policy) String() string {
	switch p {
	case Skip:
		return "skip"
	case AddAll:
		return "add-all"
	case ReplaceAll:
		return "replace-all"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Valid reports whether p is one of the declared policies.
func (p Policy) Valid() bool {
	switch p {
	case Skip, AddAll, ReplaceAll:
		return true
	default:
		return false
	}
}

// ParsePolicy parses a wire name. Underscores and case are tolerated
// ("ADD_ALL").
func ParsePolicy(s string) (Policy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "skip":
		return Skip, nil
	case "add-all":
		return AddAll, nil
	case "replace-all":
		return ReplaceAll, nil
	default:
		return 0, fmt.Errorf("%w %q: want skip, add-all or replace-all", ErrUnknownPolicy, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w %d", ErrUnknownPolicy, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
