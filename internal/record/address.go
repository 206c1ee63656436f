package record

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// AddressHexLen is the number of hex digits of a license address after 0x.
const AddressHexLen = 40

// nodeIDPattern matches the identifier shapes seen on earnings: abbreviated
// "0x01...a278" and full 0x addresses.
var nodeIDPattern = regexp.MustCompile(`^0x[0-9a-fA-F]+(\.\.\.[0-9a-fA-F]+)?$`)

// NormalizeAddress trims and lower-cases a license address.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ValidateAddress validates a license address. The address must be a 0x
// prefixed, 40 digit hexadecimal string once normalized.
func ValidateAddress(addr string) error {
	normalized := NormalizeAddress(addr)
	if normalized == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if !strings.HasPrefix(normalized, "0x") {
		return fmt.Errorf("address must start with 0x")
	}
	digits := normalized[2:]
	if len(digits) != AddressHexLen {
		return fmt.Errorf("invalid address length: expected %d hex characters after 0x, got %d", AddressHexLen, len(digits))
	}
	if _, err := hex.DecodeString(digits); err != nil {
		return fmt.Errorf("invalid hex address: %w", err)
	}
	return nil
}

// ValidateAndNormalizeAddress validates an address and returns its normalized form.
func ValidateAndNormalizeAddress(addr string) (string, error) {
	if err := ValidateAddress(addr); err != nil {
		return "", err
	}
	return NormalizeAddress(addr), nil
}

// LooksLikeNodeID reports whether id has one of the expected node id shapes.
// Node ids that do not match are still accepted; callers only warn.
func LooksLikeNodeID(id string) bool {
	return nodeIDPattern.MatchString(strings.TrimSpace(id))
}

// MatchesNode reports whether an earning's node id refers to a license.
// Full ids compare case-insensitively; abbreviated "0xPRE...SUF" ids match
// a license whose address starts with 0xPRE and ends with SUF.
func MatchesNode(licenseID, nodeID string) bool {
	lic := NormalizeAddress(licenseID)
	node := NormalizeAddress(nodeID)
	if lic == "" || node == "" {
		return false
	}
	if lic == node {
		return true
	}
	prefix, suffix, ok := strings.Cut(node, "...")
	if !ok || prefix == "" || suffix == "" {
		return false
	}
	return strings.HasPrefix(lic, prefix) && strings.HasSuffix(lic, suffix) && len(lic) >= len(prefix)+len(suffix)
}
