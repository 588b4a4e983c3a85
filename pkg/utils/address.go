package utils

import (
	"regexp"
	"strings"
)

var evmAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// NormalizeAddress lowercases a chain account identifier so that addresses
// compare equal regardless of checksum casing.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsValidEVMAddress reports whether the string is a 0x-prefixed 20-byte hex address.
func IsValidEVMAddress(address string) bool {
	return evmAddressRe.MatchString(strings.TrimSpace(address))
}

// SameAddress compares two account identifiers case-insensitively.
func SameAddress(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}
