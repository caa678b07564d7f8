package util

import (
	"fmt"
	"strings"
)

// JoinKey returns the string identity of a composite key: every part formatted
// with fmt.Sprint, joined by ",". Equal parts always produce the same identity.
func JoinKey(parts []any) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return fmt.Sprint(parts[0])
	}
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, ",")
}

// Suffix appends extra parts to a key identity the same way JoinKey would.
func Suffix(key string, parts ...string) string {
	if len(parts) == 0 {
		return key
	}
	return key + "," + strings.Join(parts, ",")
}
