package model

import "strings"

// NormalizeNumber reduces a phone number to its digits. "+36 1 234-567"
// and "361234567" normalize to the same conversation key. No length or
// country-code validation; idempotent.
func NormalizeNumber(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
