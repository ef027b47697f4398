// Package phonenumber normalizes user-supplied phone strings to E.164.
package phonenumber

import "strings"

// Normalize strips non-digits and prepends the US/Canada country code when
// the remainder looks like a bare 10-digit subscriber number. It does not
// validate the result — input containing any digit yields a "+digits"
// string even when it is nonsensical, and input with no digits yields "".
func Normalize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	digits := digitsOnly(value)
	if digits == "" {
		return ""
	}
	if len(digits) == 10 {
		digits = "1" + digits
	}
	return "+" + digits
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
