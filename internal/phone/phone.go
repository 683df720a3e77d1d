// Package phone canonicalizes free-form phone numbers for matching.
package phone

import "strings"

// DigitsKept is the suffix length used for comparisons.
const DigitsKept = 10

// Normalize strips every non-digit and keeps the last DigitsKept digits.
// Numbers that differ only before that suffix collide.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > DigitsKept {
		return digits[len(digits)-DigitsKept:]
	}
	return digits
}
