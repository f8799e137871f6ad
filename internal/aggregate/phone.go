package aggregate

import (
	"strings"
	"unicode"
)

// NormalizePhone keeps only digits, plus a leading "+" when the trimmed
// input starts with one. Any Unicode decimal digit is kept and written as its
// ASCII equivalent. Input without a digit yields "".
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	if raw[0] == '+' {
		b.WriteByte('+')
	}
	digits := 0
	for _, r := range raw {
		if !unicode.IsDigit(r) {
			continue
		}
		b.WriteByte(asciiDigit(r))
		digits++
	}
	if digits == 0 {
		return ""
	}
	return b.String()
}

// asciiDigit maps a decimal digit to '0'-'9'. Unicode allocates decimal
// digits in contiguous runs of whole 0-9 sets, so the offset from the start
// of the run gives the value.
func asciiDigit(r rune) byte {
	if r >= '0' && r <= '9' {
		return byte(r)
	}
	start := r
	for unicode.IsDigit(start - 1) {
		start--
	}
	return byte('0' + (r-start)%10)
}
