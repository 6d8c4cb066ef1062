package utils

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var wonPrinter = message.NewPrinter(language.Korean)

// NormalizeString lower-cases and trims user input
func NormalizeString(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CompactString drops every space so "한 달" and "한달" compare equal
func CompactString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '　':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ContainsAny reports whether s contains any of words
func ContainsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// CountContains number of words found in s
func CountContains(s string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(s, w) {
			n++
		}
	}
	return n
}

// TruncateRunes caps s at max runes, ending with "..." when cut
func TruncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	const ellipsis = "..."
	keep := max - utf8.RuneCountInString(ellipsis)
	if keep <= 0 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:keep]) + ellipsis
}

// FormatWon formats an amount with thousands separators, e.g. 3,000,000원
func FormatWon(amount int64) string {
	return wonPrinter.Sprintf("%d원", amount)
}

// ClampFloat bound f to [lo, hi]
func ClampFloat(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}

// Min smaller of two ints
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
