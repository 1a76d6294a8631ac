/*
Package numeric turns scraped text fragments into integers.
*/
package numeric

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// NumberPattern matches a run of ASCII digits with optional grouping separators
// (comma, Arabic thousands separator, thin and narrow no-break spaces). Callers
// must fold digits with NormalizeDigits first.
const NumberPattern = `[0-9][0-9,\x{066C}\x{2009}\x{202F}]*`

var numberRe = regexp.MustCompile(NumberPattern)

func foldRune(r rune) rune {
	switch {
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r == '：':
		return ':'
	}
	return r
}

// NormalizeDigits rewrites Extended Arabic-Indic and Arabic-Indic digits and the
// full-width colon to their ASCII forms.
func NormalizeDigits(s string) string {
	out, _, err := transform.String(runes.Map(foldRune), s)
	if err != nil {
		return s
	}
	return out
}

// ExtractInteger keeps only the decimal digits of fragment and parses them.
// Grouping is not validated. ok is false when no digit remains or the value
// does not fit an int64.
func ExtractInteger(fragment string) (value int64, ok bool) {
	folded := NormalizeDigits(fragment)

	var sb strings.Builder
	for i := 0; i < len(folded); i++ {
		if c := folded[i]; c >= '0' && c <= '9' {
			sb.WriteByte(c)
		}
	}
	if sb.Len() == 0 {
		return 0, false
	}

	v, err := strconv.ParseInt(sb.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ExtractIntegerPtr is ExtractInteger returning nil for absence.
func ExtractIntegerPtr(fragment string) *int64 {
	v, ok := ExtractInteger(fragment)
	if !ok {
		return nil
	}
	return &v
}

// Tokens returns every number-like substring of text, in page order.
func Tokens(text string) []string {
	return numberRe.FindAllString(NormalizeDigits(text), -1)
}

// DigitCount counts the ASCII digits in s.
func DigitCount(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}
