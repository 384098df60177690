package syncer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Country calling code the platform prefixes onto phone numbers.
const countryCallingCode = "225"

// MinUsablePhoneDigits is the floor under which a normalized phone is
// treated as unusable for matching.
const MinUsablePhoneDigits = 8

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName reduces a person name to a comparable canonical form:
// diacritics stripped, lower-cased, internal whitespace collapsed.
// Pure and total; empty input yields "".
func NormalizeName(s string) string {
	if s == "" {
		return ""
	}
	stripped, _, err := transform.String(deaccent, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// NormalizePhone reduces a phone number to its national significant digits.
// The country calling code is stripped when present with a full-length
// number; otherwise the last 10 digits win. Callers treat results shorter
// than MinUsablePhoneDigits as "no usable phone".
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if strings.HasPrefix(digits, countryCallingCode) && len(digits) >= 13 {
		return digits[len(countryCallingCode):]
	}
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}
