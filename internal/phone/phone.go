// Package phone canonicalizes raw phone strings into dialable numbers.
//
// A Number is digits only, country code first, no separators and no plus
// sign. Downstream code (blacklist, dispatch, dedup) treats the Number as
// the sole identity of a contact, so nothing outside Normalize should ever
// construct one from user input.
package phone

import (
	"strings"
)

// Number is a canonical, dialable phone number.
type Number string

// Azerbaijani mobile operator prefixes accepted by Normalize.
var azPrefixes = []string{"50", "51", "55", "60", "70", "77", "99"}

const (
	azCountryCode = "994"
	trCountryCode = "90"
)

// Normalize validates raw and returns its canonical form.
// Recognized shapes:
//
//	994XXXXXXXXX (12+ digits)  -> kept as-is
//	905XXXXXXXXX (12 digits)   -> kept as-is
//	0XXXXXXXXX   (10 digits)   -> leading zero dropped, 994 prepended
//	XXXXXXXXX    (9 digits, known operator prefix) -> 994 prepended
//	5XXXXXXXXX   (10 digits)   -> Turkish fallback, 90 prepended
//
// Anything else is rejected rather than guessed.
func Normalize(raw string) (Number, bool) {
	s, ok := strip(raw)
	if !ok || s == "" {
		return "", false
	}

	if strings.HasPrefix(s, azCountryCode) && len(s) >= 12 {
		return Number(s), true
	}
	if strings.HasPrefix(s, trCountryCode+"5") && len(s) == 12 {
		return Number(s), true
	}
	if strings.HasPrefix(s, "0") && len(s) == 10 {
		s = s[1:]
	}
	if len(s) == 9 && hasAZPrefix(s) {
		return Number(azCountryCode + s), true
	}
	if len(s) == 10 && strings.HasPrefix(s, "5") {
		return Number(trCountryCode + s), true
	}
	return "", false
}

// strip removes separators, keeping digits and plus signs. A single leading
// plus is dropped; a plus anywhere else makes the input unclassifiable.
func strip(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	s := strings.TrimPrefix(b.String(), "+")
	if strings.ContainsRune(s, '+') {
		return "", false
	}
	return s, true
}

func hasAZPrefix(s string) bool {
	for _, p := range azPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
