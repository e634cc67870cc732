// Package catalog normalizes astronomical catalogue designations so names
// written by different tools ("M 31", "Messier31", "m31") compare equal.
package catalog

import (
	"regexp"
	"strings"
	"unicode"
)

// prefixAliases maps spelled-out or abbreviated catalogue prefixes to the
// canonical prefix stored in the catalogue. Longer prefixes come first so
// "COLLINDER" is not consumed as "COL".
var prefixAliases = []struct {
	from, to string
}{
	{"SHARPLESS 2-", "SH2"},
	{"SHARPLESS2-", "SH2"},
	{"SHARPLESS", "SH2"},
	{"COLLINDER", "CR"},
	{"CALDWELL", "C"},
	{"TRUMPLER", "TR"},
	{"MELOTTE", "MEL"},
	{"MESSIER", "M"},
	{"BARNARD", "B"},
	{"ABELL", "ABELL"},
	{"STOCK", "STOCK"},
	{"SH2-", "SH2"},
	{"SH 2-", "SH2"},
	{"SH-2", "SH2"},
	{"COL", "CR"},
	{"MEL", "MEL"},
	{"ACO", "ABELL"},
	{"NGC", "NGC"},
	{"UGC", "UGC"},
	{"PGC", "PGC"},
	{"IC", "IC"},
}

// Normalize returns the comparison key for a designation: upper-case,
// catalogue prefix expanded to its canonical form, whitespace and
// punctuation removed. Signs in designations such as "PK 64+5" are kept,
// and an underscore component separator ("IC 342_2") becomes "-".
func Normalize(name string) string {
	s := strings.ToUpper(strings.TrimSpace(name))
	if s == "" {
		return ""
	}

	for _, a := range prefixAliases {
		if rest, ok := strings.CutPrefix(s, a.from); ok {
			// Only treat it as a prefix when a number (possibly after spaces
			// or punctuation) follows; "MELOTTE" in "MELODY" must not match.
			trimmed := strings.TrimLeft(rest, " .-_")
			if trimmed != "" && unicode.IsDigit(rune(trimmed[0])) {
				s = a.to + trimmed
			}
			break
		}
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' || r == '-':
			b.WriteRune(r)
		case r == '_':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// componentSuffix matches NGC/IC designations with a trailing component
// letter ("NGC5194A") or numeric suffix ("NGC2070-1", "IC342-2").
var componentSuffix = regexp.MustCompile(`^((?:NGC|IC)\d+)(?:[A-Z]|-\d+)$`)

// ParentDesignation strips a component suffix from a normalized NGC/IC
// designation. It reports false when name has no such suffix.
func ParentDesignation(normalized string) (string, bool) {
	m := componentSuffix.FindStringSubmatch(normalized)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FuzzyKey is a looser key used for double-star names: Normalize with
// signs dropped as well, so "STF 2470-2474" and "STF2470 2474" agree.
func FuzzyKey(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '+' || r == '-' {
			return -1
		}
		return r
	}, Normalize(name))
}
