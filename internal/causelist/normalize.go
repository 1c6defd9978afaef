// Package causelist turns the OCR lines of a court cause list into case records.
package causelist

import (
	"regexp"
	"strings"
)

// SeparatorToken is the canonical party separator in case titles.
const SeparatorToken = "VRS"

var (
	slashSpaceRe = regexp.MustCompile(`\s*/\s*`)
	numberingRe  = regexp.MustCompile(`^(?:\(\d{1,3}\)|\d{1,3}[.)])\s+`)
	gluedNumRe   = regexp.MustCompile(`^(?:\(\d{1,3}\)|\d{1,3}[.)])`)
	suitHeadRe   = regexp.MustCompile(`(?i)^[A-Z0-9]{1,6}(?:/[A-Z0-9]{1,8}){1,3}(?:\s|$)`)
	separatorRe  = regexp.MustCompile(`(?i)(^|\s)(?:vs\.?|vrs\.?|os|yrs\.?|versus)(\s|$)`)
	exParteRe    = regexp.MustCompile(`(?i)\bEX[\s.\-]*PARTE\b`)
)

// NormalizeLine cleans one raw OCR line before classification.
func NormalizeLine(raw string) string {
	s := strings.ReplaceAll(raw, "|", " ")
	s = slashSpaceRe.ReplaceAllString(s, "/")
	s = strings.Join(strings.Fields(s), " ")
	s = numberingRe.ReplaceAllString(s, "")
	// numbering glued to a suit number: "1.38/122/21"
	if m := gluedNumRe.FindStringIndex(s); m != nil && suitHeadRe.MatchString(s[m[1]:]) {
		s = s[m[1]:]
	}
	// the separator pattern consumes its surrounding spaces, so adjacent
	// separators need a second pass
	for i := 0; i < 2; i++ {
		s = separatorRe.ReplaceAllString(s, "${1}"+SeparatorToken+"${2}")
	}
	s = exParteRe.ReplaceAllString(s, "EX-PARTE")
	return s
}

// isSeparator reports whether a single OCR word is a party separator.
func isSeparator(word string) bool {
	return NormalizeLine(word) == SeparatorToken
}
