package causelist

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/caselaw-ingest/internal/ocr"
)

// SplitMethod records which heuristic produced a title's party separator.
type SplitMethod string

const (
	SplitNone      SplitMethod = "none"
	SplitSeparator SplitMethod = "separator"
	SplitMarker    SplitMethod = "marker"
	SplitCompany   SplitMethod = "company"
	SplitColumn    SplitMethod = "column"
)

var (
	leadingPunctRe = regexp.MustCompile(`^[\s\-–—.,:;*#)\]}]+`)
	leadingSuitRe  = regexp.MustCompile(`^(?i:SUIT\s*NO\.?\s*:?\s*)?[A-Z0-9]{1,6}(?:/[A-Z0-9]{1,8}){1,3}\s+`)
	repeatedSepRe  = regexp.MustCompile(`\bVRS(?:\s+VRS)+\b`)
)

// NormalizeTitle cleans a raw case title and makes sure it carries the canonical
// separator when one can be inferred. Titles without VRS or EX-PARTE are split before a
// single-party marker that is not at the start, or after the first of two company names.
func NormalizeTitle(raw string, rules *Rules) (string, SplitMethod) {
	t := NormalizeLine(raw)
	t = leadingPunctRe.ReplaceAllString(t, "")
	if m := leadingSuitRe.FindString(t); m != "" && strings.ContainsAny(m, "0123456789") && strings.Contains(m, "/") {
		t = t[len(m):]
	}
	t = strings.TrimRight(t, " ,;:-")
	t = repeatedSepRe.ReplaceAllString(t, SeparatorToken)
	if t == "" {
		return "", SplitNone
	}

	if hasSeparator(t) {
		return t, SplitSeparator
	}
	if strings.Contains(strings.ToUpper(t), "EX-PARTE") {
		return t, SplitNone
	}
	if rules == nil {
		return t, SplitNone
	}

	for _, re := range rules.markers {
		loc := re.FindStringIndex(t)
		if loc == nil {
			continue
		}
		start := loc[0]
		if t[start] == ' ' {
			start++
		}
		if start == 0 {
			// the title opens with the marker party
			break
		}
		return strings.TrimSpace(t[:start]) + " " + SeparatorToken + " " + strings.TrimSpace(t[start:]), SplitMarker
	}

	if rules.company != nil {
		locs := rules.company.FindAllStringIndex(t, -1)
		if len(locs) >= 2 {
			end := locs[0][1]
			first, second := strings.TrimSpace(t[:end]), strings.TrimSpace(t[end:])
			second = strings.TrimLeft(second, ",;:- ")
			if first != "" && second != "" {
				return first + " " + SeparatorToken + " " + second, SplitCompany
			}
		}
	}
	return t, SplitNone
}

func hasSeparator(title string) bool {
	for _, f := range strings.Fields(title) {
		if f == SeparatorToken {
			return true
		}
	}
	return false
}

// SplitParties splits a normalized title on its first separator. Without a separator the
// whole title is the first party and the second is empty.
func SplitParties(title string) (first, second string) {
	title = strings.TrimSpace(title)
	fields := strings.Fields(title)
	for i, f := range fields {
		if f == SeparatorToken {
			return strings.Join(fields[:i], " "), strings.Join(fields[i+1:], " ")
		}
	}
	return title, ""
}

// splitByColumn partitions title words around the page's separator column.
func splitByColumn(words []ocr.Token, column int) (string, bool) {
	var left, right []string
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" || text == "|" {
			continue
		}
		if w.Left < column {
			left = append(left, text)
		} else {
			right = append(right, text)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return "", false
	}
	return strings.Join(left, " ") + " " + SeparatorToken + " " + strings.Join(right, " "), true
}
