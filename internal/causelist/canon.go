package causelist

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"JANUARY": time.January, "FEBRUARY": time.February, "MARCH": time.March,
	"APRIL": time.April, "MAY": time.May, "JUNE": time.June,
	"JULY": time.July, "AUGUST": time.August, "SEPTEMBER": time.September,
	"OCTOBER": time.October, "NOVEMBER": time.November, "DECEMBER": time.December,
	"JAN": time.January, "FEB": time.February, "MAR": time.March, "APR": time.April,
	"JUN": time.June, "JUL": time.July, "AUG": time.August, "SEP": time.September,
	"SEPT": time.September, "OCT": time.October, "NOV": time.November, "DEC": time.December,
}

const (
	weekdayAlt   = `MONDAY|TUESDAY|WEDNESDAY|THURSDAY|FRIDAY|SATURDAY|SUNDAY`
	monthAlt     = `JANUARY|FEBRUARY|MARCH|APRIL|MAY|JUNE|JULY|AUGUST|SEPTEMBER|OCTOBER|NOVEMBER|DECEMBER`
	monthAbbrAlt = monthAlt + `|JAN|FEB|MAR|APR|JUN|JUL|AUG|SEPT|SEP|OCT|NOV|DEC`
	ordinal      = `(?:ST|ND|RD|TH)?`
	sep          = `[\s,.]+`
)

var (
	// MONDAY, 15TH JANUARY, 2024 / MONDAY THE 15TH DAY OF JANUARY 2024
	weekdayDayMonthRe = regexp.MustCompile(`^[^0-9/]*?\b(?:` + weekdayAlt + `)\b` + sep +
		`(?:THE\s+)?(\d{1,2})\s*` + ordinal + sep + `(?:DAY\s+OF\s+)?(` + monthAlt + `)` + sep + `(\d{4})\b`)
	// MONDAY, JANUARY 15, 2024
	weekdayMonthDayRe = regexp.MustCompile(`^[^0-9/]*?\b(?:` + weekdayAlt + `)\b` + sep +
		`(` + monthAlt + `)` + sep + `(\d{1,2})\s*` + ordinal + sep + `(\d{4})\b`)

	looseDayMonthRe = regexp.MustCompile(`\b(\d{1,2})\s*` + ordinal + `(?:\s+DAY\s+OF)?[\s,.\-]+(` + monthAbbrAlt + `)\.?[\s,.\-]+(\d{4})\b`)
	looseMonthDayRe = regexp.MustCompile(`\b(` + monthAbbrAlt + `)\.?[\s,.\-]+(\d{1,2})\s*` + ordinal + `[\s,.\-]+(\d{4})\b`)
	numericDMYRe    = regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})\b`)
	isoDateRe       = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

	ampmRe    = regexp.MustCompile(`\b(\d{1,2})(?:[:.](\d{2}))?\s*([AP])\.?\s*M\b\.?`)
	clock24Re = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
)

// ParseDateFromText extracts a hearing date from a weekday+day+month+year header line.
// It returns false when the text has no such date or names an impossible one.
func ParseDateFromText(s string) (time.Time, bool) {
	s = strings.ToUpper(s)
	if m := weekdayDayMonthRe.FindStringSubmatch(s); m != nil {
		return makeDate(m[3], months[m[2]], m[1])
	}
	if m := weekdayMonthDayRe.FindStringSubmatch(s); m != nil {
		return makeDate(m[3], months[m[1]], m[2])
	}
	return time.Time{}, false
}

// ParseLooseDate accepts the date spellings found in gazettes and spreadsheets:
// "15th January, 2024", "January 15, 2024", "15/01/2024" and "2024-01-15".
func ParseLooseDate(s string) (time.Time, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, false
	}
	if d, ok := ParseDateFromText(s); ok {
		return d, true
	}
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		mon, _ := strconv.Atoi(m[2])
		return makeDate(m[1], time.Month(mon), m[3])
	}
	if m := looseDayMonthRe.FindStringSubmatch(s); m != nil {
		return makeDate(m[3], months[m[2]], m[1])
	}
	if m := looseMonthDayRe.FindStringSubmatch(s); m != nil {
		return makeDate(m[3], months[m[1]], m[2])
	}
	if m := numericDMYRe.FindStringSubmatch(s); m != nil {
		mon, _ := strconv.Atoi(m[2])
		return makeDate(m[3], time.Month(mon), m[1])
	}
	return time.Time{}, false
}

func makeDate(year string, month time.Month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil || month < time.January || month > time.December {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31 FEBRUARY into March
	if t.Day() != d || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// Clock is a time of day without a date.
type Clock struct {
	Hour   int
	Minute int
}

// String formats the clock as HH:MM:SS.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:00", c.Hour, c.Minute)
}

// ParseClock parses the HH:MM[:SS] form produced by Clock.String.
func ParseClock(s string) (Clock, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return Clock{}, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return Clock{}, false
	}
	return Clock{Hour: h, Minute: m}, true
}

// ParseTimeFromText finds a sitting time such as "9:30 A.M." or "14:00" in s.
func ParseTimeFromText(s string) (Clock, bool) {
	s = strings.ToUpper(s)
	if m := ampmRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if h < 1 || h > 12 || minute > 59 {
			return Clock{}, false
		}
		switch {
		case m[3] == "A" && h == 12:
			h = 0
		case m[3] == "P" && h != 12:
			h += 12
		}
		return Clock{Hour: h, Minute: minute}, true
	}
	if m := clock24Re.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return Clock{Hour: h, Minute: minute}, true
	}
	return Clock{}, false
}

// CanonicalSuitNo uppercases a suit number, removes spaces, expands a two-digit final
// year on numbers with three or more segments and applies the prefix rewrite table.
// Applying it twice gives the same result as applying it once.
func CanonicalSuitNo(s string, rules *Rules) string {
	s = strings.ToUpper(strings.Join(strings.Fields(s), ""))
	s = strings.Trim(s, ".,;:-")
	if s == "" {
		return ""
	}
	segs := strings.Split(s, "/")
	if n := len(segs); n >= 3 {
		if last := segs[n-1]; len(last) == 2 && isDigits(last) {
			segs[n-1] = "20" + last
		}
	}
	s = strings.Join(segs, "/")
	if rules != nil {
		s = rules.RewriteSuitPrefix(s)
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
