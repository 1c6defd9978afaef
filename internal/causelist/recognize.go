package causelist

import (
	"regexp"
	"strings"
	"time"
)

// Kind is what a normalized line turned out to be.
type Kind int

const (
	KindSkip Kind = iota
	KindVenue
	KindDate
	KindTime
	KindHeading
	KindSuit
	KindRemark
	KindContinuation
)

func (k Kind) String() string {
	switch k {
	case KindSkip:
		return "skip"
	case KindVenue:
		return "venue"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindHeading:
		return "heading"
	case KindSuit:
		return "suit"
	case KindRemark:
		return "remark"
	default:
		return "continuation"
	}
}

// Classification is the outcome of running the recognizers over one line.
// Only the fields relevant to Kind are set.
type Classification struct {
	Kind Kind
	Text string

	Venue    string
	Location string
	Date     time.Time
	Time     *Clock
	Heading  string
	SuitNo   string // as written, not canonical
	Rest     string // text after the suit number, trailing remark removed
	Remark   string
}

var (
	// at most four court-level words may precede COURT, so "IN THE MATTER OF ... COURT"
	// titles stay continuations
	venueRe    = regexp.MustCompile(`^IN\s+THE\s+((?:[A-Z]+\s+){0,4}COURT\b.*)$`)
	notVenueRe = regexp.MustCompile(`^IN\s+(?:THE\s+)?(?:MATTER|ESTATE|RE)\b`)
	heldAtRe   = regexp.MustCompile(`^(.*?)[\s,]*\bHELD\s+AT\s+(.+?)[.\s]*$`)
	timeLineRe = regexp.MustCompile(`^(?:(?:COURT\s+)?(?:SITTING\s+TIME|SITS\s+AT|TIME(?:\s+OF\s+SITTING)?|AT)\s*[:.\-]?\s*)?` +
		`\d{1,2}(?:[:.]\d{2})?\s*[AP]\.?\s*M\.?$`)
	timeLabelRe = regexp.MustCompile(`^(?:COURT\s+)?(?:SITTING\s+TIME|SITS\s+AT|TIME(?:\s+OF\s+SITTING)?)\s*[:.\-]?\s*\d{1,2}:\d{2}$`)
	suitRe      = regexp.MustCompile(`^(?:SUIT\s*NO\.?\s*:?\s*)?([A-Z0-9]{1,6}(?:/[A-Z0-9]{1,8}){1,3})(?:\s+(.*))?$`)
	bareDateRe  = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`)
)

// Classify runs the recognizers over a normalized line in priority order:
// skip, venue, date, time, heading, suit number, remark, continuation.
func Classify(line string, rules *Rules) Classification {
	text := strings.TrimSpace(line)
	upper := strings.ToUpper(text)
	c := Classification{Text: text}

	if text == "" || rules.IsSkip(text) {
		c.Kind = KindSkip
		return c
	}
	if venue, location, ok := matchVenue(upper); ok {
		c.Kind, c.Venue, c.Location = KindVenue, venue, location
		return c
	}
	if d, ok := ParseDateFromText(upper); ok {
		c.Kind, c.Date = KindDate, d
		if t, ok := ParseTimeFromText(upper); ok {
			c.Time = &t
		}
		return c
	}
	if timeLineRe.MatchString(upper) || timeLabelRe.MatchString(upper) {
		if t, ok := ParseTimeFromText(upper); ok {
			c.Kind, c.Time = KindTime, &t
			return c
		}
	}
	if h, ok := rules.Heading(upper); ok {
		c.Kind, c.Heading = KindHeading, h
		return c
	}
	if suit, rest, ok := matchSuit(upper, text); ok {
		c.Kind, c.SuitNo = KindSuit, suit
		c.Rest, c.Remark = rules.SplitTrailingRemark(rest)
		return c
	}
	if code, ok := rules.Remark(upper); ok {
		c.Kind, c.Remark = KindRemark, code
		return c
	}
	c.Kind = KindContinuation
	return c
}

func matchVenue(upper string) (venue, location string, ok bool) {
	if notVenueRe.MatchString(upper) {
		return "", "", false
	}
	if m := venueRe.FindStringSubmatch(upper); m != nil {
		body := strings.TrimSpace(m[1])
		if h := heldAtRe.FindStringSubmatch(body); h != nil {
			return trimVenue(h[1]), trimVenue(h[2]), true
		}
		if i := strings.LastIndex(body, ","); i > 0 && strings.Contains(body[:i], "COURT") {
			return trimVenue(body[:i]), trimVenue(body[i+1:]), true
		}
		return trimVenue(body), "", true
	}
	if h := heldAtRe.FindStringSubmatch(upper); h != nil && strings.TrimSpace(h[1]) == "" {
		return "", trimVenue(h[2]), true
	}
	return "", "", false
}

func trimVenue(s string) string {
	return strings.Trim(strings.TrimSpace(s), ",.:;-")
}

func matchSuit(upper, text string) (suit, rest string, ok bool) {
	m := suitRe.FindStringSubmatchIndex(upper)
	if m == nil {
		return "", "", false
	}
	suit = upper[m[2]:m[3]]
	segs := strings.Split(suit, "/")
	last := segs[len(segs)-1]
	if !isDigits(last) || (len(last) != 2 && len(last) != 4) {
		return "", "", false
	}
	if m[4] < 0 && bareDateRe.MatchString(suit) {
		return "", "", false
	}
	if m[4] >= 0 {
		src := upper
		if len(text) == len(upper) {
			// keep the title in its original case
			src = text
		}
		rest = strings.TrimSpace(src[m[4]:m[5]])
	}
	return suit, rest, true
}
