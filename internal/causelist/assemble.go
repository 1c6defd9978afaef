package causelist

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/caselaw-ingest/internal/ocr"
)

// HeaderContext is the document-level state inherited by records until overridden.
type HeaderContext struct {
	Venue       string
	Location    string
	HearingDate time.Time
	HearingTime *Clock
	CaseType    string
}

// Record is one case entry of a cause list.
type Record struct {
	SuitNo      string
	CaseTitle   string
	FirstParty  string
	SecondParty string
	CaseType    string
	Remarks     string
	HearingDate time.Time
	HearingTime *Clock
	Venue       string
	Location    string
	Page        int
	Top         int
	SplitMethod SplitMethod

	rawTitle string
	words    []ocr.Token
}

// HasHearingDate reports whether the record inherited or carried a hearing date.
func (r *Record) HasHearingDate() bool { return !r.HearingDate.IsZero() }

// State of the assembler between lines.
type State int

const (
	NoOpenRecord State = iota
	AccumulatingRecord
)

// Event reports what Feed did with a line.
type Event int

const (
	EventIgnored Event = iota
	EventContext
	EventOpened
	EventAppended
	EventRemark
	EventSkipped
)

type remarkCandidate = Candidate[string]

// Assembler accumulates classified lines of one page into records. A suit-number line
// closes the open record and opens a new one; context lines update the shared
// HeaderContext; continuation lines extend the open record's title.
type Assembler struct {
	rules  *Rules
	header *HeaderContext
	logger *slog.Logger

	page      int
	column    int
	hasColumn bool

	state   State
	open    *Record
	closed  []Record
	remarks []remarkCandidate
	skipped int
}

func NewAssembler(rules *Rules, header *HeaderContext, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	if header == nil {
		header = &HeaderContext{}
	}
	return &Assembler{rules: rules, header: header, logger: logger}
}

// StartPage resets per-page state. column is the estimated separator column, if any.
func (a *Assembler) StartPage(page, column int, hasColumn bool) {
	a.page, a.column, a.hasColumn = page, column, hasColumn
	a.state, a.open = NoOpenRecord, nil
	a.closed, a.remarks = nil, nil
}

func (a *Assembler) State() State { return a.state }

// Skipped counts continuation lines that arrived with no open record.
func (a *Assembler) Skipped() int { return a.skipped }

// Header returns the context records are currently opened with.
func (a *Assembler) Header() HeaderContext { return *a.header }

// Feed classifies one OCR line and applies it.
func (a *Assembler) Feed(line ocr.Line) Event {
	text := NormalizeLine(line.Text)
	c := Classify(text, a.rules)

	switch c.Kind {
	case KindSkip:
		return EventIgnored
	case KindVenue:
		if c.Venue != "" {
			a.header.Venue = c.Venue
		}
		if c.Location != "" {
			a.header.Location = c.Location
		}
		return EventContext
	case KindDate:
		a.header.HearingDate = c.Date
		if c.Time != nil {
			a.header.HearingTime = c.Time
		}
		return EventContext
	case KindTime:
		a.header.HearingTime = c.Time
		return EventContext
	case KindHeading:
		a.header.CaseType = c.Heading
		return EventContext
	case KindSuit:
		a.closeOpen()
		a.openRecord(c, line)
		return EventOpened
	case KindRemark:
		a.remarks = append(a.remarks, remarkCandidate{Pos: line.Top, Value: c.Remark})
		return EventRemark
	}

	if a.state != AccumulatingRecord {
		a.skipped++
		a.logger.Debug("causelist.line.orphan", "page", a.page, "text", text)
		return EventSkipped
	}
	rest := c.Text
	if a.open.Remarks == "" {
		var code string
		rest, code = a.rules.SplitTrailingRemark(rest)
		a.open.Remarks = code
	}
	a.open.rawTitle = strings.TrimSpace(a.open.rawTitle + " " + rest)
	a.open.words = append(a.open.words, line.Words...)
	a.refresh(a.open)
	return EventAppended
}

// ClosePage closes the open record, attaches standalone remark lines by proximity and
// returns the page's records in reading order.
func (a *Assembler) ClosePage(maxDistance int) []Record {
	a.closeOpen()
	recs := a.closed
	if len(a.remarks) > 0 {
		AttachRemarks(recs, a.remarks, maxDistance)
	}
	a.closed, a.remarks = nil, nil
	return recs
}

func (a *Assembler) openRecord(c Classification, line ocr.Line) {
	h := a.header
	r := &Record{
		SuitNo:      CanonicalSuitNo(c.SuitNo, a.rules),
		CaseType:    h.CaseType,
		Remarks:     c.Remark,
		HearingDate: h.HearingDate,
		HearingTime: h.HearingTime,
		Venue:       h.Venue,
		Location:    h.Location,
		Page:        a.page,
		Top:         line.Top,
		rawTitle:    c.Rest,
		words:       titleWords(line.Words, c.SuitNo, c.Remark),
	}
	a.refresh(r)
	a.open, a.state = r, AccumulatingRecord
}

func (a *Assembler) closeOpen() {
	if a.state != AccumulatingRecord {
		return
	}
	r := a.open
	a.logger.Debug("causelist.record.closed",
		"page", a.page,
		"suit_no", r.SuitNo,
		"split", string(r.SplitMethod),
	)
	a.closed = append(a.closed, *r)
	a.open, a.state = nil, NoOpenRecord
}

// refresh re-derives the title and parties after the raw title changed.
func (a *Assembler) refresh(r *Record) {
	r.CaseTitle, r.SplitMethod = NormalizeTitle(r.rawTitle, a.rules)
	if r.SplitMethod == SplitNone && a.hasColumn && !strings.Contains(r.CaseTitle, "EX-PARTE") {
		if t, ok := splitByColumn(r.words, a.column); ok {
			r.CaseTitle, r.SplitMethod = t, SplitColumn
		}
	}
	r.FirstParty, r.SecondParty = SplitParties(r.CaseTitle)
}

var numberingWordRe = regexp.MustCompile(`^\(?\d{1,3}[.)]$`)

// titleWords drops the list number, the suit-number words and a trailing remark from
// the words of a suit line.
func titleWords(words []ocr.Token, suit, remark string) []ocr.Token {
	compact := strings.ToUpper(suit)
	var acc string
	i := 0
	for ; i < len(words); i++ {
		w := strings.ToUpper(strings.ReplaceAll(words[i].Text, " ", ""))
		if i == 0 && numberingWordRe.MatchString(w) {
			continue
		}
		if i == 0 {
			if m := gluedNumRe.FindStringIndex(w); m != nil && m[1] < len(w) {
				w = w[m[1]:]
			}
		}
		if w == "|" {
			continue
		}
		if acc != compact && strings.HasPrefix(compact, acc+w) {
			acc += w
			continue
		}
		break
	}
	out := append([]ocr.Token(nil), words[i:]...)
	if remark != "" && len(out) > 0 && strings.EqualFold(out[len(out)-1].Text, remark) {
		out = out[:len(out)-1]
	}
	return out
}

// EstimateVRSColumn returns the median left edge of the separator words on a page.
func EstimateVRSColumn(lines []ocr.Line) (int, bool) {
	var xs []int
	for _, ln := range lines {
		for _, w := range ln.Words {
			if isSeparator(w.Text) {
				xs = append(xs, w.Left)
			}
		}
	}
	if len(xs) == 0 {
		return 0, false
	}
	sort.Ints(xs)
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2], true
	}
	return (xs[n/2-1] + xs[n/2]) / 2, true
}

// AttachRemarks assigns remark candidates to records without a textual remark.
func AttachRemarks(recs []Record, cands []Candidate[string], maxDistance int) {
	idx, tops := openSlots(recs, func(r *Record) bool { return r.Remarks == "" })
	for i, v := range AssignByProximity(cands, tops, maxDistance) {
		recs[idx[i]].Remarks = v
	}
}

// AttachHeadings assigns heading candidates to records that have no case type.
func AttachHeadings(recs []Record, cands []Candidate[string], maxDistance int) {
	idx, tops := openSlots(recs, func(r *Record) bool { return r.CaseType == "" })
	for i, v := range AssignByProximity(cands, tops, maxDistance) {
		recs[idx[i]].CaseType = v
	}
}

func openSlots(recs []Record, want func(*Record) bool) ([]int, []int) {
	var idx, tops []int
	for i := range recs {
		if want(&recs[i]) {
			idx = append(idx, i)
			tops = append(tops, recs[i].Top)
		}
	}
	return idx, tops
}
