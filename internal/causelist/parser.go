package causelist

import (
	"log/slog"

	"github.com/joseph-ayodele/caselaw-ingest/internal/ocr"
)

// Result is what the parser recovered from a whole document.
type Result struct {
	Records []Record
	Pages   int
	// Skipped counts continuation lines that had no record to attach to.
	Skipped int
	Header  HeaderContext
}

// Parser walks OCR pages in document order. Header context carries across pages.
type Parser struct {
	rules       *Rules
	maxDistance int
	logger      *slog.Logger
}

type ParserOption func(*Parser)

// WithMaxDistance sets the proximity cutoff in pixels at the rendering DPI.
func WithMaxDistance(px int) ParserOption {
	return func(p *Parser) {
		if px > 0 {
			p.maxDistance = px
		}
	}
}

func NewParser(rules *Rules, logger *slog.Logger, opts ...ParserOption) *Parser {
	if rules == nil {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Parser{rules: rules, maxDistance: DefaultMaxDistance, logger: logger}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse assembles records from pages. Parsing never fails; lines that cannot be placed
// are counted in Result.Skipped.
func (p *Parser) Parse(pages []ocr.Page) Result {
	header := &HeaderContext{}
	asm := NewAssembler(p.rules, header, p.logger)
	var res Result

	for _, page := range pages {
		column, ok := EstimateVRSColumn(page.Lines)
		asm.StartPage(page.Number, column, ok)
		for _, ln := range page.Lines {
			asm.Feed(ln)
		}
		recs := asm.ClosePage(p.maxDistance)
		p.applyStrip(recs, page.StripLines)

		for i := range recs {
			recs[i].SuitNo = p.rules.RewriteForSection(recs[i].CaseType, recs[i].SuitNo)
		}

		p.logger.Debug("causelist.page.parsed",
			"page", page.Number,
			"records", len(recs),
			"vrs_column", column,
		)
		res.Records = append(res.Records, recs...)
		res.Pages++
	}
	res.Skipped = asm.Skipped()
	res.Header = *header
	return res
}

// applyStrip attaches remark codes and headings recovered from the right-hand strip.
func (p *Parser) applyStrip(recs []Record, strip []ocr.Line) {
	if len(recs) == 0 || len(strip) == 0 {
		return
	}
	var remarks, headings []Candidate[string]
	for _, ln := range strip {
		c := Classify(NormalizeLine(ln.Text), p.rules)
		switch c.Kind {
		case KindRemark:
			remarks = append(remarks, Candidate[string]{Pos: ln.Top, Value: c.Remark})
		case KindHeading:
			headings = append(headings, Candidate[string]{Pos: ln.Top, Value: c.Heading})
		}
	}
	AttachRemarks(recs, remarks, p.maxDistance)
	AttachHeadings(recs, headings, p.maxDistance)
}
