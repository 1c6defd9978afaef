package gazette

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/caselaw-ingest/constants"
	"github.com/joseph-ayodele/caselaw-ingest/internal/causelist"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/document"
)

// PageTexter produces per-page text for scanned PDFs.
type PageTexter interface {
	PageText(ctx context.Context, pdfPath string) ([]string, error)
}

// PDFReader reads gazette notices from the text layer of a PDF, falling back to OCR
// when the document is a scan.
type PDFReader struct {
	ocr       PageTexter
	textPages func(path string) ([]string, error)
	logger    *slog.Logger
}

func NewPDFReader(ocr PageTexter, logger *slog.Logger) *PDFReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFReader{ocr: ocr, textPages: document.TextPages, logger: logger}
}

// Read extracts the gazette header and one Row per numbered notice.
func (r *PDFReader) Read(ctx context.Context, path string, t constants.GazetteType) (Header, []Row, error) {
	pages, err := r.textPages(path)
	if err != nil || !document.HasText(pages) {
		if r.ocr == nil {
			if err != nil {
				return Header{}, nil, err
			}
			return Header{}, nil, fmt.Errorf("%w: pdf has no text layer and OCR is not configured", common.ErrUnreadableDocument)
		}
		r.logger.Info("gazette.pdf.ocr_fallback", "path", path, "text_error", err)
		pages, err = r.ocr.PageText(ctx, path)
		if err != nil {
			return Header{}, nil, fmt.Errorf("ocr gazette: %w", err)
		}
	}
	h, rows := ParseText(strings.Join(pages, "\n"), t)
	r.logger.Debug("gazette.pdf.parsed", "path", path, "entries", len(rows), "gazette_number", h.GazetteNumber)
	return h, rows, nil
}

var (
	gazetteNumberRe = regexp.MustCompile(`(?i)\bGAZETTE\b[^\n]{0,40}?\bNO\.?\s*(\d{1,4})\b`)
	itemStartRe     = regexp.MustCompile(`^\s*(\d{1,6})[.)]\s+(\S.*)$`)

	subjectRe    = regexp.MustCompile(`^([^,]+?)\s*(?:,|$)`)
	professionRe = regexp.MustCompile(`(?i)^[^,]+,\s*(?:an?\s+)?(.+?)\s+of\s+(.+?)\s*,`)
	newNameRe    = regexp.MustCompile(`(?i)wish(?:es)?\s+to\s+be\s+(?:known\s+and\s+)?(?:called|addressed|known)\s+(?:as\s+|by\s+the\s+name\s+)?(.+?)(?:\s+with\s+effect|\s+and\s+|[,.;]|$)`)
	oldNameRe    = regexp.MustCompile(`(?i)(?:formerly\s+(?:known\s+and\s+called|known\s+as|called)|former\s+name\s+(?:is\s+|was\s+)?)\s*(.+?)(?:\s+with\s+effect|\s+remain|[,.;]|$)`)
	aliasRe      = regexp.MustCompile(`(?i)(?:\balias\b|\ba\.?k\.?a\b\.?|also\s+known\s+as)\s+(.+?)(?:\s+wish|\s+and\s+|[,;]|\.\s|$)`)
	effectiveRe  = regexp.MustCompile(`(?i)with\s+effect\s+from\s+(.+?\d{4})`)
	dobRe        = regexp.MustCompile(`(?i)date\s+of\s+birth\s+(?:is|as|to\s+be)\s+(.+?\d{4})(?:\s+and\s+not\s+(.+?\d{4}))?`)
	pobRe        = regexp.MustCompile(`(?i)place\s+of\s+birth\s+(?:is|as|to\s+be)\s+(.+?)(?:\s+and\s+not\s+(.+?))?(?:\s+with\s+effect|[.;]|$)`)
	officerRe    = regexp.MustCompile(`^(.+?)\s*(?:\s[-–]\s|,)\s*(.+?)$`)
)

// ParseText splits gazette text on numbered items and parses each as a notice of type t.
// Item numbers must increase; a number that goes backwards is treated as text.
func ParseText(text string, t constants.GazetteType) (Header, []Row) {
	var h Header
	if m := gazetteNumberRe.FindStringSubmatch(text); m != nil {
		h.GazetteNumber = m[1]
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	// the header date sits above the first notice
	for i, ln := range lines {
		if i > 30 || itemStartRe.MatchString(ln) {
			break
		}
		if d, ok := causelist.ParseLooseDate(ln); ok {
			h.GazetteDate = d
			break
		}
	}

	type item struct {
		number string
		text   []string
	}
	var items []item
	last := 0
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		if m := itemStartRe.FindStringSubmatch(ln); m != nil {
			n, _ := strconv.Atoi(m[1])
			if n > last {
				items = append(items, item{number: m[1], text: []string{m[2]}})
				last = n
				continue
			}
		}
		if len(items) > 0 {
			items[len(items)-1].text = append(items[len(items)-1].text, ln)
		}
	}

	rows := make([]Row, 0, len(items))
	for i, it := range items {
		body := strings.Join(strings.Fields(strings.Join(it.text, " ")), " ")
		e := parseNotice(body, t)
		e.ItemNumber = it.number
		e.GazetteNumber = h.GazetteNumber
		e.GazetteDate = h.GazetteDate
		rows = append(rows, Row{Index: i + 1, Entry: e, Err: e.Validate()})
	}
	return h, rows
}

func parseNotice(body string, t constants.GazetteType) Entry {
	e := Entry{Type: t}
	if m := professionRe.FindStringSubmatch(body); m != nil {
		e.Profession, e.Address = strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	if m := effectiveRe.FindStringSubmatch(body); m != nil {
		if d, ok := causelist.ParseLooseDate(m[1]); ok {
			e.EffectiveDate = d
		}
	}

	subject := ""
	if m := subjectRe.FindStringSubmatch(body); m != nil {
		subject = m[1]
	}

	switch t {
	case constants.ChangeOfName:
		if m := newNameRe.FindStringSubmatch(body); m != nil {
			e.NewName = cleanName(m[1])
		}
		if m := oldNameRe.FindStringSubmatch(body); m != nil {
			e.OldName = cleanName(m[1])
		}
		for _, m := range aliasRe.FindAllStringSubmatch(body, -1) {
			e.Aliases = append(e.Aliases, SplitAliases(m[1])...)
		}
		subject = aliasRe.ReplaceAllString(subject, "")
		if e.OldName == "" && !strings.EqualFold(cleanName(subject), e.NewName) {
			e.OldName = cleanName(subject)
		}
		e.FullName = cleanName(subject)
	case constants.ChangeOfDateOfBirth:
		e.FullName = cleanName(subject)
		if m := dobRe.FindStringSubmatch(body); m != nil {
			e.DateOfBirth, _ = causelist.ParseLooseDate(m[1])
			if m[2] != "" {
				e.OldDateOfBirth, _ = causelist.ParseLooseDate(m[2])
			}
		}
	case constants.ChangeOfPlaceOfBirth:
		e.FullName = cleanName(subject)
		if m := pobRe.FindStringSubmatch(body); m != nil {
			e.PlaceOfBirth = strings.Trim(m[1], " ,.")
			e.OldPlaceOfBirth = strings.Trim(m[2], " ,.")
		}
	case constants.AppointmentOfMarriageOfficers:
		if m := officerRe.FindStringSubmatch(body); m != nil {
			e.FullName = cleanName(m[1])
			e.Church = strings.Trim(m[2], " ,.")
			if i := strings.LastIndex(e.Church, ","); i > 0 {
				e.Church, e.Location = strings.TrimSpace(e.Church[:i]), strings.TrimSpace(e.Church[i+1:])
			}
		} else {
			e.FullName = cleanName(body)
		}
	}
	return e
}
