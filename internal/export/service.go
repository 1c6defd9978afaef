package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/caselaw-ingest/internal/entity"
	"github.com/joseph-ayodele/caselaw-ingest/internal/repository"
)

const sheet = "Cause List"

var headers = []string{
	"Hearing Date",
	"Hearing Time",
	"Suit No",
	"Case Title",
	"First Party",
	"Second Party",
	"Case Type",
	"Remarks",
	"Court",
	"Venue",
	"Location",
	"Page",
	"Source Document",
}

// Service is a tiny façade over the cause-list repository that produces XLSX bytes.
type Service struct {
	entries repository.CauseListRepository
	logger  *slog.Logger
}

func NewService(entries repository.CauseListRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{entries: entries, logger: logger}
}

// ExportCauseListXLSX returns a workbook of the entries heard in the given window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> every entry.
func (s *Service) ExportCauseListXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate time.Time
	if from != nil {
		fromDate = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	}
	if to != nil {
		toDate = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	}
	if from != nil && to == nil {
		today := time.Now().UTC()
		toDate = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	}

	recs, err := s.entries.ListByHearingDate(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query cause list: %w", err)
	}
	rows := make([]entity.CauseListEntry, len(recs))
	for i, r := range recs {
		rows[i] = *r
	}

	out, err := WriteCauseListXLSX(rows)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// WriteCauseListXLSX renders entries as a single-sheet workbook.
func WriteCauseListXLSX(entries []entity.CauseListEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, e := range entries {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, e.HearingDate.Format("2006-01-02"))
		write(2, deref(e.HearingTime))
		write(3, e.SuitNo)
		write(4, truncate(e.CaseTitle, 300))
		write(5, deref(e.FirstPartyName))
		write(6, deref(e.SecondPartyName))
		write(7, deref(e.CaseType))
		write(8, deref(e.Remarks))
		write(9, deref(e.CourtType))
		write(10, deref(e.Venue))
		write(11, deref(e.Location))
		write(12, e.PageNumber)
		write(13, e.SourceDocument)
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "B", 14) // date, time
	_ = f.SetColWidth(sheet, "C", "C", 18) // suit no
	_ = f.SetColWidth(sheet, "D", "D", 60) // title
	_ = f.SetColWidth(sheet, "E", "F", 32) // parties
	_ = f.SetColWidth(sheet, "G", "H", 20) // type, remarks
	_ = f.SetColWidth(sheet, "I", "K", 24) // court, venue, location
	_ = f.SetColWidth(sheet, "M", "M", 40) // source

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
