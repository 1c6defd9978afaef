package gazette

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/caselaw-ingest/constants"
	"github.com/joseph-ayodele/caselaw-ingest/internal/causelist"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
)

type field int

const (
	fieldUnknown field = iota
	fieldItemNumber
	fieldGazetteNumber
	fieldGazetteDate
	fieldFullName
	fieldNewName
	fieldOldName
	fieldAliases
	fieldProfession
	fieldAddress
	fieldDateOfBirth
	fieldOldDateOfBirth
	fieldPlaceOfBirth
	fieldOldPlaceOfBirth
	fieldEffectiveDate
	fieldChurch
	fieldLocation
	fieldRemarks
)

// headerAliases maps a squashed, lowercased header onto a field.
var headerAliases = map[string]field{
	"itemnumber": fieldItemNumber, "itemno": fieldItemNumber, "item": fieldItemNumber,
	"no": fieldItemNumber, "sn": fieldItemNumber, "serialno": fieldItemNumber, "serialnumber": fieldItemNumber,

	"gazettenumber": fieldGazetteNumber, "gazetteno": fieldGazetteNumber,
	"gazettedate": fieldGazetteDate, "dateofgazette": fieldGazetteDate, "publicationdate": fieldGazetteDate,

	"fullname": fieldFullName, "name": fieldFullName, "nameofperson": fieldFullName,
	"nameofofficer": fieldFullName, "officer": fieldFullName, "marriageofficer": fieldFullName,

	"newname": fieldNewName, "currentname": fieldNewName, "presentname": fieldNewName,
	"oldname": fieldOldName, "formername": fieldOldName, "previousname": fieldOldName,
	"alias": fieldAliases, "aliases": fieldAliases, "aliasnames": fieldAliases,
	"aka": fieldAliases, "alsoknownas": fieldAliases,

	"profession": fieldProfession, "occupation": fieldProfession,
	"address": fieldAddress, "residence": fieldAddress, "placeofresidence": fieldAddress,

	"dateofbirth": fieldDateOfBirth, "newdateofbirth": fieldDateOfBirth, "correctdateofbirth": fieldDateOfBirth, "dob": fieldDateOfBirth,
	"olddateofbirth": fieldOldDateOfBirth, "formerdateofbirth": fieldOldDateOfBirth, "wrongdateofbirth": fieldOldDateOfBirth,
	"placeofbirth": fieldPlaceOfBirth, "newplaceofbirth": fieldPlaceOfBirth, "correctplaceofbirth": fieldPlaceOfBirth,
	"oldplaceofbirth": fieldOldPlaceOfBirth, "formerplaceofbirth": fieldOldPlaceOfBirth, "wrongplaceofbirth": fieldOldPlaceOfBirth,
	"effectivedate": fieldEffectiveDate, "dateofeffect": fieldEffectiveDate, "witheffectfrom": fieldEffectiveDate,

	"church": fieldChurch, "denomination": fieldChurch, "placeofworship": fieldChurch,
	"location": fieldLocation, "town": fieldLocation, "district": fieldLocation, "region": fieldLocation,
	"remarks": fieldRemarks, "notes": fieldRemarks,
}

var squashRe = regexp.MustCompile(`[^a-z0-9]+`)

func headerField(h string) field {
	return headerAliases[squashRe.ReplaceAllString(strings.ToLower(h), "")]
}

// ReadExcel reads the first sheet of an .xlsx workbook. The first row holding at least
// one known header is the header row; every later non-blank row becomes a Row whose Err
// is set when the row cannot be turned into a valid entry.
func ReadExcel(r io.Reader, t constants.GazetteType) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", common.ErrUnreadableDocument, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", common.ErrUnreadableDocument)
	}
	// raw values keep date cells as serial numbers instead of locale-formatted text
	cells, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %s: %v", common.ErrUnreadableDocument, sheets[0], err)
	}

	headerIdx, cols := findHeader(cells)
	if headerIdx < 0 {
		return nil, fmt.Errorf("%w: no recognizable header row", common.ErrInvalidInput)
	}

	var rows []Row
	for i := headerIdx + 1; i < len(cells); i++ {
		if blank(cells[i]) {
			continue
		}
		entry, err := entryFromCells(cells[i], cols, t)
		if err == nil {
			err = entry.Validate()
		}
		rows = append(rows, Row{Index: len(rows) + 1, Entry: entry, Err: err})
	}
	return rows, nil
}

func findHeader(cells [][]string) (int, map[int]field) {
	for i, row := range cells {
		cols := map[int]field{}
		for j, h := range row {
			if fd := headerField(h); fd != fieldUnknown {
				cols[j] = fd
			}
		}
		if len(cols) > 0 {
			return i, cols
		}
	}
	return -1, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func entryFromCells(row []string, cols map[int]field, t constants.GazetteType) (Entry, error) {
	e := Entry{Type: t}
	for j, fd := range cols {
		if j >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[j])
		if v == "" {
			continue
		}
		var err error
		switch fd {
		case fieldItemNumber:
			e.ItemNumber = normalizeItemNumber(v)
		case fieldGazetteNumber:
			e.GazetteNumber = normalizeItemNumber(v)
		case fieldGazetteDate:
			e.GazetteDate, err = cellDate(v)
		case fieldFullName:
			e.FullName = v
		case fieldNewName:
			e.NewName = v
		case fieldOldName:
			e.OldName = v
		case fieldAliases:
			e.Aliases = SplitAliases(v)
		case fieldProfession:
			e.Profession = v
		case fieldAddress:
			e.Address = v
		case fieldDateOfBirth:
			e.DateOfBirth, err = cellDate(v)
		case fieldOldDateOfBirth:
			e.OldDateOfBirth, err = cellDate(v)
		case fieldPlaceOfBirth:
			e.PlaceOfBirth = v
		case fieldOldPlaceOfBirth:
			e.OldPlaceOfBirth = v
		case fieldEffectiveDate:
			e.EffectiveDate, err = cellDate(v)
		case fieldChurch:
			e.Church = v
		case fieldLocation:
			e.Location = v
		case fieldRemarks:
			e.Remarks = v
		}
		if err != nil {
			return e, fmt.Errorf("column %d: %w", j+1, err)
		}
	}
	return e, nil
}

// normalizeItemNumber turns spreadsheet numerics such as "1234.0" into "1234".
func normalizeItemNumber(v string) string {
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return v
}

// cellDate accepts an Excel serial date or any date spelling ParseLooseDate knows.
func cellDate(v string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: bad date serial %q", common.ErrInvalidInput, v)
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	if t, ok := causelist.ParseLooseDate(v); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", common.ErrInvalidInput, v)
}
