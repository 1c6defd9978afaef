// Package gazette reads Ghana Gazette notices from spreadsheets and PDFs.
package gazette

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/caselaw-ingest/constants"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
)

// Entry is one gazette notice about one person.
type Entry struct {
	Type          constants.GazetteType
	ItemNumber    string
	GazetteNumber string
	GazetteDate   time.Time

	FullName   string
	NewName    string
	OldName    string
	Aliases    []string
	Profession string
	Address    string

	DateOfBirth     time.Time
	OldDateOfBirth  time.Time
	PlaceOfBirth    string
	OldPlaceOfBirth string
	EffectiveDate   time.Time

	Church   string
	Location string
	Remarks  string
}

// Row is a source row (or PDF entry) and the outcome of parsing it.
type Row struct {
	Index int // 1-based position in the source
	Entry Entry
	Err   error
}

// Header carries document-level gazette facts.
type Header struct {
	GazetteNumber string
	GazetteDate   time.Time
}

var ErrNoPersonName = errors.New("no person name")

var honorificRe = regexp.MustCompile(`(?i)^(?:(?:MR|MRS|MISS|MS|MADAM|DR|REV|REVEREND|PASTOR|BISHOP|APOSTLE|PROPHET|EVANGELIST|ELDER|DEACON|HON|NANA|ALHAJI|HAJIA|LT|CAPT|COL|SGT)\.?\s+)+`)

// PersonName is the name the person is known by after the notice.
func (e Entry) PersonName() string {
	if n := cleanName(e.NewName); n != "" {
		return n
	}
	return cleanName(e.FullName)
}

// AliasNames lists the aliases followed by the old name, without blanks or repeats.
func (e Entry) AliasNames() []string {
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		s = cleanName(s)
		if s == "" || seen[strings.ToUpper(s)] {
			return
		}
		seen[strings.ToUpper(s)] = true
		out = append(out, s)
	}
	for _, a := range e.Aliases {
		add(a)
	}
	add(e.OldName)
	return out
}

// Validate checks the facts a notice of its type cannot do without.
func (e Entry) Validate() error {
	if e.PersonName() == "" {
		return ErrNoPersonName
	}
	v := common.NewValidator()
	v.Field("person_name", e.PersonName(), common.Required, common.MaxLength(255))
	v.Field("item_number", e.ItemNumber, common.MaxLength(64))
	switch e.Type {
	case constants.ChangeOfName:
		v.Field("new_name", e.NewName, common.Required)
	case constants.ChangeOfDateOfBirth:
		if e.DateOfBirth.IsZero() {
			v.Field("date_of_birth", nil, common.Required)
		}
	case constants.ChangeOfPlaceOfBirth:
		v.Field("place_of_birth", e.PlaceOfBirth, common.Required)
	}
	return v.Err()
}

func cleanName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, " ,.;:-")
	return strings.TrimSpace(honorificRe.ReplaceAllString(s, ""))
}

var aliasSplitRe = regexp.MustCompile(`(?i)\s*(?:[,;/]|\bALIAS\b|\bAKA\b|\bA\.K\.A\.?)\s*`)

// SplitAliases splits a free-text alias cell.
func SplitAliases(s string) []string {
	var out []string
	for _, p := range aliasSplitRe.Split(s, -1) {
		if p = cleanName(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
