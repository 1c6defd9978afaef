package constants

import (
	"strings"
)

type GazetteType string

const (
	ChangeOfName                  GazetteType = "CHANGE_OF_NAME"
	ChangeOfDateOfBirth           GazetteType = "CHANGE_OF_DATE_OF_BIRTH"
	ChangeOfPlaceOfBirth          GazetteType = "CHANGE_OF_PLACE_OF_BIRTH"
	AppointmentOfMarriageOfficers GazetteType = "APPOINTMENT_OF_MARRIAGE_OFFICERS"
)

var allGazetteTypes = []GazetteType{
	ChangeOfName,
	ChangeOfDateOfBirth,
	ChangeOfPlaceOfBirth,
	AppointmentOfMarriageOfficers,
}

func GazetteTypesAsStrings() []string {
	result := make([]string, len(allGazetteTypes))
	for i, t := range allGazetteTypes {
		result[i] = string(t)
	}
	return result
}

// ParseGazetteType accepts the enum value in any case, with spaces or dashes in place of underscores.
func ParseGazetteType(input string) (GazetteType, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(input))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	if normalized == "" {
		return "", false
	}
	for _, t := range allGazetteTypes {
		if normalized == string(t) {
			return t, true
		}
	}
	return "", false
}
