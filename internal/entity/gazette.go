package entity

import "time"

// Gazette is one gazette notice, unique by (ItemNumber, DocumentFilename).
type Gazette struct {
	ID               int64      `json:"id"`
	GazetteType      string     `json:"gazette_type"`
	ItemNumber       string     `json:"item_number"`
	DocumentFilename string     `json:"document_filename"`
	GazetteNumber    *string    `json:"gazette_number,omitempty"`
	GazetteDate      *time.Time `json:"gazette_date,omitempty"`
	PersonID         *int64     `json:"person_id,omitempty"`
	FullName         string     `json:"full_name"`
	OldName          *string    `json:"old_name,omitempty"`
	NewName          *string    `json:"new_name,omitempty"`
	AliasNames       []string   `json:"alias_names"`
	Profession       *string    `json:"profession,omitempty"`
	Address          *string    `json:"address,omitempty"`
	OldDateOfBirth   *time.Time `json:"old_date_of_birth,omitempty"`
	NewDateOfBirth   *time.Time `json:"new_date_of_birth,omitempty"`
	OldPlaceOfBirth  *string    `json:"old_place_of_birth,omitempty"`
	NewPlaceOfBirth  *string    `json:"new_place_of_birth,omitempty"`
	EffectiveDate    *time.Time `json:"effective_date,omitempty"`
	Church           *string    `json:"church,omitempty"`
	Location         *string    `json:"location,omitempty"`
	Remarks          *string    `json:"remarks,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
