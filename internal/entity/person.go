package entity

import "time"

// Person is shared by every gazette notice that names them.
type Person struct {
	ID                    int64      `json:"id"`
	FullName              string     `json:"full_name"`
	PreviousNames         []string   `json:"previous_names"`
	DateOfBirth           *time.Time `json:"date_of_birth,omitempty"`
	PlaceOfBirth          *string    `json:"place_of_birth,omitempty"`
	Profession            *string    `json:"profession,omitempty"`
	Address               *string    `json:"address,omitempty"`
	IsMarriageOfficer     bool       `json:"is_marriage_officer"`
	MarriageOfficerChurch *string    `json:"marriage_officer_church,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             *time.Time `json:"updated_at,omitempty"`
}
