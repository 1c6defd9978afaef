package entity

import "time"

// CauseListEntry is one persisted case row, unique by (SuitNo, HearingDate).
type CauseListEntry struct {
	ID              int64      `json:"id"`
	SuitNo          string     `json:"suit_no"`
	HearingDate     time.Time  `json:"hearing_date"`
	HearingTime     *string    `json:"hearing_time,omitempty"`
	CaseTitle       string     `json:"case_title"`
	FirstPartyName  *string    `json:"first_party_name,omitempty"`
	SecondPartyName *string    `json:"second_party_name,omitempty"`
	CaseType        *string    `json:"case_type,omitempty"`
	Remarks         *string    `json:"remarks,omitempty"`
	CourtType       *string    `json:"court_type,omitempty"`
	Venue           *string    `json:"venue,omitempty"`
	Location        *string    `json:"location,omitempty"`
	SourceDocument  string     `json:"source_document"`
	PageNumber      int        `json:"page_number"`
	Status          string     `json:"status"`
	IsActive        bool       `json:"is_active"`
	CreatedBy       string     `json:"created_by"`
	UpdatedBy       *string    `json:"updated_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}
