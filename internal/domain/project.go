package domain

import "time"

// API sources of a local project record.
const (
	APISourceManual = "manual"
	APISourceSAP    = "sap"
)

// Project statuses. Status is user-owned; sync only sets it on insert.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusDelivered  = "delivered"
	StatusCompleted  = "completed"
)

// Project is the local project record. Fields below the SAP marker are owned by
// the sync subsystem whenever SapSubProjectID is set.
type Project struct {
	ID           int64  `json:"id"`
	Status       string `json:"status"`
	CustomNotes  string `json:"custom_notes"`
	Paid         bool   `json:"paid"`
	Invoiced     bool   `json:"invoiced"`
	TranslatorID *int64 `json:"translator_id"`
	ReviewerID   *int64 `json:"reviewer_id"`

	// SAP-owned
	Name            string     `json:"name"`
	LanguageIn      *string    `json:"language_in"`
	LanguageOut     *string    `json:"language_out"`
	InitialDeadline *string    `json:"initial_deadline"`
	FinalDeadline   *string    `json:"final_deadline"`
	System          string     `json:"system"`
	Words           float64    `json:"words"`
	Lines           float64    `json:"lines"`
	SapSubProjectID *string    `json:"sap_subproject_id"`
	SapParentID     *int64     `json:"sap_parent_id"`
	SapParentName   *string    `json:"sap_parent_name"`
	SapAccount      *string    `json:"sap_account"`
	SapPMName       *string    `json:"sap_pm_name"`
	SapInstructions *string    `json:"sap_instructions"`
	LastSyncedAt    *time.Time `json:"last_synced_at"`
	APISource       string     `json:"api_source"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectImport is the SAP-owned field set produced by the mapper. It is the
// only shape the sync subsystem writes.
type ProjectImport struct {
	Name            string    `json:"name"`
	LanguageIn      *string   `json:"language_in"`
	LanguageOut     *string   `json:"language_out"`
	InitialDeadline *string   `json:"initial_deadline"`
	FinalDeadline   *string   `json:"final_deadline"`
	System          string    `json:"system"`
	Words           float64   `json:"words"`
	Lines           float64   `json:"lines"`
	SapSubProjectID string    `json:"sap_subproject_id"`
	SapParentID     int64     `json:"sap_parent_id"`
	SapParentName   *string   `json:"sap_parent_name"`
	SapAccount      *string   `json:"sap_account"`
	SapPMName       *string   `json:"sap_pm_name"`
	SapInstructions *string   `json:"sap_instructions"`
	LastSyncedAt    time.Time `json:"last_synced_at"`
	APISource       string    `json:"api_source"`
}

// DateRange holds canonical timestamps; nil when no step had usable dates.
type DateRange struct {
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
}
