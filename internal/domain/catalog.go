package domain

import "time"

// ProjectListing is the upstream listing annotated against local records.
type ProjectListing struct {
	Projects  []ListedProject `json:"projects"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

type ListedProject struct {
	ExternalProjectID int64              `json:"projectId"`
	Name              string             `json:"name"`
	Account           string             `json:"account"`
	SubProjects       []ListedSubProject `json:"subProjects"`
}

type ListedSubProject struct {
	UpstreamSubProject
	Imported       bool       `json:"imported"`
	LocalProjectID *int64     `json:"localProjectId,omitempty"`
	LastSyncedAt   *time.Time `json:"lastSyncedAt,omitempty"`
	NeedsUpdate    bool       `json:"needsUpdate"`
}

// SubProjectPreview is what the UI shows before importing a subproject.
type SubProjectPreview struct {
	SubProjectID    string        `json:"subProjectId"`
	Name            *string       `json:"name"`
	ParentID        int64         `json:"parentId"`
	ParentName      *string       `json:"parentName"`
	Account         *string       `json:"account"`
	DMName          string        `json:"dmName"`
	PMName          string        `json:"pmName"`
	ProjectType     string        `json:"projectType"`
	LanguageIn      *string       `json:"languageIn"`
	LanguageOut     *string       `json:"languageOut"`
	System          string        `json:"system"`
	InitialDeadline *string       `json:"initialDeadline"`
	FinalDeadline   *string       `json:"finalDeadline"`
	Words           float64       `json:"words"`
	Lines           float64       `json:"lines"`
	Instructions    *string       `json:"instructions"`
	TerminologyKeys []string      `json:"terminologyKeys"`
	Environments    []Environment `json:"environments"`
	Steps           []StepPreview `json:"steps"`
}

type StepPreview struct {
	ContentID       string  `json:"contentId"`
	ServiceStepName string  `json:"serviceStepName"`
	SourceLanguage  string  `json:"sourceLanguage"`
	TargetLanguage  string  `json:"targetLanguage"`
	ToolType        string  `json:"toolType"`
	System          string  `json:"system"`
	StartDate       *string `json:"startDate"`
	EndDate         *string `json:"endDate"`
	HasInstructions bool    `json:"hasInstructions"`
	Words           float64 `json:"words"`
	Lines           float64 `json:"lines"`
}
