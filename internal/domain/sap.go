package domain

// UpstreamProject is a top-level container in the SAP source system.
type UpstreamProject struct {
	ExternalProjectID int64                `json:"projectId"`
	Name              string               `json:"name"`
	Account           string               `json:"account"`
	SubProjects       []UpstreamSubProject `json:"subProjects"`
}

// FindSubProject returns the subproject with the given external id.
func (p UpstreamProject) FindSubProject(id string) (UpstreamSubProject, bool) {
	for _, sp := range p.SubProjects {
		if sp.ExternalSubProjectID == id {
			return sp, true
		}
	}
	return UpstreamSubProject{}, false
}

// UpstreamSubProject is one unit of work. ExternalSubProjectID is globally unique
// and joins to Project.SapSubProjectID.
type UpstreamSubProject struct {
	ExternalSubProjectID string `json:"subProjectId"`
	Name                 string `json:"name"`
	DMName               string `json:"dmName"`
	PMName               string `json:"pmName"`
	ProjectType          string `json:"projectType"`
}

// SubProjectDetail is fetched per subproject; the listing call does not carry it.
type SubProjectDetail struct {
	TerminologyKeys []string      `json:"terminologyKeys"`
	Environments    []Environment `json:"environments"`
	Steps           []Step        `json:"steps"`
}

type Environment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Step carries the dates, languages and tool used to derive a project's fields.
// Empty strings mean the upstream value was absent.
type Step struct {
	ContentID       string   `json:"contentId"`
	ServiceStepName string   `json:"serviceStepName"`
	SourceLanguage  string   `json:"sourceLanguage"`
	TargetLanguage  string   `json:"targetLanguage"`
	ToolType        string   `json:"toolType"`
	StartDate       string   `json:"startDate"`
	EndDate         string   `json:"endDate"`
	HasInstructions bool     `json:"hasInstructions"`
	Volumes         []Volume `json:"volumes"`
}

type Volume struct {
	Quantity      float64 `json:"quantity"`
	Unit          string  `json:"unit"`
	ActivityLabel string  `json:"activityLabel"`
}

type Instruction struct {
	LongText  string `json:"longText"`
	ShortText string `json:"shortText"`
}

// Volume units observed upstream.
const (
	UnitWords = "Words"
	UnitLines = "Lines"
)
