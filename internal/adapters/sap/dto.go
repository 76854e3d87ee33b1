package sap

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
)

// Wire shapes. Every field is optional on the wire; validate turns them into
// domain values and drops entries the rest of the system cannot use.

type projectsResponse struct {
	Projects []projectDTO `json:"projects"`
}

type projectDTO struct {
	ProjectID   *flexID         `json:"projectId"`
	Name        *string         `json:"name"`
	Account     *string         `json:"account"`
	SubProjects []subProjectDTO `json:"subProjects"`
}

type subProjectDTO struct {
	SubProjectID *flexID `json:"subProjectId"`
	Name         *string `json:"name"`
	DMName       *string `json:"dmName"`
	PMName       *string `json:"pmName"`
	ProjectType  *string `json:"projectType"`
}

type detailDTO struct {
	TerminologyKeys []*string        `json:"terminologyKeys"`
	Environments    []environmentDTO `json:"environments"`
	Steps           []stepDTO        `json:"steps"`
}

type environmentDTO struct {
	ID   *flexID `json:"id"`
	Name *string `json:"name"`
	Type *string `json:"type"`
}

type stepDTO struct {
	ContentID       *flexID     `json:"contentId"`
	ServiceStepName *string     `json:"serviceStepName"`
	SourceLanguage  *string     `json:"sourceLanguage"`
	TargetLanguage  *string     `json:"targetLanguage"`
	ToolType        *string     `json:"toolType"`
	StartDate       *string     `json:"startDate"`
	EndDate         *string     `json:"endDate"`
	HasInstructions *bool       `json:"hasInstructions"`
	Volumes         []volumeDTO `json:"volumes"`
}

type volumeDTO struct {
	Quantity      *quantity `json:"quantity"`
	Unit          *string   `json:"unit"`
	ActivityLabel *string   `json:"activityLabel"`
}

type instructionsResponse struct {
	Instructions []instructionDTO `json:"instructions"`
}

type instructionDTO struct {
	LongText  *string `json:"longText"`
	ShortText *string `json:"shortText"`
}

// flexID accepts identifiers sent either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// quantity accepts numbers and numeric strings. Anything else decodes to NaN
// so validation can drop the volume without failing the whole payload.
type quantity float64

func (q *quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		v = math.NaN()
	}
	*q = quantity(v)
	return nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func id(p *flexID) string {
	if p == nil {
		return ""
	}
	return string(*p)
}

func (r projectsResponse) validate(log *zerolog.Logger) []domain.UpstreamProject {
	out := make([]domain.UpstreamProject, 0, len(r.Projects))
	for i, p := range r.Projects {
		pid, err := strconv.ParseInt(id(p.ProjectID), 10, 64)
		if err != nil || pid <= 0 {
			log.Warn().Int("index", i).Str("project_id", id(p.ProjectID)).Msg("dropping project without a numeric id")
			continue
		}
		proj := domain.UpstreamProject{
			ExternalProjectID: pid,
			Name:              str(p.Name),
			Account:           str(p.Account),
			SubProjects:       make([]domain.UpstreamSubProject, 0, len(p.SubProjects)),
		}
		for j, sp := range p.SubProjects {
			sid := id(sp.SubProjectID)
			if sid == "" {
				log.Warn().Int64("project_id", pid).Int("index", j).Msg("dropping subproject without id")
				continue
			}
			proj.SubProjects = append(proj.SubProjects, domain.UpstreamSubProject{
				ExternalSubProjectID: sid,
				Name:                 str(sp.Name),
				DMName:               str(sp.DMName),
				PMName:               str(sp.PMName),
				ProjectType:          str(sp.ProjectType),
			})
		}
		out = append(out, proj)
	}
	return out
}

func (d detailDTO) validate(log *zerolog.Logger, subProjectID string) domain.SubProjectDetail {
	out := domain.SubProjectDetail{
		TerminologyKeys: make([]string, 0, len(d.TerminologyKeys)),
		Environments:    make([]domain.Environment, 0, len(d.Environments)),
		Steps:           make([]domain.Step, 0, len(d.Steps)),
	}
	for _, k := range d.TerminologyKeys {
		if s := str(k); s != "" {
			out.TerminologyKeys = append(out.TerminologyKeys, s)
		}
	}
	for i, e := range d.Environments {
		if id(e.ID) == "" {
			log.Warn().Str("subproject_id", subProjectID).Int("index", i).Msg("dropping environment without id")
			continue
		}
		out.Environments = append(out.Environments, domain.Environment{ID: id(e.ID), Name: str(e.Name), Type: str(e.Type)})
	}
	for i, s := range d.Steps {
		step := domain.Step{
			ContentID:       id(s.ContentID),
			ServiceStepName: str(s.ServiceStepName),
			SourceLanguage:  str(s.SourceLanguage),
			TargetLanguage:  str(s.TargetLanguage),
			ToolType:        str(s.ToolType),
			StartDate:       str(s.StartDate),
			EndDate:         str(s.EndDate),
			HasInstructions: s.HasInstructions != nil && *s.HasInstructions,
			Volumes:         make([]domain.Volume, 0, len(s.Volumes)),
		}
		for j, v := range s.Volumes {
			if v.Quantity == nil {
				log.Warn().Str("subproject_id", subProjectID).Int("step", i).Int("index", j).Msg("dropping volume without quantity")
				continue
			}
			q := float64(*v.Quantity)
			if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
				log.Warn().Str("subproject_id", subProjectID).Int("step", i).Int("index", j).Msg("dropping volume with invalid quantity")
				continue
			}
			step.Volumes = append(step.Volumes, domain.Volume{Quantity: q, Unit: str(v.Unit), ActivityLabel: str(v.ActivityLabel)})
		}
		out.Steps = append(out.Steps, step)
	}
	return out
}

func (r instructionsResponse) validate() []domain.Instruction {
	out := make([]domain.Instruction, 0, len(r.Instructions))
	for _, in := range r.Instructions {
		long, short := str(in.LongText), str(in.ShortText)
		if long == "" && short == "" {
			continue
		}
		out = append(out, domain.Instruction{LongText: long, ShortText: short})
	}
	return out
}
