// Package mapper turns upstream SAP shapes into local project records and UI
// previews. Every function is pure and total: malformed input degrades to nil
// or default values instead of failing.
package mapper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
)

// DefaultSystem is used when a tool type is missing or unknown.
const DefaultSystem = "TBD"

// TimeLayout is the canonical serialization of deadlines and step dates.
const TimeLayout = "2006-01-02T15:04:05.000Z"

var toolSystems = map[string]string{
	"XTM": "XTM",
	"LXE": "LAT",
	"SSE": "SSE",
	"STM": "STM",
}

// MapToolTypeToSystem maps an upstream tool type to a local system code.
func MapToolTypeToSystem(toolType string) string {
	if sys, ok := toolSystems[strings.ToUpper(strings.TrimSpace(toolType))]; ok {
		return sys
	}
	return DefaultSystem
}

// SumVolumesByUnit adds the first volume of each step whose unit matches.
func SumVolumesByUnit(steps []domain.Step, unit string) float64 {
	var total float64
	for _, st := range steps {
		for _, v := range st.Volumes {
			if strings.EqualFold(strings.TrimSpace(v.Unit), unit) {
				total += v.Quantity
				break
			}
		}
	}
	return total
}

var (
	odataDateRe = regexp.MustCompile(`^/Date\((-?\d+)(?:[+-]\d{4})?\)/$`)

	dateLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
)

// ParseTimestamp accepts the date forms seen upstream. Values without a zone
// are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if m := odataDateRe.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders t in TimeLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ExtractDateRange returns the earliest start and latest end over steps whose
// start and end both parse. Both are nil when no step qualifies.
func ExtractDateRange(steps []domain.Step) domain.DateRange {
	var start, end time.Time
	found := false
	for _, st := range steps {
		s, ok1 := ParseTimestamp(st.StartDate)
		e, ok2 := ParseTimestamp(st.EndDate)
		if !ok1 || !ok2 {
			continue
		}
		if !found || s.Before(start) {
			start = s
		}
		if !found || e.After(end) {
			end = e
		}
		found = true
	}
	if !found {
		return domain.DateRange{}
	}
	return domain.DateRange{StartDate: strPtr(FormatTimestamp(start)), EndDate: strPtr(FormatTimestamp(end))}
}

// ExtractLanguages returns the language pair of the first step that names
// either language.
func ExtractLanguages(steps []domain.Step) (source, target *string) {
	for _, st := range steps {
		src, tgt := strings.TrimSpace(st.SourceLanguage), strings.TrimSpace(st.TargetLanguage)
		if src == "" && tgt == "" {
			continue
		}
		return optional(src), optional(tgt)
	}
	return nil, nil
}

// ExtractSystem maps the first populated tool type.
func ExtractSystem(steps []domain.Step) string {
	for _, st := range steps {
		if strings.TrimSpace(st.ToolType) != "" {
			return MapToolTypeToSystem(st.ToolType)
		}
	}
	return DefaultSystem
}

// BuildSapInstructions renders the DM line followed by every instruction text,
// separated by blank lines. It returns nil when there is nothing to show.
func BuildSapInstructions(dmName string, instructions []domain.Instruction) *string {
	var parts []string
	if dm := strings.TrimSpace(dmName); dm != "" {
		parts = append(parts, "DM: "+dm)
	}
	for _, in := range instructions {
		txt := strings.TrimSpace(in.LongText)
		if txt == "" {
			txt = strings.TrimSpace(in.ShortText)
		}
		if txt != "" {
			parts = append(parts, txt)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	out := strings.Join(parts, "\n\n")
	return &out
}

// MapSapToProjectImport builds the SAP-owned field set of a local record.
// The result is not sanitized; see SanitizeImport.
func MapSapToProjectImport(sub domain.UpstreamSubProject, parent domain.UpstreamProject, details domain.SubProjectDetail, instructions []domain.Instruction, now time.Time) domain.ProjectImport {
	dates := ExtractDateRange(details.Steps)
	src, tgt := ExtractLanguages(details.Steps)
	return domain.ProjectImport{
		Name:            sub.Name,
		LanguageIn:      src,
		LanguageOut:     tgt,
		InitialDeadline: dates.StartDate,
		FinalDeadline:   dates.EndDate,
		System:          ExtractSystem(details.Steps),
		Words:           SumVolumesByUnit(details.Steps, domain.UnitWords),
		Lines:           SumVolumesByUnit(details.Steps, domain.UnitLines),
		SapSubProjectID: sub.ExternalSubProjectID,
		SapParentID:     parent.ExternalProjectID,
		SapParentName:   optional(parent.Name),
		SapAccount:      optional(parent.Account),
		SapPMName:       optional(sub.PMName),
		SapInstructions: BuildSapInstructions(sub.DMName, instructions),
		LastSyncedAt:    now.UTC(),
		APISource:       domain.APISourceSAP,
	}
}

// MapSapToPreview builds the sanitized shape shown before an import.
func MapSapToPreview(sub domain.UpstreamSubProject, parent domain.UpstreamProject, details domain.SubProjectDetail, instructions []domain.Instruction) domain.SubProjectPreview {
	dates := ExtractDateRange(details.Steps)
	src, tgt := ExtractLanguages(details.Steps)
	p := domain.SubProjectPreview{
		SubProjectID:    sub.ExternalSubProjectID,
		Name:            SanitizeString(sub.Name),
		ParentID:        parent.ExternalProjectID,
		ParentName:      SanitizeString(parent.Name),
		Account:         SanitizeString(parent.Account),
		DMName:          SanitizeText(sub.DMName),
		PMName:          SanitizeText(sub.PMName),
		ProjectType:     SanitizeText(sub.ProjectType),
		LanguageIn:      src,
		LanguageOut:     tgt,
		System:          ExtractSystem(details.Steps),
		InitialDeadline: dates.StartDate,
		FinalDeadline:   dates.EndDate,
		Words:           SumVolumesByUnit(details.Steps, domain.UnitWords),
		Lines:           SumVolumesByUnit(details.Steps, domain.UnitLines),
		Instructions:    SanitizePtr(BuildSapInstructions(sub.DMName, instructions)),
		TerminologyKeys: details.TerminologyKeys,
		Environments:    details.Environments,
		Steps:           make([]domain.StepPreview, 0, len(details.Steps)),
	}
	if p.TerminologyKeys == nil {
		p.TerminologyKeys = []string{}
	}
	if p.Environments == nil {
		p.Environments = []domain.Environment{}
	}
	for _, st := range details.Steps {
		one := []domain.Step{st}
		p.Steps = append(p.Steps, domain.StepPreview{
			ContentID:       st.ContentID,
			ServiceStepName: st.ServiceStepName,
			SourceLanguage:  st.SourceLanguage,
			TargetLanguage:  st.TargetLanguage,
			ToolType:        st.ToolType,
			System:          MapToolTypeToSystem(st.ToolType),
			StartDate:       canonicalDate(st.StartDate),
			EndDate:         canonicalDate(st.EndDate),
			HasInstructions: st.HasInstructions,
			Words:           SumVolumesByUnit(one, domain.UnitWords),
			Lines:           SumVolumesByUnit(one, domain.UnitLines),
		})
	}
	return p
}

func canonicalDate(s string) *string {
	t, ok := ParseTimestamp(s)
	if !ok {
		return nil
	}
	return strPtr(FormatTimestamp(t))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func strPtr(s string) *string { return &s }
