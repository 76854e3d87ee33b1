package mapper

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
)

// Pre-compiled expressions for markup removal.
var (
	// An unterminated script or style element swallows the rest of the input.
	scriptRe = regexp.MustCompile(`(?is)<(?:script|style)\b[^>]*>.*?(?:</(?:script|style)\s*>|$)`)
	tagRe    = regexp.MustCompile(`<[^<>]*>`)
	angleRe  = regexp.MustCompile(`[<>]`)
)

// SanitizeString strips markup from untrusted upstream text. Script and style
// elements are removed with their content, remaining tags are removed until
// none are left, and stray angle brackets are dropped. The result is NFC
// normalized and trimmed; nil is returned when nothing remains.
//
// SanitizeString(*SanitizeString(s)) == *SanitizeString(s) for every s.
func SanitizeString(s string) *string {
	for {
		next := tagRe.ReplaceAllString(scriptRe.ReplaceAllString(s, ""), "")
		if next == s {
			break
		}
		s = next
	}
	s = angleRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(norm.NFC.String(s))
	if s == "" {
		return nil
	}
	return &s
}

// SanitizePtr is SanitizeString for optional values.
func SanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	return SanitizeString(*s)
}

// SanitizeText is SanitizeString for fields where empty means absent.
func SanitizeText(s string) string {
	if out := SanitizeString(s); out != nil {
		return *out
	}
	return ""
}

// SanitizeSubProject cleans the display fields of a listed subproject. The id
// is left as is since it keys local records.
func SanitizeSubProject(sub domain.UpstreamSubProject) domain.UpstreamSubProject {
	sub.Name = SanitizeText(sub.Name)
	sub.DMName = SanitizeText(sub.DMName)
	sub.PMName = SanitizeText(sub.PMName)
	sub.ProjectType = SanitizeText(sub.ProjectType)
	return sub
}

// SanitizeImport sanitizes every free-text field of an import record.
func SanitizeImport(in domain.ProjectImport) domain.ProjectImport {
	out := in
	out.Name = SanitizeText(in.Name)
	out.SapParentName = SanitizePtr(in.SapParentName)
	out.SapAccount = SanitizePtr(in.SapAccount)
	out.SapPMName = SanitizePtr(in.SapPMName)
	out.SapInstructions = SanitizePtr(in.SapInstructions)
	return out
}
