// Package catalog serves the upstream SAP listing annotated with local state.
package catalog

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
	"github.com/schrico/PM-SAP-sub001/internal/ports"
	"github.com/schrico/PM-SAP-sub001/internal/usecase/mapper"
)

// DefaultStaleAfter is the age after which an imported record is due for refresh.
const DefaultStaleAfter = 24 * time.Hour

type Deps struct {
	SAP      ports.SAPClient
	Projects ports.ProjectRepository
	Log      *zerolog.Logger
}

type Service struct {
	d          Deps
	staleAfter time.Duration
	now        func() time.Time
}

func NewService(d Deps, staleAfter time.Duration) *Service {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Service{d: d, staleAfter: staleAfter, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListProjects fetches the full upstream listing and marks which subprojects
// already exist locally.
func (s *Service) ListProjects(ctx context.Context) (domain.ProjectListing, error) {
	projects, err := s.d.SAP.ListProjects(ctx)
	if err != nil {
		return domain.ProjectListing{}, errors.Wrap(err, "list sap projects")
	}
	listed, err := s.annotate(ctx, projects)
	if err != nil {
		return domain.ProjectListing{}, err
	}
	return domain.ProjectListing{Projects: listed, FetchedAt: s.now().UTC()}, nil
}

// GetProject looks a single project up in a fresh listing.
func (s *Service) GetProject(ctx context.Context, projectID int64) (domain.ListedProject, error) {
	projects, err := s.d.SAP.ListProjects(ctx)
	if err != nil {
		return domain.ListedProject{}, errors.Wrap(err, "list sap projects")
	}
	for _, p := range projects {
		if p.ExternalProjectID != projectID {
			continue
		}
		listed, err := s.annotate(ctx, []domain.UpstreamProject{p})
		if err != nil {
			return domain.ListedProject{}, err
		}
		return listed[0], nil
	}
	return domain.ListedProject{}, errors.Wrapf(ports.ErrNotFound, "sap project %d", projectID)
}

// PreviewSubProject maps a subproject the way an import would, without writing it.
func (s *Service) PreviewSubProject(ctx context.Context, projectID int64, subProjectID string) (domain.SubProjectPreview, error) {
	projects, err := s.d.SAP.ListProjects(ctx)
	if err != nil {
		return domain.SubProjectPreview{}, errors.Wrap(err, "list sap projects")
	}
	var parent *domain.UpstreamProject
	for i := range projects {
		if projects[i].ExternalProjectID == projectID {
			parent = &projects[i]
			break
		}
	}
	if parent == nil {
		return domain.SubProjectPreview{}, errors.Wrapf(ports.ErrNotFound, "sap project %d", projectID)
	}
	sub, ok := parent.FindSubProject(subProjectID)
	if !ok {
		return domain.SubProjectPreview{}, errors.Wrapf(ports.ErrNotFound, "sap subproject %s", subProjectID)
	}
	var instructions []domain.Instruction
	var insErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		instructions, insErr = s.d.SAP.GetInstructions(ctx, projectID, subProjectID)
	}()
	details, err := s.d.SAP.GetSubProjectDetails(ctx, projectID, subProjectID)
	<-done
	if err != nil {
		return domain.SubProjectPreview{}, errors.Wrap(err, "fetch details")
	}
	if insErr != nil {
		s.d.Log.Warn().Err(insErr).Str("subproject_id", subProjectID).Msg("instructions unavailable for preview")
		instructions = nil
	}
	return mapper.MapSapToPreview(sub, *parent, details, instructions), nil
}

func (s *Service) annotate(ctx context.Context, projects []domain.UpstreamProject) ([]domain.ListedProject, error) {
	var ids []string
	for _, p := range projects {
		for _, sp := range p.SubProjects {
			ids = append(ids, sp.ExternalSubProjectID)
		}
	}
	locals, err := s.d.Projects.ListBySapSubProjectIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load local projects")
	}
	now := s.now()
	out := make([]domain.ListedProject, 0, len(projects))
	for _, p := range projects {
		lp := domain.ListedProject{
			ExternalProjectID: p.ExternalProjectID,
			Name:              mapper.SanitizeText(p.Name),
			Account:           mapper.SanitizeText(p.Account),
			SubProjects:       make([]domain.ListedSubProject, 0, len(p.SubProjects)),
		}
		for _, sp := range p.SubProjects {
			ls := domain.ListedSubProject{UpstreamSubProject: mapper.SanitizeSubProject(sp)}
			if local, ok := locals[sp.ExternalSubProjectID]; ok {
				id := local.ID
				ls.Imported = true
				ls.LocalProjectID = &id
				ls.LastSyncedAt = local.LastSyncedAt
				ls.NeedsUpdate = NeedsUpdate(local, sp, now, s.staleAfter)
			}
			lp.SubProjects = append(lp.SubProjects, ls)
		}
		out = append(out, lp)
	}
	return out, nil
}

// NeedsUpdate reports whether an imported record should be re-synced: it was
// never stamped, its name drifted from upstream, or it is older than staleAfter.
func NeedsUpdate(local *domain.Project, sub domain.UpstreamSubProject, now time.Time, staleAfter time.Duration) bool {
	if local == nil {
		return false
	}
	if local.LastSyncedAt == nil {
		return true
	}
	if mapper.SanitizeText(sub.Name) != local.Name {
		return true
	}
	return now.Sub(*local.LastSyncedAt) >= staleAfter
}
