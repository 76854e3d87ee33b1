package sapsync

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
	"github.com/schrico/PM-SAP-sub001/internal/ports"
)

// Resync refreshes every local SAP-sourced record from a single upstream
// listing. It never inserts. Records whose parent, subproject or details
// disappeared upstream are skipped and left untouched.
func (s *Service) Resync(ctx context.Context) (domain.ResyncResult, error) {
	start := s.now()
	locals, err := s.d.Projects.ListExternallySourced(ctx)
	if err != nil {
		return domain.ResyncResult{}, errors.Wrap(err, "list synced projects")
	}
	run := s.startRun(ctx, domain.TriggerCron, "", len(locals))

	projects, err := s.d.SAP.ListProjects(ctx)
	if err != nil {
		s.abortRun(ctx, run, err)
		return domain.ResyncResult{}, errors.Wrap(err, "list sap projects")
	}
	byID := indexProjects(projects)

	results := make([]domain.ItemResult, len(locals))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, p := range locals {
		g.Go(func() error {
			results[i] = s.resyncOne(ctx, byID, p)
			return nil
		})
	}
	_ = g.Wait()

	res := domain.ResyncResult{Errors: []string{}}
	for _, r := range results {
		switch r.Outcome {
		case domain.OutcomeUpdated:
			res.Synced++
		case domain.OutcomeSkipped:
			res.Skipped++
		default:
			res.Failed++
			res.Errors = append(res.Errors, r.Message())
		}
	}
	res.RunID = s.finishRun(ctx, run, results, start)
	s.d.Log.Info().Str("run_id", res.RunID).Int("synced", res.Synced).Int("skipped", res.Skipped).
		Int("failed", res.Failed).Msg("sap resync finished")
	return res, nil
}

func (s *Service) resyncOne(ctx context.Context, byID map[int64]domain.UpstreamProject, p *domain.Project) domain.ItemResult {
	res := domain.ItemResult{SubProjectID: *p.SapSubProjectID}
	if p.SapParentID == nil {
		return s.skipped(res, "record has no parent id")
	}
	parent, ok := byID[*p.SapParentID]
	if !ok {
		return s.skipped(res, "parent project no longer listed upstream")
	}
	sub, ok := parent.FindSubProject(res.SubProjectID)
	if !ok {
		return s.skipped(res, "subproject no longer listed upstream")
	}
	imp, err := s.pull(ctx, parent, sub)
	if errors.Is(err, ports.ErrNotFound) {
		return s.skipped(res, "subproject details gone upstream")
	}
	if err != nil {
		return s.failed(res, err)
	}
	if err := s.d.Projects.UpdateSAPFields(ctx, p.ID, imp); err != nil {
		return s.failed(res, err)
	}
	res.Outcome = domain.OutcomeUpdated
	return res
}

func (s *Service) skipped(res domain.ItemResult, reason string) domain.ItemResult {
	res.Outcome = domain.OutcomeSkipped
	s.d.Log.Info().Str("subproject_id", res.SubProjectID).Str("reason", reason).Msg("skipping sap record")
	return res
}
