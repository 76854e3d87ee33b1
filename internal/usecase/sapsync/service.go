// Package sapsync pulls SAP subprojects into the local project store.
package sapsync

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
	"github.com/schrico/PM-SAP-sub001/internal/metrics"
	"github.com/schrico/PM-SAP-sub001/internal/ports"
	"github.com/schrico/PM-SAP-sub001/internal/usecase/mapper"
)

// DefaultConcurrency bounds the number of subprojects fetched at once.
const DefaultConcurrency = 4

type Deps struct {
	SAP      ports.SAPClient
	Projects ports.ProjectRepository
	Runs     ports.SyncRunRepository // optional
	Metrics  *metrics.Metrics        // optional
	Log      *zerolog.Logger
}

type Service struct {
	d           Deps
	concurrency int
	now         func() time.Time
	ids         *idGen
}

func NewService(d Deps, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{d: d, concurrency: concurrency, now: time.Now, ids: newIDGen()}
}

// WithClock replaces the time source used for last_synced_at and run records.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SyncBatch imports or refreshes the given subprojects. Item failures are
// reported in the result; the error is set only when the upstream listing
// cannot be read.
func (s *Service) SyncBatch(ctx context.Context, actorID string, items []domain.SyncItem) (domain.BatchResult, error) {
	start := s.now()
	run := s.startRun(ctx, domain.TriggerManual, actorID, len(items))

	projects, err := s.d.SAP.ListProjects(ctx)
	if err != nil {
		s.abortRun(ctx, run, err)
		return domain.BatchResult{}, errors.Wrap(err, "list sap projects")
	}
	byID := indexProjects(projects)

	results := make([]domain.ItemResult, len(items))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, it := range items {
		g.Go(func() error {
			results[i] = s.syncItem(ctx, byID, it)
			return nil
		})
	}
	_ = g.Wait()

	res := domain.BatchResult{Errors: []string{}}
	for _, r := range results {
		switch r.Outcome {
		case domain.OutcomeImported:
			res.Imported++
		case domain.OutcomeUpdated:
			res.Updated++
		default:
			res.Failed++
			res.Errors = append(res.Errors, r.Message())
		}
	}
	res.RunID = s.finishRun(ctx, run, results, start)
	s.d.Log.Info().Str("run_id", res.RunID).Str("actor", actorID).Int("imported", res.Imported).
		Int("updated", res.Updated).Int("failed", res.Failed).Msg("sap batch sync finished")
	return res, nil
}

func (s *Service) syncItem(ctx context.Context, byID map[int64]domain.UpstreamProject, it domain.SyncItem) domain.ItemResult {
	res := domain.ItemResult{SubProjectID: it.SubProjectID}
	parent, ok := byID[it.ProjectID]
	if !ok {
		return s.failed(res, errors.Errorf("parent project %d not found", it.ProjectID))
	}
	sub, ok := parent.FindSubProject(it.SubProjectID)
	if !ok {
		return s.failed(res, errors.Errorf("subproject not found in project %d", it.ProjectID))
	}
	imp, err := s.pull(ctx, parent, sub)
	if err != nil {
		return s.failed(res, err)
	}
	outcome, err := s.upsert(ctx, imp)
	if err != nil {
		return s.failed(res, err)
	}
	res.Outcome = outcome
	return res
}

// pull fetches details and instructions concurrently and maps them. A failed
// instructions call degrades to no instructions.
func (s *Service) pull(ctx context.Context, parent domain.UpstreamProject, sub domain.UpstreamSubProject) (domain.ProjectImport, error) {
	var instructions []domain.Instruction
	var insErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		instructions, insErr = s.d.SAP.GetInstructions(ctx, parent.ExternalProjectID, sub.ExternalSubProjectID)
	}()
	details, err := s.d.SAP.GetSubProjectDetails(ctx, parent.ExternalProjectID, sub.ExternalSubProjectID)
	<-done
	if err != nil {
		return domain.ProjectImport{}, errors.Wrap(err, "fetch details")
	}
	if insErr != nil {
		s.d.Log.Warn().Err(insErr).Str("subproject_id", sub.ExternalSubProjectID).Msg("instructions unavailable; continuing without")
		instructions = nil
	}
	imp := mapper.MapSapToProjectImport(sub, parent, details, instructions, s.now())
	return mapper.SanitizeImport(imp), nil
}

func (s *Service) upsert(ctx context.Context, imp domain.ProjectImport) (domain.Outcome, error) {
	existing, err := s.d.Projects.FindBySapSubProjectID(ctx, imp.SapSubProjectID)
	if err != nil {
		return "", err
	}
	if existing == nil {
		_, inserted, err := s.d.Projects.InsertFromSAP(ctx, imp, domain.StatusPending)
		if err != nil {
			return "", err
		}
		if inserted {
			return domain.OutcomeImported, nil
		}
		// lost an insert race; the row exists now
		existing, err = s.d.Projects.FindBySapSubProjectID(ctx, imp.SapSubProjectID)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return "", errors.New("record vanished after insert conflict")
		}
	}
	if existing.APISource != domain.APISourceSAP {
		return "", errors.Errorf("project %d is not SAP-sourced", existing.ID)
	}
	if err := s.d.Projects.UpdateSAPFields(ctx, existing.ID, imp); err != nil {
		return "", err
	}
	return domain.OutcomeUpdated, nil
}

func (s *Service) failed(res domain.ItemResult, err error) domain.ItemResult {
	res.Outcome = domain.OutcomeFailed
	res.Err = err
	s.d.Log.Warn().Err(err).Str("subproject_id", res.SubProjectID).Msg("sap item sync failed")
	return res
}

func indexProjects(projects []domain.UpstreamProject) map[int64]domain.UpstreamProject {
	byID := make(map[int64]domain.UpstreamProject, len(projects))
	for _, p := range projects {
		byID[p.ExternalProjectID] = p
	}
	return byID
}
