package sapsync

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
	"github.com/schrico/PM-SAP-sub001/internal/ports"
)

// Run bookkeeping is best effort: a store failure here is logged and never
// changes the outcome of the sync itself.

func (s *Service) startRun(ctx context.Context, trigger, actorID string, total int) *domain.SyncRun {
	run := &domain.SyncRun{
		ID:        s.ids.next(s.now()),
		Trigger:   trigger,
		ActorID:   actorID,
		Status:    domain.RunRunning,
		Total:     total,
		StartedAt: s.now().UTC(),
	}
	if s.d.Runs == nil {
		return run
	}
	if err := s.d.Runs.Create(ctx, run); err != nil {
		s.d.Log.Error().Err(err).Str("run_id", run.ID).Msg("record sync run")
	}
	return run
}

func (s *Service) abortRun(ctx context.Context, run *domain.SyncRun, cause error) {
	s.d.Log.Error().Err(cause).Str("run_id", run.ID).Str("trigger", run.Trigger).Msg("sap sync aborted")
	run.Status = domain.RunFailed
	run.Error = cause.Error()
	s.saveRun(ctx, run)
	s.d.Metrics.RunFinished(run.Trigger, s.now().Sub(run.StartedAt))
}

// finishRun records every item result and the run totals, and returns the run id.
func (s *Service) finishRun(ctx context.Context, run *domain.SyncRun, results []domain.ItemResult, start time.Time) string {
	for _, r := range results {
		s.d.Metrics.ItemProcessed(run.Trigger, r.Outcome)
		switch r.Outcome {
		case domain.OutcomeImported:
			run.Imported++
		case domain.OutcomeUpdated:
			run.Updated++
		case domain.OutcomeSkipped:
			run.Skipped++
		default:
			run.Failed++
		}
		if s.d.Runs == nil {
			continue
		}
		item := &domain.SyncRunItem{RunID: run.ID, SubProjectID: r.SubProjectID, Outcome: r.Outcome, Error: r.Message()}
		if err := s.d.Runs.AddItem(ctx, item); err != nil {
			s.d.Log.Error().Err(err).Str("run_id", run.ID).Msg("record sync run item")
		}
	}
	run.Status = domain.RunDone
	s.saveRun(ctx, run)
	s.d.Metrics.RunFinished(run.Trigger, s.now().Sub(start))
	return run.ID
}

func (s *Service) saveRun(ctx context.Context, run *domain.SyncRun) {
	if s.d.Runs == nil {
		return
	}
	now := s.now().UTC()
	run.FinishedAt = &now
	if err := s.d.Runs.Finish(ctx, run); err != nil {
		s.d.Log.Error().Err(err).Str("run_id", run.ID).Msg("finish sync run")
	}
}

// Runs lists recent sync runs.
func (s *Service) Runs(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	if s.d.Runs == nil {
		return []*domain.SyncRun{}, nil
	}
	return s.d.Runs.List(ctx, limit)
}

// RunWithItems returns one run and its per-item results.
func (s *Service) RunWithItems(ctx context.Context, id string) (*domain.SyncRun, []*domain.SyncRunItem, error) {
	if s.d.Runs == nil {
		return nil, nil, errors.Wrapf(ports.ErrNotFound, "sync run %s", id)
	}
	run, err := s.d.Runs.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.d.Runs.ListItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, items, nil
}
