package sqlite

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
	"github.com/schrico/PM-SAP-sub001/internal/ports"
)

type SyncRunRepo struct{ *Repo }

func NewSyncRunRepo(db *sql.DB) *SyncRunRepo { return &SyncRunRepo{NewRepo(db)} }

var _ ports.SyncRunRepository = (*SyncRunRepo)(nil)

var runColumns = []string{"id", "trigger_kind", "actor_id", "status", "total", "imported", "updated", "skipped", "failed", "error", "started_at", "finished_at"}

func (r *SyncRunRepo) Create(ctx context.Context, run *domain.SyncRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	q := r.SQ.Insert("sync_runs").Columns("id", "trigger_kind", "actor_id", "status", "total", "started_at").
		Values(run.ID, run.Trigger, run.ActorID, run.Status, run.Total, formatTS(run.StartedAt))
	sqlStr, args, _ := q.ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return errors.Wrapf(err, "create sync run %s", run.ID)
}

func (r *SyncRunRepo) AddItem(ctx context.Context, item *domain.SyncRunItem) error {
	now := time.Now().UTC()
	q := r.SQ.Insert("sync_run_items").Columns("run_id", "subproject_id", "outcome", "error", "created_at").
		Values(item.RunID, item.SubProjectID, string(item.Outcome), item.Error, formatTS(now))
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return errors.Wrapf(err, "add sync run item %s", item.SubProjectID)
	}
	item.ID, _ = res.LastInsertId()
	item.CreatedAt = now
	return nil
}

// Finish stores the final status and counters.
func (r *SyncRunRepo) Finish(ctx context.Context, run *domain.SyncRun) error {
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}
	q := r.SQ.Update("sync_runs").
		Set("status", run.Status).
		Set("total", run.Total).
		Set("imported", run.Imported).
		Set("updated", run.Updated).
		Set("skipped", run.Skipped).
		Set("failed", run.Failed).
		Set("error", run.Error).
		Set("finished_at", formatTS(*run.FinishedAt)).
		Where(sq.Eq{"id": run.ID})
	sqlStr, args, _ := q.ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return errors.Wrapf(err, "finish sync run %s", run.ID)
}

func scanRun(s scanner) (*domain.SyncRun, error) {
	var run domain.SyncRun
	var started string
	var finished sql.NullString
	if err := s.Scan(&run.ID, &run.Trigger, &run.ActorID, &run.Status, &run.Total, &run.Imported, &run.Updated,
		&run.Skipped, &run.Failed, &run.Error, &started, &finished); err != nil {
		return nil, err
	}
	run.StartedAt = parseTS(started)
	if finished.Valid {
		v := parseTS(finished.String)
		run.FinishedAt = &v
	}
	return &run, nil
}

func (r *SyncRunRepo) Get(ctx context.Context, id string) (*domain.SyncRun, error) {
	q := r.SQ.Select(runColumns...).From("sync_runs").Where(sq.Eq{"id": id}).Limit(1)
	sqlStr, args, _ := q.ToSql()
	run, err := scanRun(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ports.ErrNotFound, "sync run %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get sync run %s", id)
	}
	return run, nil
}

// List returns the most recent runs first. ULIDs sort by creation time.
func (r *SyncRunRepo) List(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	q := r.SQ.Select(runColumns...).From("sync_runs").OrderBy("id DESC").Limit(uint64(limit))
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list sync runs")
	}
	defer rows.Close()
	out := make([]*domain.SyncRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan sync run")
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *SyncRunRepo) ListItems(ctx context.Context, runID string) ([]*domain.SyncRunItem, error) {
	q := r.SQ.Select("id", "run_id", "subproject_id", "outcome", "error", "created_at").From("sync_run_items").
		Where(sq.Eq{"run_id": runID}).OrderBy("id")
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "list items of sync run %s", runID)
	}
	defer rows.Close()
	out := make([]*domain.SyncRunItem, 0)
	for rows.Next() {
		var it domain.SyncRunItem
		var outcome, created string
		if err := rows.Scan(&it.ID, &it.RunID, &it.SubProjectID, &outcome, &it.Error, &created); err != nil {
			return nil, errors.Wrap(err, "scan sync run item")
		}
		it.Outcome = domain.Outcome(outcome)
		it.CreatedAt = parseTS(created)
		out = append(out, &it)
	}
	return out, rows.Err()
}
