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

type ProjectRepo struct{ *Repo }

func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{NewRepo(db)} }

var _ ports.ProjectRepository = (*ProjectRepo)(nil)

var projectColumns = []string{
	"id", "status", "custom_notes", "paid", "invoiced", "translator_id", "reviewer_id",
	"name", "language_in", "language_out", "initial_deadline", "final_deadline", "system", "words", "lines",
	"sap_subproject_id", "sap_parent_id", "sap_parent_name", "sap_account", "sap_pm_name", "sap_instructions",
	"last_synced_at", "api_source", "created_at", "updated_at",
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*domain.Project, error) {
	var p domain.Project
	var translator, reviewer, parentID sql.NullInt64
	var synced sql.NullString
	var created, updated string
	if err := s.Scan(&p.ID, &p.Status, &p.CustomNotes, &p.Paid, &p.Invoiced, &translator, &reviewer,
		&p.Name, &p.LanguageIn, &p.LanguageOut, &p.InitialDeadline, &p.FinalDeadline, &p.System, &p.Words, &p.Lines,
		&p.SapSubProjectID, &parentID, &p.SapParentName, &p.SapAccount, &p.SapPMName, &p.SapInstructions,
		&synced, &p.APISource, &created, &updated); err != nil {
		return nil, err
	}
	if translator.Valid {
		v := translator.Int64
		p.TranslatorID = &v
	}
	if reviewer.Valid {
		v := reviewer.Int64
		p.ReviewerID = &v
	}
	if parentID.Valid {
		v := parentID.Int64
		p.SapParentID = &v
	}
	if synced.Valid {
		v := parseTS(synced.String)
		p.LastSyncedAt = &v
	}
	p.CreatedAt = parseTS(created)
	p.UpdatedAt = parseTS(updated)
	return &p, nil
}

// Create inserts a record owned by users. Sync writes go through InsertFromSAP.
func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	now := time.Now().UTC()
	if p.Status == "" {
		p.Status = domain.StatusPending
	}
	if p.APISource == "" {
		p.APISource = domain.APISourceManual
	}
	if p.System == "" {
		p.System = "TBD"
	}
	var synced *string
	if p.LastSyncedAt != nil {
		s := formatTS(*p.LastSyncedAt)
		synced = &s
	}
	q := r.SQ.Insert("projects").
		Columns("status", "custom_notes", "paid", "invoiced", "translator_id", "reviewer_id",
			"name", "language_in", "language_out", "initial_deadline", "final_deadline", "system", "words", "lines",
			"sap_subproject_id", "sap_parent_id", "sap_parent_name", "sap_account", "sap_pm_name", "sap_instructions",
			"last_synced_at", "api_source", "created_at", "updated_at").
		Values(p.Status, p.CustomNotes, p.Paid, p.Invoiced, p.TranslatorID, p.ReviewerID,
			p.Name, p.LanguageIn, p.LanguageOut, p.InitialDeadline, p.FinalDeadline, p.System, p.Words, p.Lines,
			p.SapSubProjectID, p.SapParentID, p.SapParentName, p.SapAccount, p.SapPMName, p.SapInstructions,
			synced, p.APISource, formatTS(now), formatTS(now))
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return errors.Wrap(err, "insert project")
	}
	id, _ := res.LastInsertId()
	p.ID = id
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (r *ProjectRepo) Get(ctx context.Context, id int64) (*domain.Project, error) {
	q := r.SQ.Select(projectColumns...).From("projects").Where(sq.Eq{"id": id})
	sqlStr, args, _ := q.ToSql()
	p, err := scanProject(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ports.ErrNotFound, "project %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get project %d", id)
	}
	return p, nil
}

func (r *ProjectRepo) FindBySapSubProjectID(ctx context.Context, subProjectID string) (*domain.Project, error) {
	q := r.SQ.Select(projectColumns...).From("projects").Where(sq.Eq{"sap_subproject_id": subProjectID}).Limit(1)
	sqlStr, args, _ := q.ToSql()
	p, err := scanProject(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find project by subproject %s", subProjectID)
	}
	return p, nil
}

// InsertFromSAP relies on the unique sap_subproject_id column so concurrent
// syncs of the same subproject insert at most once.
func (r *ProjectRepo) InsertFromSAP(ctx context.Context, in domain.ProjectImport, status string) (int64, bool, error) {
	now := formatTS(time.Now())
	q := r.SQ.Insert("projects").
		Columns("status", "name", "language_in", "language_out", "initial_deadline", "final_deadline", "system", "words", "lines",
			"sap_subproject_id", "sap_parent_id", "sap_parent_name", "sap_account", "sap_pm_name", "sap_instructions",
			"last_synced_at", "api_source", "created_at", "updated_at").
		Values(status, in.Name, in.LanguageIn, in.LanguageOut, in.InitialDeadline, in.FinalDeadline, in.System, in.Words, in.Lines,
			in.SapSubProjectID, in.SapParentID, in.SapParentName, in.SapAccount, in.SapPMName, in.SapInstructions,
			formatTS(in.LastSyncedAt), domain.APISourceSAP, now, now).
		Suffix("ON CONFLICT(sap_subproject_id) DO NOTHING")
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, false, errors.Wrapf(err, "insert subproject %s", in.SapSubProjectID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, false, nil
	}
	id, _ := res.LastInsertId()
	return id, true, nil
}

// UpdateSAPFields never touches status, notes, payment flags or assignments,
// and only matches records that came from SAP.
func (r *ProjectRepo) UpdateSAPFields(ctx context.Context, id int64, in domain.ProjectImport) error {
	q := r.SQ.Update("projects").
		Set("name", in.Name).
		Set("language_in", in.LanguageIn).
		Set("language_out", in.LanguageOut).
		Set("initial_deadline", in.InitialDeadline).
		Set("final_deadline", in.FinalDeadline).
		Set("system", in.System).
		Set("words", in.Words).
		Set("lines", in.Lines).
		Set("sap_parent_id", in.SapParentID).
		Set("sap_parent_name", in.SapParentName).
		Set("sap_account", in.SapAccount).
		Set("sap_pm_name", in.SapPMName).
		Set("sap_instructions", in.SapInstructions).
		Set("last_synced_at", formatTS(in.LastSyncedAt)).
		Set("updated_at", formatTS(time.Now())).
		Where(sq.Eq{"id": id, "api_source": domain.APISourceSAP})
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return errors.Wrapf(err, "update project %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ports.ErrNotFound, "sap project %d", id)
	}
	return nil
}

func (r *ProjectRepo) ListExternallySourced(ctx context.Context) ([]*domain.Project, error) {
	q := r.SQ.Select(projectColumns...).From("projects").
		Where(sq.And{sq.Eq{"api_source": domain.APISourceSAP}, sq.NotEq{"sap_subproject_id": nil}}).
		OrderBy("id")
	return r.list(ctx, q)
}

func (r *ProjectRepo) ListBySapSubProjectIDs(ctx context.Context, ids []string) (map[string]*domain.Project, error) {
	out := make(map[string]*domain.Project, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := r.SQ.Select(projectColumns...).From("projects").Where(sq.Eq{"sap_subproject_id": ids})
	list, err := r.list(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		out[*p.SapSubProjectID] = p
	}
	return out, nil
}

func (r *ProjectRepo) list(ctx context.Context, q sq.SelectBuilder) ([]*domain.Project, error) {
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list projects")
	}
	defer rows.Close()
	out := make([]*domain.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan project")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
