package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schrico/PM-SAP-sub001/internal/adapters/db/sqlite"
	"github.com/schrico/PM-SAP-sub001/internal/domain"
	"github.com/schrico/PM-SAP-sub001/internal/logging"
	"github.com/schrico/PM-SAP-sub001/internal/ports"
)

type fakeSAP struct {
	projects []domain.UpstreamProject
	detail   domain.SubProjectDetail
	insErr   error
	listErr  error
}

func (f *fakeSAP) ListProjects(context.Context) ([]domain.UpstreamProject, error) {
	return f.projects, f.listErr
}

func (f *fakeSAP) GetSubProjectDetails(context.Context, int64, string) (domain.SubProjectDetail, error) {
	return f.detail, nil
}

func (f *fakeSAP) GetInstructions(context.Context, int64, string) ([]domain.Instruction, error) {
	if f.insErr != nil {
		return nil, f.insErr
	}
	return []domain.Instruction{{ShortText: "short"}}, nil
}

var now = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T, sap *fakeSAP) (*Service, *sqlite.ProjectRepo) {
	t.Helper()
	db, err := sqlite.Init(filepath.Join(t.TempDir(), "cat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := sqlite.NewProjectRepo(db)
	svc := NewService(Deps{SAP: sap, Projects: repo, Log: logging.Nop()}, 24*time.Hour).WithClock(func() time.Time { return now })
	return svc, repo
}

func importAt(t *testing.T, repo *sqlite.ProjectRepo, id, name string, at time.Time) int64 {
	t.Helper()
	pid, ok, err := repo.InsertFromSAP(context.Background(), domain.ProjectImport{
		Name: name, System: "XTM", SapSubProjectID: id, SapParentID: 1, LastSyncedAt: at, APISource: domain.APISourceSAP,
	}, domain.StatusPending)
	require.NoError(t, err)
	require.True(t, ok)
	return pid
}

func TestListProjectsAnnotates(t *testing.T) {
	sap := &fakeSAP{projects: []domain.UpstreamProject{{
		ExternalProjectID: 1, Name: "P", SubProjects: []domain.UpstreamSubProject{
			{ExternalSubProjectID: "fresh", Name: "Fresh"},
			{ExternalSubProjectID: "old", Name: "Old"},
			{ExternalSubProjectID: "renamed", Name: "New <b>name</b>"},
			{ExternalSubProjectID: "new", Name: "Not imported"},
		},
	}}}
	svc, repo := setup(t, sap)
	freshID := importAt(t, repo, "fresh", "Fresh", now.Add(-time.Hour))
	importAt(t, repo, "old", "Old", now.Add(-25*time.Hour))
	importAt(t, repo, "renamed", "Old name", now.Add(-time.Minute))

	listing, err := svc.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now, listing.FetchedAt)
	require.Len(t, listing.Projects, 1)
	subs := listing.Projects[0].SubProjects
	require.Len(t, subs, 4)

	assert.True(t, subs[0].Imported)
	assert.Equal(t, freshID, *subs[0].LocalProjectID)
	assert.False(t, subs[0].NeedsUpdate)
	assert.NotNil(t, subs[0].LastSyncedAt)

	assert.True(t, subs[1].NeedsUpdate, "older than a day")
	assert.True(t, subs[2].NeedsUpdate, "name drifted")

	assert.Equal(t, "New name", subs[2].Name)

	assert.False(t, subs[3].Imported)
	assert.False(t, subs[3].NeedsUpdate)
	assert.Nil(t, subs[3].LocalProjectID)
}

func TestGetProject(t *testing.T) {
	sap := &fakeSAP{projects: []domain.UpstreamProject{{ExternalProjectID: 1, Name: "P"}, {ExternalProjectID: 2, Name: "Q"}}}
	svc, _ := setup(t, sap)

	p, err := svc.GetProject(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Q", p.Name)
	assert.NotNil(t, p.SubProjects)

	_, err = svc.GetProject(context.Background(), 3)
	assert.True(t, errors.Is(err, ports.ErrNotFound))

	sap.listErr = errors.New("down")
	_, err = svc.GetProject(context.Background(), 1)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ports.ErrNotFound))
}

func TestPreviewSubProject(t *testing.T) {
	sap := &fakeSAP{
		projects: []domain.UpstreamProject{{ExternalProjectID: 1, Name: "P", SubProjects: []domain.UpstreamSubProject{{ExternalSubProjectID: "S", Name: "Sub", DMName: "Dee"}}}},
		detail: domain.SubProjectDetail{Steps: []domain.Step{
			{SourceLanguage: "EN", TargetLanguage: "DE", ToolType: "SSE", Volumes: []domain.Volume{{Quantity: 40, Unit: "Lines"}}},
		}},
	}
	svc, _ := setup(t, sap)

	p, err := svc.PreviewSubProject(context.Background(), 1, "S")
	require.NoError(t, err)
	assert.Equal(t, "SSE", p.System)
	assert.Equal(t, 40.0, p.Lines)
	require.NotNil(t, p.Instructions)
	assert.Equal(t, "DM: Dee\n\nshort", *p.Instructions)

	sap.insErr = errors.New("nope")
	p, err = svc.PreviewSubProject(context.Background(), 1, "S")
	require.NoError(t, err)
	assert.Equal(t, "DM: Dee", *p.Instructions)

	_, err = svc.PreviewSubProject(context.Background(), 1, "missing")
	assert.True(t, errors.Is(err, ports.ErrNotFound))
	_, err = svc.PreviewSubProject(context.Background(), 9, "S")
	assert.True(t, errors.Is(err, ports.ErrNotFound))
}

func TestNeedsUpdate(t *testing.T) {
	sub := domain.UpstreamSubProject{Name: "Same"}
	recent := now.Add(-time.Hour)
	assert.False(t, NeedsUpdate(nil, sub, now, time.Hour))
	assert.True(t, NeedsUpdate(&domain.Project{Name: "Same"}, sub, now, time.Hour))
	assert.True(t, NeedsUpdate(&domain.Project{Name: "Same", LastSyncedAt: &recent}, sub, now, time.Hour))
	assert.False(t, NeedsUpdate(&domain.Project{Name: "Same", LastSyncedAt: &recent}, sub, now, 2*time.Hour))
	assert.True(t, NeedsUpdate(&domain.Project{Name: "Other", LastSyncedAt: &recent}, sub, now, 2*time.Hour))
}

func TestListProjectsSanitizesDisplayFields(t *testing.T) {
	sap := &fakeSAP{projects: []domain.UpstreamProject{{
		ExternalProjectID: 1, Name: "<b>Parent</b>", Account: "<i>ACME</i>", SubProjects: []domain.UpstreamSubProject{
			{ExternalSubProjectID: "s", Name: "<script>x()</script>Sub", DMName: "<b>Dee</b>", PMName: "<u>Pat</u>"},
		},
	}}}
	svc, _ := setup(t, sap)

	listing, err := svc.ListProjects(context.Background())
	require.NoError(t, err)
	p := listing.Projects[0]
	assert.Equal(t, "Parent", p.Name)
	assert.Equal(t, "ACME", p.Account)
	sub := p.SubProjects[0]
	assert.Equal(t, "s", sub.ExternalSubProjectID)
	assert.Equal(t, "Sub", sub.Name)
	assert.Equal(t, "Dee", sub.DMName)
	assert.Equal(t, "Pat", sub.PMName)
}

// rendezvousSAP blocks each call until the other one has started, so a
// sequential caller times out.
type rendezvousSAP struct {
	fakeSAP
	detailsStarted chan struct{}
	insStarted     chan struct{}
}

func (r *rendezvousSAP) GetSubProjectDetails(ctx context.Context, pid int64, sid string) (domain.SubProjectDetail, error) {
	close(r.detailsStarted)
	select {
	case <-r.insStarted:
	case <-time.After(2 * time.Second):
		return domain.SubProjectDetail{}, errors.New("instructions were not requested concurrently")
	}
	return r.fakeSAP.GetSubProjectDetails(ctx, pid, sid)
}

func (r *rendezvousSAP) GetInstructions(ctx context.Context, pid int64, sid string) ([]domain.Instruction, error) {
	close(r.insStarted)
	select {
	case <-r.detailsStarted:
	case <-time.After(2 * time.Second):
		return nil, errors.New("details were not requested concurrently")
	}
	return r.fakeSAP.GetInstructions(ctx, pid, sid)
}

func TestPreviewFetchesConcurrently(t *testing.T) {
	sap := &rendezvousSAP{detailsStarted: make(chan struct{}), insStarted: make(chan struct{})}
	sap.projects = []domain.UpstreamProject{{ExternalProjectID: 1, SubProjects: []domain.UpstreamSubProject{{ExternalSubProjectID: "S", DMName: "Dee"}}}}
	db, err := sqlite.Init(filepath.Join(t.TempDir(), "cat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	svc := NewService(Deps{SAP: sap, Projects: sqlite.NewProjectRepo(db), Log: logging.Nop()}, time.Hour)

	p, err := svc.PreviewSubProject(context.Background(), 1, "S")
	require.NoError(t, err)
	require.NotNil(t, p.Instructions)
	assert.Equal(t, "DM: Dee\n\nshort", *p.Instructions)
}
