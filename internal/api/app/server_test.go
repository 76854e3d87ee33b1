package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schrico/PM-SAP-sub001/internal/adapters/db/sqlite"
	"github.com/schrico/PM-SAP-sub001/internal/domain"
	"github.com/schrico/PM-SAP-sub001/internal/logging"
	"github.com/schrico/PM-SAP-sub001/internal/metrics"
	"github.com/schrico/PM-SAP-sub001/internal/ports"
	"github.com/schrico/PM-SAP-sub001/internal/usecase/ratelimit"
)

type fakeCatalog struct {
	listing domain.ProjectListing
	err     error
	calls   int
}

func (f *fakeCatalog) ListProjects(context.Context) (domain.ProjectListing, error) {
	f.calls++
	return f.listing, f.err
}

func (f *fakeCatalog) GetProject(_ context.Context, id int64) (domain.ListedProject, error) {
	if f.err != nil {
		return domain.ListedProject{}, f.err
	}
	for _, p := range f.listing.Projects {
		if p.ExternalProjectID == id {
			return p, nil
		}
	}
	return domain.ListedProject{}, errors.Wrapf(ports.ErrNotFound, "project %d", id)
}

func (f *fakeCatalog) PreviewSubProject(_ context.Context, id int64, sub string) (domain.SubProjectPreview, error) {
	if f.err != nil {
		return domain.SubProjectPreview{}, f.err
	}
	return domain.SubProjectPreview{SubProjectID: sub, ParentID: id}, nil
}

type fakeSyncer struct {
	items    []domain.SyncItem
	actor    string
	batchErr error
	resynced int
}

func (f *fakeSyncer) SyncBatch(_ context.Context, actor string, items []domain.SyncItem) (domain.BatchResult, error) {
	f.actor, f.items = actor, items
	if f.batchErr != nil {
		return domain.BatchResult{}, f.batchErr
	}
	return domain.BatchResult{RunID: "r1", Imported: len(items), Errors: []string{}}, nil
}

func (f *fakeSyncer) Resync(context.Context) (domain.ResyncResult, error) {
	f.resynced++
	return domain.ResyncResult{RunID: "r2", Synced: 3, Errors: []string{}}, nil
}

func (f *fakeSyncer) Runs(_ context.Context, limit int) ([]*domain.SyncRun, error) {
	return []*domain.SyncRun{{ID: "r1", Status: domain.RunDone}}, nil
}

func (f *fakeSyncer) RunWithItems(_ context.Context, id string) (*domain.SyncRun, []*domain.SyncRunItem, error) {
	if id != "r1" {
		return nil, nil, ports.ErrNotFound
	}
	return &domain.SyncRun{ID: "r1"}, []*domain.SyncRunItem{{RunID: "r1", SubProjectID: "S", Outcome: domain.OutcomeImported}}, nil
}

var now = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

type env struct {
	h       http.Handler
	catalog *fakeCatalog
	sync    *fakeSyncer
	metrics *metrics.Metrics
	token   string
}

func setup(t *testing.T) *env {
	t.Helper()
	db, err := sqlite.Init(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sessions := sqlite.NewSessionRepo(db)
	ctx := context.Background()
	uid, err := sessions.EnsureUser(ctx, "pm@example.com", "pm")
	require.NoError(t, err)
	require.NoError(t, sessions.CreateSession(ctx, "tok", uid, now.Add(time.Hour)))
	require.NoError(t, sessions.CreateSession(ctx, "old", uid, now.Add(-time.Hour)))

	e := &env{
		catalog: &fakeCatalog{listing: domain.ProjectListing{FetchedAt: now, Projects: []domain.ListedProject{{ExternalProjectID: 7, Name: "P"}}}},
		sync:    &fakeSyncer{},
		metrics: metrics.New(),
		token:   "tok",
	}
	limiter := ratelimit.New(sqlite.NewCooldownRepo(db), 5*time.Minute).WithClock(func() time.Time { return now })
	e.h = NewHandler(Deps{
		Catalog:    e.catalog,
		Sync:       e.sync,
		Limiter:    limiter,
		Sessions:   sessions,
		Store:      sqlite.NewRepo(db),
		Metrics:    e.metrics,
		CronSecret: "s3cret",
		Log:        logging.Nop(),
		Now:        func() time.Time { return now },
	})
	return e
}

func (e *env) do(method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		r.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, r)
	return w
}

func (e *env) authed(method, path, body string) *httptest.ResponseRecorder {
	return e.do(method, path, body, "Authorization", "Bearer "+e.token)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestAuthRequired(t *testing.T) {
	e := setup(t)
	for _, path := range []string{"/api/sap/projects", "/api/sap/projects/7", "/api/sap/subprojects/7/S", "/api/sap/sync/runs"} {
		w := e.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "unauthorized", decode(t, w)["error"])
	}
	w := e.do(http.MethodGet, "/api/sap/projects/7", "", "Authorization", "Bearer old")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "expired session")

	r := httptest.NewRequest(http.MethodGet, "/api/sap/projects/7", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok"})
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListProjectsRateLimited(t *testing.T) {
	e := setup(t)
	w := e.authed(http.MethodGet, "/api/sap/projects", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["projects"], 1)

	w = e.authed(http.MethodGet, "/api/sap/projects", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decode(t, w)
	assert.Equal(t, "rate_limited", body["error"])
	assert.Equal(t, 5.0, body["waitMinutes"])
	assert.Equal(t, 1, e.catalog.calls, "denied call must not reach SAP")

	mw := httptest.NewRecorder()
	e.h.ServeHTTP(mw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, mw.Body.String(), "pmsap_sap_listing_rate_limited_total 1")
}

func TestListProjectsUpstreamError(t *testing.T) {
	e := setup(t)
	e.catalog.err = ports.Upstream(errors.New("connection refused"))
	w := e.authed(http.MethodGet, "/api/sap/projects", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "upstream_error", decode(t, w)["error"])
}

func TestGetProject(t *testing.T) {
	e := setup(t)
	w := e.authed(http.MethodGet, "/api/sap/projects/7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "P", decode(t, w)["name"])

	assert.Equal(t, http.StatusNotFound, e.authed(http.MethodGet, "/api/sap/projects/8", "").Code)
	assert.Equal(t, http.StatusBadRequest, e.authed(http.MethodGet, "/api/sap/projects/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, e.authed(http.MethodGet, "/api/sap/projects/-1", "").Code)

	e.catalog.err = errors.New("disk full")
	w = e.authed(http.MethodGet, "/api/sap/projects/7", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPreviewSubProject(t *testing.T) {
	e := setup(t)
	w := e.authed(http.MethodGet, "/api/sap/subprojects/7/SP-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SP-1", decode(t, w)["subProjectId"])

	e.catalog.err = ports.Upstream(errors.Wrap(ports.ErrNotFound, "sap get subproject"))
	assert.Equal(t, http.StatusNotFound, e.authed(http.MethodGet, "/api/sap/subprojects/7/SP-1", "").Code)
}

func TestSyncValidation(t *testing.T) {
	e := setup(t)
	cases := map[string]string{
		"malformed":       `{"projects":`,
		"empty":           `{"projects":[]}`,
		"missing field":   `{}`,
		"missing project": `{"projects":[{"subProjectId":"S"}]}`,
		"missing sub":     `{"projects":[{"projectId":1}]}`,
		"empty sub":       `{"projects":[{"projectId":1,"subProjectId":""}]}`,
	}
	for name, body := range cases {
		w := e.authed(http.MethodPost, "/api/sap/sync", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
	assert.Nil(t, e.sync.items)

	var b strings.Builder
	b.WriteString(`{"projects":[`)
	for i := 0; i <= MaxBatch; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"projectId":1,"subProjectId":"S"}`)
	}
	b.WriteString(`]}`)
	assert.Equal(t, http.StatusBadRequest, e.authed(http.MethodPost, "/api/sap/sync", b.String()).Code)
}

func TestSync(t *testing.T) {
	e := setup(t)
	w := e.authed(http.MethodPost, "/api/sap/sync", `{"projects":[{"projectId":7,"subProjectId":"A"},{"projectId":7,"subProjectId":"B"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, 2.0, body["imported"])
	assert.Equal(t, "r1", body["runId"])
	assert.Equal(t, []domain.SyncItem{{ProjectID: 7, SubProjectID: "A"}, {ProjectID: 7, SubProjectID: "B"}}, e.sync.items)
	assert.Equal(t, "1", e.sync.actor)

	e.sync.batchErr = errors.Wrap(ports.Upstream(errors.New("timeout")), "list sap projects")
	assert.Equal(t, http.StatusBadGateway, e.authed(http.MethodPost, "/api/sap/sync", `{"projects":[{"projectId":7,"subProjectId":"A"}]}`).Code)
	e.sync.batchErr = errors.New("db locked")
	assert.Equal(t, http.StatusInternalServerError, e.authed(http.MethodPost, "/api/sap/sync", `{"projects":[{"projectId":7,"subProjectId":"A"}]}`).Code)
}

func TestCron(t *testing.T) {
	e := setup(t)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/cron/sap-sync", "").Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/cron/sap-sync", "", "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/cron/sap-sync", "", "Authorization", "Bearer tok").Code, "session tokens are not cron secrets")
	assert.Equal(t, 0, e.sync.resynced)

	w := e.do(http.MethodGet, "/api/cron/sap-sync", "", "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, decode(t, w)["synced"])
	assert.Equal(t, 1, e.sync.resynced)
}

func TestCronDisabledWithoutSecret(t *testing.T) {
	h := NewHandler(Deps{Sync: &fakeSyncer{}, Log: logging.Nop()})
	r := httptest.NewRequest(http.MethodGet, "/api/cron/sap-sync", nil)
	r.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRuns(t *testing.T) {
	e := setup(t)
	w := e.authed(http.MethodGet, "/api/sap/sync/runs?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["runs"], 1)

	assert.Equal(t, http.StatusBadRequest, e.authed(http.MethodGet, "/api/sap/sync/runs?limit=x", "").Code)

	w = e.authed(http.MethodGet, "/api/sap/sync/runs/r1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)
	assert.Equal(t, http.StatusNotFound, e.authed(http.MethodGet, "/api/sap/sync/runs/nope", "").Code)
}

func TestHealth(t *testing.T) {
	e := setup(t)
	w := e.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}
