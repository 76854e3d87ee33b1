package app

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
	"github.com/schrico/PM-SAP-sub001/internal/metrics"
)

type Catalog interface {
	ListProjects(ctx context.Context) (domain.ProjectListing, error)
	GetProject(ctx context.Context, projectID int64) (domain.ListedProject, error)
	PreviewSubProject(ctx context.Context, projectID int64, subProjectID string) (domain.SubProjectPreview, error)
}

type RateLimiter interface {
	CheckAndRecord(ctx context.Context, actorID string) (domain.RateDecision, error)
}

// SAPAPI serves the read-only SAP browsing endpoints.
type SAPAPI struct {
	catalog Catalog
	limiter RateLimiter
	metrics *metrics.Metrics
	log     *zerolog.Logger
}

func NewSAPAPI(catalog Catalog, limiter RateLimiter, m *metrics.Metrics, log *zerolog.Logger) *SAPAPI {
	return &SAPAPI{catalog: catalog, limiter: limiter, metrics: m, log: log}
}

// ListProjects is rate limited per actor since every call hits SAP.
func (a *SAPAPI) ListProjects(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	dec, err := a.limiter.CheckAndRecord(r.Context(), strconv.FormatInt(actor.ID, 10))
	if err != nil {
		fail(w, a.log, err)
		return
	}
	if !dec.Allowed {
		a.metrics.ListingRateLimited()
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "rate_limited", "waitMinutes": dec.WaitMinutes})
		return
	}
	listing, err := a.catalog.ListProjects(r.Context())
	if err != nil {
		fail(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (a *SAPAPI) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}
	p, err := a.catalog.GetProject(r.Context(), id)
	if err != nil {
		fail(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *SAPAPI) PreviewSubProject(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}
	sub := r.PathValue("subProjectId")
	if sub == "" {
		writeError(w, http.StatusBadRequest, "invalid subProjectId")
		return
	}
	p, err := a.catalog.PreviewSubProject(r.Context(), id, sub)
	if err != nil {
		fail(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func projectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("projectId"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid projectId")
		return 0, false
	}
	return id, true
}
