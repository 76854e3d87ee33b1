package app

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
)

// MaxBatch caps the number of subprojects accepted by one sync request.
const MaxBatch = 500

const maxBody = 1 << 20

type Syncer interface {
	SyncBatch(ctx context.Context, actorID string, items []domain.SyncItem) (domain.BatchResult, error)
	Resync(ctx context.Context) (domain.ResyncResult, error)
	Runs(ctx context.Context, limit int) ([]*domain.SyncRun, error)
	RunWithItems(ctx context.Context, id string) (*domain.SyncRun, []*domain.SyncRunItem, error)
}

// SyncAPI serves manual sync, the cron trigger and run history.
type SyncAPI struct {
	sync       Syncer
	cronSecret string
	log        *zerolog.Logger
}

func NewSyncAPI(s Syncer, cronSecret string, log *zerolog.Logger) *SyncAPI {
	return &SyncAPI{sync: s, cronSecret: cronSecret, log: log}
}

type syncRequest struct {
	Projects []struct {
		ProjectID    *int64  `json:"projectId"`
		SubProjectID *string `json:"subProjectId"`
	} `json:"projects"`
}

func (a *SyncAPI) Sync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if len(req.Projects) == 0 {
		writeError(w, http.StatusBadRequest, "projects must not be empty")
		return
	}
	if len(req.Projects) > MaxBatch {
		writeError(w, http.StatusBadRequest, "too many projects")
		return
	}
	items := make([]domain.SyncItem, 0, len(req.Projects))
	for _, p := range req.Projects {
		if p.ProjectID == nil || p.SubProjectID == nil || *p.SubProjectID == "" {
			writeError(w, http.StatusBadRequest, "each entry needs projectId and subProjectId")
			return
		}
		items = append(items, domain.SyncItem{ProjectID: *p.ProjectID, SubProjectID: *p.SubProjectID})
	}

	actor := ActorFrom(r.Context())
	res, err := a.sync.SyncBatch(r.Context(), strconv.FormatInt(actor.ID, 10), items)
	if err != nil {
		fail(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Cron runs a full resync. It is authenticated by the shared cron secret and
// disabled when none is configured.
func (a *SyncAPI) Cron(w http.ResponseWriter, r *http.Request) {
	got := bearer(r)
	if a.cronSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(a.cronSecret)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := a.sync.Resync(r.Context())
	if err != nil {
		fail(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *SyncAPI) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 200 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	runs, err := a.sync.Runs(r.Context(), limit)
	if err != nil {
		fail(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (a *SyncAPI) GetRun(w http.ResponseWriter, r *http.Request) {
	run, items, err := a.sync.RunWithItems(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run, "items": items})
}
