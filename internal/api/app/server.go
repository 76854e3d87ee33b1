// Package app is the HTTP surface of the SAP sync subsystem.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/schrico/PM-SAP-sub001/internal/logging"
	"github.com/schrico/PM-SAP-sub001/internal/metrics"
	"github.com/schrico/PM-SAP-sub001/internal/ports"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Catalog    Catalog
	Sync       Syncer
	Limiter    RateLimiter
	Sessions   ports.SessionRepository
	Store      Pinger
	Metrics    *metrics.Metrics
	CronSecret string
	Log        *zerolog.Logger
	Now        func() time.Time // optional
}

// NewHandler wires every route behind request logging.
func NewHandler(d Deps) http.Handler {
	log := logging.Component(d.Log, "http")
	now := d.Now
	if now == nil {
		now = time.Now
	}
	auth := requireActor(d.Sessions, now, log)
	sap := NewSAPAPI(d.Catalog, d.Limiter, d.Metrics, log)
	sync := NewSyncAPI(d.Sync, d.CronSecret, log)

	mux := http.NewServeMux()
	mux.Handle("GET /api/sap/projects", auth(http.HandlerFunc(sap.ListProjects)))
	mux.Handle("GET /api/sap/projects/{projectId}", auth(http.HandlerFunc(sap.GetProject)))
	mux.Handle("GET /api/sap/subprojects/{projectId}/{subProjectId}", auth(http.HandlerFunc(sap.PreviewSubProject)))
	mux.Handle("POST /api/sap/sync", auth(http.HandlerFunc(sync.Sync)))
	mux.Handle("GET /api/sap/sync/runs", auth(http.HandlerFunc(sync.ListRuns)))
	mux.Handle("GET /api/sap/sync/runs/{id}", auth(http.HandlerFunc(sync.GetRun)))
	mux.HandleFunc("GET /api/cron/sap-sync", sync.Cron)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Ping(r.Context()); err != nil {
			log.Error().Err(err).Msg("health check")
			writeError(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}
	return logRequests(log, mux)
}
