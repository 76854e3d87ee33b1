package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	dbsqlite "github.com/schrico/PM-SAP-sub001/internal/adapters/db/sqlite"
	"github.com/schrico/PM-SAP-sub001/internal/adapters/sap"
	apiapp "github.com/schrico/PM-SAP-sub001/internal/api/app"
	"github.com/schrico/PM-SAP-sub001/internal/config"
	"github.com/schrico/PM-SAP-sub001/internal/domain"
	"github.com/schrico/PM-SAP-sub001/internal/logging"
	"github.com/schrico/PM-SAP-sub001/internal/metrics"
	"github.com/schrico/PM-SAP-sub001/internal/usecase/catalog"
	"github.com/schrico/PM-SAP-sub001/internal/usecase/ratelimit"
	"github.com/schrico/PM-SAP-sub001/internal/usecase/sapsync"
)

const shutdownGrace = 15 * time.Second

// App owns the process-wide dependencies.
type App struct {
	cfg      config.Config
	log      *zerolog.Logger
	db       *sql.DB
	sessions *dbsqlite.SessionRepo
	catalog  *catalog.Service
	sync     *sapsync.Service
	limiter  *ratelimit.Limiter
	metrics  *metrics.Metrics
}

// NewApp opens the store and wires every service from cfg.
func NewApp(cfg config.Config, log *zerolog.Logger) (*App, error) {
	db, err := dbsqlite.Init(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	client := sap.New(sap.Config{
		BaseURL:  cfg.SAPBaseURL,
		APIKey:   cfg.SAPAPIKey,
		Username: cfg.SAPUsername,
		Password: cfg.SAPPassword,
		Timeout:  cfg.SAPTimeout,
	}, logging.Component(log, "sap"))
	projects := dbsqlite.NewProjectRepo(db)

	return &App{
		cfg:      cfg,
		log:      log,
		db:       db,
		sessions: dbsqlite.NewSessionRepo(db),
		metrics:  m,
		limiter:  ratelimit.New(dbsqlite.NewCooldownRepo(db), cfg.FetchCooldown),
		catalog: catalog.NewService(catalog.Deps{
			SAP:      client,
			Projects: projects,
			Log:      logging.Component(log, "catalog"),
		}, cfg.StaleAfter),
		sync: sapsync.NewService(sapsync.Deps{
			SAP:      client,
			Projects: projects,
			Runs:     dbsqlite.NewSyncRunRepo(db),
			Metrics:  m,
			Log:      logging.Component(log, "sync"),
		}, cfg.SyncConcurrency),
	}, nil
}

func (a *App) Handler() http.Handler {
	return apiapp.NewHandler(apiapp.Deps{
		Catalog:    a.catalog,
		Sync:       a.sync,
		Limiter:    a.limiter,
		Sessions:   a.sessions,
		Store:      dbsqlite.NewRepo(a.db),
		Metrics:    a.metrics,
		CronSecret: a.cfg.CronSecret,
		Log:        a.log,
	})
}

// Serve listens on cfg.Addr until ctx is cancelled, then drains in-flight
// requests.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.cfg.Addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}
	a.log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	err := srv.Shutdown(sctx)
	if lerr := <-errc; lerr != nil && !errors.Is(lerr, http.ErrServerClosed) {
		err = multierr.Append(err, lerr)
	}
	return err
}

// Resync runs one scheduled pass outside the HTTP server.
func (a *App) Resync(ctx context.Context) (domain.ResyncResult, error) {
	return a.sync.Resync(ctx)
}

// IssueSession creates the user if needed and returns a fresh session token.
func (a *App) IssueSession(ctx context.Context, email, role string, ttl time.Duration) (string, error) {
	uid, err := a.sessions.EnsureUser(ctx, email, role)
	if err != nil {
		return "", err
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generate token")
	}
	token := hex.EncodeToString(buf)
	if err := a.sessions.CreateSession(ctx, token, uid, time.Now().Add(ttl)); err != nil {
		return "", err
	}
	return token, nil
}

func (a *App) Close() error {
	return a.db.Close()
}
