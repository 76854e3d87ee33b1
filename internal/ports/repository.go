package ports

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist, locally or upstream.
var ErrNotFound = errors.New("not found")

type ProjectRepository interface {
	Create(ctx context.Context, p *domain.Project) error
	Get(ctx context.Context, id int64) (*domain.Project, error)
	// FindBySapSubProjectID returns nil, nil when no record carries the id.
	FindBySapSubProjectID(ctx context.Context, subProjectID string) (*domain.Project, error)
	// InsertFromSAP inserts a synced record. It reports false when a record with
	// the same sap_subproject_id already exists and nothing was written.
	InsertFromSAP(ctx context.Context, in domain.ProjectImport, status string) (id int64, inserted bool, err error)
	// UpdateSAPFields overwrites the SAP-owned columns of a synced record only.
	UpdateSAPFields(ctx context.Context, id int64, in domain.ProjectImport) error
	ListExternallySourced(ctx context.Context) ([]*domain.Project, error)
	ListBySapSubProjectIDs(ctx context.Context, ids []string) (map[string]*domain.Project, error)
}

type CooldownRepository interface {
	// TryAcquire records now as actorID's last fetch if the previous one is at
	// least cooldown old. When it is not, it returns false and the stored time.
	TryAcquire(ctx context.Context, actorID string, now time.Time, cooldown time.Duration) (bool, time.Time, error)
}

type SyncRunRepository interface {
	Create(ctx context.Context, run *domain.SyncRun) error
	AddItem(ctx context.Context, item *domain.SyncRunItem) error
	Finish(ctx context.Context, run *domain.SyncRun) error
	Get(ctx context.Context, id string) (*domain.SyncRun, error)
	List(ctx context.Context, limit int) ([]*domain.SyncRun, error)
	ListItems(ctx context.Context, runID string) ([]*domain.SyncRunItem, error)
}

type SessionRepository interface {
	// ActorByToken resolves a live session token. Unknown or expired tokens
	// yield ErrNotFound.
	ActorByToken(ctx context.Context, token string, now time.Time) (*domain.Actor, error)
}
