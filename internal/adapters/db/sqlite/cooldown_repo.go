package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/schrico/PM-SAP-sub001/internal/ports"
)

// CooldownRepo keeps one last-fetch row per actor.
type CooldownRepo struct{ *Repo }

func NewCooldownRepo(db *sql.DB) *CooldownRepo { return &CooldownRepo{NewRepo(db)} }

var _ ports.CooldownRepository = (*CooldownRepo)(nil)

// TryAcquire is a single compare-and-set statement: the row is written only
// when absent or when its last fetch is at least cooldown before now.
func (r *CooldownRepo) TryAcquire(ctx context.Context, actorID string, now time.Time, cooldown time.Duration) (bool, time.Time, error) {
	q := r.SQ.Insert("fetch_cooldowns").Columns("actor_id", "last_fetch_at").
		Values(actorID, formatTS(now)).
		Suffix("ON CONFLICT(actor_id) DO UPDATE SET last_fetch_at = excluded.last_fetch_at WHERE fetch_cooldowns.last_fetch_at <= ?",
			formatTS(now.Add(-cooldown)))
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, time.Time{}, errors.Wrapf(err, "acquire cooldown for %s", actorID)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, now, nil
	}
	var last string
	if err := r.DB.QueryRowContext(ctx, `SELECT last_fetch_at FROM fetch_cooldowns WHERE actor_id = ?`, actorID).Scan(&last); err != nil {
		return false, time.Time{}, errors.Wrapf(err, "read cooldown for %s", actorID)
	}
	return false, parseTS(last), nil
}
