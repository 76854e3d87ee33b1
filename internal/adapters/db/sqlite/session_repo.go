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

// SessionRepo reads sessions issued by the login flow.
type SessionRepo struct{ *Repo }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{NewRepo(db)} }

var _ ports.SessionRepository = (*SessionRepo)(nil)

func (r *SessionRepo) ActorByToken(ctx context.Context, token string, now time.Time) (*domain.Actor, error) {
	q := r.SQ.Select("u.id", "u.email", "u.role").From("sessions s").
		Join("users u ON u.id = s.user_id").
		Where(sq.And{sq.Eq{"s.token": token}, sq.Gt{"s.expires_at": formatTS(now)}}).
		Limit(1)
	sqlStr, args, _ := q.ToSql()
	var a domain.Actor
	err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&a.ID, &a.Email, &a.Role)
	if err == sql.ErrNoRows {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup session")
	}
	return &a, nil
}

// EnsureUser returns the id of the user with email, creating it if needed.
func (r *SessionRepo) EnsureUser(ctx context.Context, email, role string) (int64, error) {
	q := r.SQ.Insert("users").Columns("email", "role", "created_at").
		Values(email, role, formatTS(time.Now())).
		Suffix("ON CONFLICT(email) DO NOTHING")
	sqlStr, args, _ := q.ToSql()
	if _, err := r.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return 0, errors.Wrapf(err, "create user %s", email)
	}
	var id int64
	if err := r.DB.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "read user %s", email)
	}
	return id, nil
}

// CreateSession stores a token for userID valid until expiresAt.
func (r *SessionRepo) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	q := r.SQ.Insert("sessions").Columns("token", "user_id", "expires_at", "created_at").
		Values(token, userID, formatTS(expiresAt), formatTS(time.Now()))
	sqlStr, args, _ := q.ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return errors.Wrap(err, "create session")
}
