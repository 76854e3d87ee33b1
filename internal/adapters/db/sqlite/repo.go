package sqlite

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

// Repo provides a base for Squirrel-based repositories.
type Repo struct {
	DB *sql.DB
	SQ sq.StatementBuilderType
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db, SQ: sq.StatementBuilder}
}

// Ping checks that the store answers queries.
func (r *Repo) Ping(ctx context.Context) error {
	var one int
	return errors.Wrap(r.DB.QueryRowContext(ctx, `SELECT 1`).Scan(&one), "ping store")
}
