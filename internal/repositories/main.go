package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the query surface shared by connection pools and transactions,
// so a repository can be bound to either. It is deliberately narrower
// than the full connection interface: transactions cannot Ping or open
// sibling transactions.
type DB interface {
	Exec(
		ctx context.Context,
		sql string,
		arguments ...any,
	) (pgconn.CommandTag, error)
	Query(
		ctx context.Context,
		sql string,
		optionsAndArgs ...any,
	) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Repositories struct {
	Events *EventRepository
}

func New(db DB) *Repositories {
	return &Repositories{
		Events: &EventRepository{db: db},
	}
}
