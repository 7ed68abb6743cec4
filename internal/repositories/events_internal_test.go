package repositories

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

// Both the pool and an open transaction must satisfy the repository's
// query surface, or the sync cycle cannot share one commit boundary.
var (
	_ DB = (*pgxpool.Pool)(nil)
	_ DB = (pgx.Tx)(nil)
)

type stubDB struct{}

func (stubDB) Exec(
	_ context.Context,
	_ string,
	_ ...any,
) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (stubDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, nil
}

func (stubDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return nil
}

func TestWithDBRebinds(t *testing.T) {
	base := &EventRepository{db: nil}

	bound := base.WithDB(stubDB{})

	assert.Equal(t, stubDB{}, bound.db)
	assert.Nil(t, base.db)
}
