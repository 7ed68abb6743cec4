package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/xdoubleu/essentia/v2/pkg/database"
	"github.com/xdoubleu/essentia/v2/pkg/database/postgres"

	"calfeed.dev/internal/models"
)

// EventRepository persists events keyed by their natural key. Timestamps
// are stored in a plain timestamp column: naive and declared-zone values
// keep their wall-clock form, zoned values are normalized to UTC instants
// before writing.
type EventRepository struct {
	db DB
}

// WithDB rebinds the repository, typically to a transaction, so a whole
// sync cycle shares one commit boundary.
func (repo *EventRepository) WithDB(db DB) *EventRepository {
	return &EventRepository{db: db}
}

func (repo *EventRepository) GetAll(
	ctx context.Context,
) ([]models.Event, error) {
	query := `
		SELECT id, subject, start_at, end_at, location, description, natural_key
		FROM events
		ORDER BY start_at asc
	`

	rows, err := repo.db.Query(ctx, query)
	if err != nil {
		return nil, postgres.PgxErrorToHTTPError(err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Search matches a substring against subject or description using SQL
// LIKE, so case behavior follows the database collation (case-sensitive
// under the default Postgres collation).
func (repo *EventRepository) Search(
	ctx context.Context,
	text string,
) ([]models.Event, error) {
	query := `
		SELECT id, subject, start_at, end_at, location, description, natural_key
		FROM events
		WHERE subject LIKE '%' || $1 || '%'
		OR description LIKE '%' || $1 || '%'
		ORDER BY start_at asc
	`

	rows, err := repo.db.Query(ctx, query, text)
	if err != nil {
		return nil, postgres.PgxErrorToHTTPError(err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Upsert writes an event under its natural key. On conflict every mutable
// field is overwritten, matching the whole-record update the reconciler
// performs.
func (repo *EventRepository) Upsert(
	ctx context.Context,
	event models.Event,
) (*models.Event, error) {
	query := `
		INSERT INTO events (id, subject, start_at, end_at, location, description, natural_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (natural_key)
		DO UPDATE SET subject = $2, start_at = $3, end_at = $4,
		location = $5, description = $6
		RETURNING id
	`

	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	err := repo.db.QueryRow(
		ctx,
		query,
		event.ID,
		event.Subject,
		event.Start,
		event.End,
		event.Location,
		event.Description,
		event.NaturalKey,
	).Scan(&event.ID)

	if err != nil {
		return nil, postgres.PgxErrorToHTTPError(err)
	}

	return &event, nil
}

func (repo *EventRepository) DeleteByKey(
	ctx context.Context,
	naturalKey string,
) error {
	query := `
		DELETE FROM events
		WHERE natural_key = $1
	`

	result, err := repo.db.Exec(ctx, query, naturalKey)
	if err != nil {
		return postgres.PgxErrorToHTTPError(err)
	}

	rowsAffected := result.RowsAffected()
	if rowsAffected == 0 {
		return database.ErrResourceNotFound
	}

	return nil
}

func (repo *EventRepository) DeleteAll(ctx context.Context) error {
	query := `
		DELETE FROM events
	`

	_, err := repo.db.Exec(ctx, query)
	if err != nil {
		return postgres.PgxErrorToHTTPError(err)
	}

	return nil
}

func scanEvents(rows pgx.Rows) ([]models.Event, error) {
	events := []models.Event{}
	for rows.Next() {
		//nolint:exhaustruct //fields are scanned below
		event := models.Event{}

		err := rows.Scan(
			&event.ID,
			&event.Subject,
			&event.Start,
			&event.End,
			&event.Location,
			&event.Description,
			&event.NaturalKey,
		)
		if err != nil {
			return nil, postgres.PgxErrorToHTTPError(err)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, postgres.PgxErrorToHTTPError(err)
	}

	return events, nil
}
