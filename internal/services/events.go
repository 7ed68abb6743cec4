package services

import (
	"context"
	"log/slog"

	"calfeed.dev/internal/models"
	"calfeed.dev/internal/repositories"
)

// EventService exposes the read and maintenance surface over the
// persisted set.
type EventService struct {
	logger *slog.Logger
	repo   *repositories.EventRepository
}

func (s *EventService) ListAll(ctx context.Context) ([]models.Event, error) {
	events, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, &StoreError{Err: err}
	}
	return events, nil
}

// Search filters on a substring of subject or description. An empty
// store simply yields an empty result.
func (s *EventService) Search(
	ctx context.Context,
	text string,
) ([]models.Event, error) {
	events, err := s.repo.Search(ctx, text)
	if err != nil {
		return nil, &StoreError{Err: err}
	}
	return events, nil
}

// ClearAll wipes the persisted set. It is a maintenance operation invoked
// outside of any sync cycle; the published document is not touched until
// the next publish.
func (s *EventService) ClearAll(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return &StoreError{Err: err}
	}

	s.logger.Info("cleared all events")

	return nil
}
