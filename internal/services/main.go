package services

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"calfeed.dev/internal/models"
	"calfeed.dev/internal/repositories"
	"calfeed.dev/pkg/gist"
)

type Services struct {
	Events   *EventService
	Calendar *CalendarService
	Sync     *SyncService
}

func New(
	logger *slog.Logger,
	db *pgxpool.Pool,
	repos *repositories.Repositories,
	publisher gist.Client,
	profile models.CalendarProfile,
	slots []models.Slot,
) *Services {
	calendar := NewCalendarService(logger, profile)

	return &Services{
		Events:   &EventService{logger: logger, repo: repos.Events},
		Calendar: calendar,
		Sync: &SyncService{
			logger:    logger,
			db:        db,
			repo:      repos.Events,
			calendar:  calendar,
			publisher: publisher,
			profile:   profile,
			slots:     slots,
		},
	}
}

func NewCalendarService(
	logger *slog.Logger,
	profile models.CalendarProfile,
) *CalendarService {
	return &CalendarService{
		logger:  logger,
		profile: profile,
		now:     time.Now,
	}
}
