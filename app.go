package calfeed

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"calfeed.dev/internal/config"
	"calfeed.dev/internal/models"
	"calfeed.dev/internal/repositories"
	"calfeed.dev/internal/services"
	"calfeed.dev/pkg/gist"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type App struct {
	logger       *slog.Logger
	ctx          context.Context
	ctxCancel    context.CancelFunc
	Config       config.Config
	Slots        []models.Slot
	Services     *services.Services
	Repositories *repositories.Repositories
}

func New(
	logger *slog.Logger,
	cfg config.Config,
	db *pgxpool.Pool,
) (*App, error) {
	return NewInner(logger, cfg, db, gist.New(cfg.GithubToken, cfg.GistID))
}

func NewInner(
	logger *slog.Logger,
	cfg config.Config,
	db *pgxpool.Pool,
	publisher gist.Client,
) (*App, error) {
	mode, err := models.ParseTimeMode(cfg.TimeMode)
	if err != nil {
		return nil, err
	}

	profile, err := models.NewCalendarProfile(
		mode,
		cfg.Timezone,
		cfg.AllDayThreshold,
	)
	if err != nil {
		return nil, err
	}

	slots, err := slotsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	repos := repositories.New(db)

	//nolint:exhaustruct //context fields are set below
	app := &App{
		logger:       logger,
		Config:       cfg,
		Slots:        slots,
		Repositories: repos,
		Services: services.New(
			logger, db, repos, publisher, profile, slots,
		),
	}

	app.setContext()

	return app, nil
}

// slotsFromConfig maps the transparency policy onto the publish slots:
// no policy or a single free/busy policy publishes one document, "both"
// publishes a parallel free/busy pair.
func slotsFromConfig(cfg config.Config) ([]models.Slot, error) {
	if cfg.TransparencyPolicy == "both" {
		return []models.Slot{
			{Filename: cfg.GistFreeFilename, Policy: models.PolicyFree},
			{Filename: cfg.GistBusyFilename, Policy: models.PolicyBusy},
		}, nil
	}

	policy, err := models.ParseTransparencyPolicy(cfg.TransparencyPolicy)
	if err != nil {
		return nil, fmt.Errorf("invalid transparency policy: %w", err)
	}

	return []models.Slot{
		{Filename: cfg.GistFilename, Policy: policy},
	}, nil
}

func (app *App) setContext() {
	ctx, cancel := context.WithCancel(context.Background())
	app.ctx = ctx
	app.ctxCancel = cancel
}

func (app *App) ApplyMigrations(db *pgxpool.Pool) error {
	migrationsDB := stdlib.OpenDBFromPool(db)

	goose.SetLogger(slog.NewLogLogger(app.logger.Handler(), slog.LevelInfo))

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect(string(goose.DialectPostgres)); err != nil {
		return err
	}

	if err := goose.Up(migrationsDB, "migrations"); err != nil {
		return err
	}

	return nil
}

func (app *App) GetName() string {
	return "calfeed"
}
