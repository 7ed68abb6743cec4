package calfeed

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/justinas/alice"
	"github.com/xdoubleu/essentia/v2/pkg/middleware"
)

func (app *App) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", app.healthHandler)

	mux.HandleFunc("POST /api/sync", app.syncHandler)
	mux.HandleFunc("GET /api/events", app.listEventsHandler)
	mux.HandleFunc("DELETE /api/events", app.clearEventsHandler)
	mux.HandleFunc("POST /api/republish", app.republishHandler)

	mux.HandleFunc("GET /feed/", app.feedHandler)

	var sentryClientOptions sentry.ClientOptions
	if len(app.Config.SentryDsn) > 0 {
		//nolint:exhaustruct //other fields are optional
		sentryClientOptions = sentry.ClientOptions{
			Dsn:              app.Config.SentryDsn,
			Environment:      app.Config.Env,
			Release:          app.Config.Release,
			EnableTracing:    true,
			TracesSampleRate: app.Config.SampleRate,
			SampleRate:       app.Config.SampleRate,
		}
	}

	allowedOrigins := []string{app.Config.WebURL}
	handlers, err := middleware.DefaultWithSentry(
		app.logger,
		allowedOrigins,
		app.Config.Env,
		sentryClientOptions,
	)

	if err != nil {
		panic(err)
	}

	standard := alice.New(handlers...)
	return standard.Then(mux)
}
