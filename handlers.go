package calfeed

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/xdoubleu/essentia/v2/pkg/communication/httptools"
	"github.com/xdoubleu/essentia/v2/pkg/logging"

	"calfeed.dev/internal/models"
	"calfeed.dev/internal/services"
	"calfeed.dev/internal/tabular"
	"calfeed.dev/pkg/gist"
)

type eventResponse struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	NaturalKey  string    `json:"naturalKey"`
}

func (app *App) healthHandler(w http.ResponseWriter, _ *http.Request) {
	app.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// syncHandler accepts the uploaded table as multipart field "file" and
// runs a full sync cycle. A publish failure after the local commit is
// reported as 502 while the reconciliation has already been applied.
func (app *App) syncHandler(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	summary, err := app.Services.Sync.Sync(r.Context(), file)
	if err != nil {
		app.writeSyncError(w, err)
		return
	}

	app.writeJSON(w, http.StatusOK, summary)
}

func (app *App) writeSyncError(w http.ResponseWriter, err error) {
	var validationErr *tabular.ValidationError
	var parseErr *tabular.ParseError
	var storeErr *services.StoreError
	var publishErr *gist.PublishError

	switch {
	case errors.As(err, &validationErr), errors.As(err, &parseErr):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &storeErr):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	case errors.As(err, &publishErr):
		http.Error(
			w,
			"events were reconciled but publishing failed, "+
				"use /api/republish once the host recovers: "+err.Error(),
			http.StatusBadGateway,
		)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// listEventsHandler lists the persisted set, optionally filtered by the
// q parameter as a substring of subject or description.
func (app *App) listEventsHandler(w http.ResponseWriter, r *http.Request) {
	var events []models.Event
	var err error

	if query := r.URL.Query().Get("q"); query != "" {
		events, err = app.Services.Events.Search(r.Context(), query)
	} else {
		events, err = app.Services.Events.ListAll(r.Context())
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response := make([]eventResponse, 0, len(events))
	for _, event := range events {
		response = append(response, eventResponse{
			ID:          event.ID,
			Subject:     event.Subject,
			Start:       event.Start,
			End:         event.End,
			Location:    event.Location,
			Description: event.Description,
			NaturalKey:  event.NaturalKey,
		})
	}

	app.writeJSON(w, http.StatusOK, response)
}

func (app *App) clearEventsHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Services.Events.ClearAll(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *App) republishHandler(w http.ResponseWriter, r *http.Request) {
	urls, err := app.Services.Sync.RegenerateAndRepublish(r.Context())
	if err != nil {
		app.writeSyncError(w, err)
		return
	}

	app.writeJSON(w, http.StatusOK, map[string]any{"urls": urls})
}

// feedHandler serves the current document of one slot directly, so the
// feed can be previewed without a round trip through the gist host.
func (app *App) feedHandler(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimPrefix(r.URL.Path, "/feed/")

	document, err := app.Services.Sync.Document(r.Context(), filename)
	if err != nil {
		if errors.Is(err, services.ErrUnknownSlot) {
			http.Error(w, "unknown feed", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar")
	if _, err = w.Write([]byte(document)); err != nil {
		app.logger.Error("failed to write feed", logging.ErrAttr(err))
	}
}

func (app *App) writeJSON(w http.ResponseWriter, status int, value any) {
	if err := httptools.WriteJSON(w, status, value, nil); err != nil {
		app.logger.Error("failed to write response", logging.ErrAttr(err))
	}
}
