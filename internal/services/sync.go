package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xdoubleu/essentia/v2/pkg/logging"

	"calfeed.dev/internal/models"
	"calfeed.dev/internal/repositories"
	"calfeed.dev/internal/tabular"
	"calfeed.dev/pkg/gist"
)

// StoreError wraps a failed store operation or commit. The in-memory plan
// is discarded; the store keeps whatever the failed transaction left
// behind, i.e. its previous state.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store commit failed: %v", e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ErrUnknownSlot is returned for feed requests naming a file no publish
// slot is configured for.
var ErrUnknownSlot = fmt.Errorf("unknown publish slot")

// SyncService runs the reconcile-commit-regenerate-republish cycle.
// One sync runs to completion before the next; there is no per-event
// locking, the sync cycle is the unit of isolation.
type SyncService struct {
	logger    *slog.Logger
	db        *pgxpool.Pool
	repo      *repositories.EventRepository
	calendar  *CalendarService
	publisher gist.Client
	profile   models.CalendarProfile
	slots     []models.Slot
}

type SyncSummary struct {
	Added   []string          `json:"added"`
	Updated []string          `json:"updated"`
	Deleted []string          `json:"deleted"`
	URLs    map[string]string `json:"urls"`
}

// ChangeSet is the reconciliation plan between the persisted set and an
// incoming batch.
type ChangeSet struct {
	Add    []models.Event
	Update []models.Event
	Remove []models.Event
}

// Reconcile partitions the natural keys of both sets into additions,
// removals and candidates. A candidate only becomes an update when one of
// the five mutable fields differs; the update then overwrites the whole
// record. Duplicate keys within the incoming batch collapse to the
// last-seen row, matching how re-uploads of messy exports have always
// behaved.
func Reconcile(existing, incoming []models.Event) ChangeSet {
	existingByKey := make(map[string]models.Event, len(existing))
	for _, event := range existing {
		existingByKey[event.NaturalKey] = event
	}

	incomingByKey := make(map[string]models.Event, len(incoming))
	for _, event := range incoming {
		incomingByKey[event.NaturalKey] = event
	}

	//nolint:exhaustruct //filled below
	changes := ChangeSet{}

	for key, event := range incomingByKey {
		current, ok := existingByKey[key]
		if !ok {
			changes.Add = append(changes.Add, event)
			continue
		}

		if !current.FieldsEqual(event) {
			event.ID = current.ID
			changes.Update = append(changes.Update, event)
		}
	}

	for key, event := range existingByKey {
		if _, ok := incomingByKey[key]; !ok {
			changes.Remove = append(changes.Remove, event)
		}
	}

	return changes
}

// Sync parses the uploaded table, applies the reconciliation plan inside
// one transaction and republishes every configured slot. A publish
// failure after the commit returns the summary together with the error:
// local state is already updated and the caller resolves the divergence
// via RegenerateAndRepublish.
func (s *SyncService) Sync(
	ctx context.Context,
	table io.Reader,
) (*SyncSummary, error) {
	incoming, err := s.parseForStorage(table)
	if err != nil {
		return nil, err
	}

	summary, err := s.apply(ctx, incoming)
	if err != nil {
		return nil, err
	}

	s.logger.Info(
		"reconciled batch",
		slog.Int("added", len(summary.Added)),
		slog.Int("updated", len(summary.Updated)),
		slog.Int("deleted", len(summary.Deleted)),
	)

	urls, err := s.publishAll(ctx)
	if err != nil {
		return summary, err
	}
	summary.URLs = urls

	return summary, nil
}

// RegenerateAndRepublish rebuilds and republishes every slot from the
// current persisted set without new input.
func (s *SyncService) RegenerateAndRepublish(
	ctx context.Context,
) (map[string]string, error) {
	return s.publishAll(ctx)
}

// Document renders the slot's calendar document from the persisted set,
// for serving the feed directly.
func (s *SyncService) Document(
	ctx context.Context,
	filename string,
) (string, error) {
	for _, slot := range s.slots {
		if slot.Filename != filename {
			continue
		}

		events, err := s.repo.GetAll(ctx)
		if err != nil {
			return "", &StoreError{Err: err}
		}

		return s.calendar.Generate(events, slot.Policy), nil
	}

	return "", ErrUnknownSlot
}

func (s *SyncService) parseForStorage(
	table io.Reader,
) ([]models.Event, error) {
	incoming, err := tabular.ParseTable(table, s.profile)
	if err != nil {
		return nil, err
	}

	if s.profile.Mode == models.TimeModeZoned {
		// Zoned values are persisted as UTC instants and converted back
		// to the zone's wall clock at serialization time.
		for i := range incoming {
			incoming[i].Start = incoming[i].Start.UTC()
			incoming[i].End = incoming[i].End.UTC()
		}
	}

	return incoming, nil
}

func (s *SyncService) apply(
	ctx context.Context,
	incoming []models.Event,
) (*SyncSummary, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, &StoreError{Err: err}
	}
	defer tx.Rollback(ctx) //nolint:errcheck //no-op after commit

	repo := s.repo.WithDB(tx)

	existing, err := repo.GetAll(ctx)
	if err != nil {
		return nil, &StoreError{Err: err}
	}

	changes := Reconcile(existing, incoming)

	summary := &SyncSummary{
		Added:   []string{},
		Updated: []string{},
		Deleted: []string{},
		URLs:    map[string]string{},
	}

	for _, event := range changes.Add {
		if _, err = repo.Upsert(ctx, event); err != nil {
			return nil, &StoreError{Err: err}
		}
		summary.Added = append(summary.Added, event.Subject)
	}

	for _, event := range changes.Update {
		if _, err = repo.Upsert(ctx, event); err != nil {
			return nil, &StoreError{Err: err}
		}
		summary.Updated = append(summary.Updated, event.Subject)
	}

	for _, event := range changes.Remove {
		if err = repo.DeleteByKey(ctx, event.NaturalKey); err != nil {
			return nil, &StoreError{Err: err}
		}
		summary.Deleted = append(summary.Deleted, event.Subject)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, &StoreError{Err: err}
	}

	return summary, nil
}

func (s *SyncService) publishAll(
	ctx context.Context,
) (map[string]string, error) {
	events, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, &StoreError{Err: err}
	}

	urls := make(map[string]string, len(s.slots))
	for _, slot := range s.slots {
		document := s.calendar.Generate(events, slot.Policy)

		url, err := s.publisher.UpdateFile(ctx, slot.Filename, document)
		if err != nil {
			s.logger.Error(
				"failed to publish slot",
				slog.String("slot", slot.Filename),
				logging.ErrAttr(err),
			)
			return nil, err
		}

		urls[slot.Filename] = url
	}

	return urls, nil
}
