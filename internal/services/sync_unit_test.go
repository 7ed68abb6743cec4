package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calfeed.dev/internal/models"
	"calfeed.dev/internal/services"
)

func fixtureEvent(subject, location string) models.Event {
	start := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	//nolint:exhaustruct //description left blank
	return models.Event{
		Subject:    subject,
		Start:      start,
		End:        start.Add(time.Hour),
		Location:   location,
		NaturalKey: subject + "|2024-01-10|09:00",
	}
}

func TestReconcileAddsAll(t *testing.T) {
	incoming := []models.Event{
		fixtureEvent("Meeting", "Room1"),
		fixtureEvent("Review", "Room2"),
	}

	changes := services.Reconcile(nil, incoming)

	assert.Len(t, changes.Add, 2)
	assert.Empty(t, changes.Update)
	assert.Empty(t, changes.Remove)
}

func TestReconcileIdempotent(t *testing.T) {
	existing := []models.Event{
		fixtureEvent("Meeting", "Room1"),
		fixtureEvent("Review", "Room2"),
	}

	changes := services.Reconcile(existing, existing)

	assert.Empty(t, changes.Add)
	assert.Empty(t, changes.Update)
	assert.Empty(t, changes.Remove)
}

func TestReconcileFieldChangeUpdatesWholeRecord(t *testing.T) {
	current := fixtureEvent("Meeting", "Room1")
	current.ID = "11111111-1111-1111-1111-111111111111"

	updated := fixtureEvent("Meeting", "Room2")

	changes := services.Reconcile(
		[]models.Event{current},
		[]models.Event{updated},
	)

	assert.Empty(t, changes.Add)
	assert.Empty(t, changes.Remove)
	require.Len(t, changes.Update, 1)
	assert.Equal(t, current.ID, changes.Update[0].ID)
	assert.Equal(t, "Room2", changes.Update[0].Location)
}

func TestReconcileRemovesMissing(t *testing.T) {
	existing := []models.Event{
		fixtureEvent("Meeting", "Room1"),
		fixtureEvent("Review", "Room2"),
	}
	incoming := []models.Event{fixtureEvent("Meeting", "Room1")}

	changes := services.Reconcile(existing, incoming)

	assert.Empty(t, changes.Add)
	assert.Empty(t, changes.Update)
	require.Len(t, changes.Remove, 1)
	assert.Equal(t, "Review", changes.Remove[0].Subject)
}

func TestReconcileEmptyBatchRemovesEverything(t *testing.T) {
	existing := []models.Event{
		fixtureEvent("Meeting", "Room1"),
		fixtureEvent("Review", "Room2"),
	}

	changes := services.Reconcile(existing, nil)

	assert.Empty(t, changes.Add)
	assert.Empty(t, changes.Update)
	assert.Len(t, changes.Remove, 2)
}

func TestReconcileDuplicateKeysCollapseToLastSeen(t *testing.T) {
	first := fixtureEvent("Meeting", "Room1")
	last := fixtureEvent("Meeting", "Room9")

	changes := services.Reconcile(nil, []models.Event{first, last})

	require.Len(t, changes.Add, 1)
	assert.Equal(t, "Room9", changes.Add[0].Location)
}
