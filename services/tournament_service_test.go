package services

import (
	"context"
	"testing"
	"time"

	"github.com/bgmi-arena/arena-backend/models"
	"github.com/bgmi-arena/arena-backend/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTournamentValidation(t *testing.T) {
	f := newFixture()
	future := time.Now().Add(time.Hour)

	_, err := f.tournament.Create(context.Background(), CreateTournamentInput{Capacity: 25, StartsAt: future})
	assert.ErrorIs(t, err, ErrTournamentNameRequired)

	_, err = f.tournament.Create(context.Background(), CreateTournamentInput{Name: "x", Capacity: 0, StartsAt: future})
	assert.ErrorIs(t, err, ErrTournamentInvalidCapacity)

	_, err = f.tournament.Create(context.Background(), CreateTournamentInput{Name: "x", Capacity: 25, EntryFee: -1, StartsAt: future})
	assert.ErrorIs(t, err, ErrTournamentInvalidFee)

	_, err = f.tournament.Create(context.Background(), CreateTournamentInput{Name: "x", Capacity: 25, StartsAt: time.Now().Add(-time.Hour)})
	assert.ErrorIs(t, err, ErrTournamentInvalidStart)

	created, err := f.tournament.Create(context.Background(), CreateTournamentInput{
		Name:     "Miramar TDM",
		Mode:     "duo",
		Capacity: 25,
		EntryFee: 50,
		StartsAt: future,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, created.Status)
	assert.NotZero(t, created.ID)
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture()
	f.seedTournament(100, 25, models.StatusOpen)
	f.seedTournament(100, 25, models.StatusClosed)

	open := models.StatusOpen
	tournaments, err := f.tournament.List(context.Background(), repositories.ListTournamentsFilter{Status: &open, Limit: 10})
	require.NoError(t, err)
	require.Len(t, tournaments, 1)
	assert.Equal(t, models.StatusOpen, tournaments[0].Status)
}

func TestCloseStartedStopsLateJoins(t *testing.T) {
	f := newFixture()
	f.seedPlayer("p1", 500)
	tid := f.seedTournament(100, 25, models.StatusOpen)

	// Pull the start time into the past, then run the scheduler pass.
	f.store.mu.Lock()
	tournament := f.store.tournaments[tid]
	tournament.StartsAt = time.Now().Add(-time.Minute)
	f.store.tournaments[tid] = tournament
	f.store.mu.Unlock()

	require.NoError(t, f.tournament.CloseStarted(context.Background()))
	assert.Equal(t, models.StatusClosed, f.tournamentState(tid).Status)

	_, _, err := f.admission.Join(context.Background(), joinInput("p1", tid))
	assert.ErrorIs(t, err, ErrTournamentClosed)

	events := f.notifier.eventsOfType(EventClosed)
	require.Len(t, events, 1)
	assert.Equal(t, tid, events[0].TournamentID)
}

func TestDeleteTournamentWithEntrantsForbidden(t *testing.T) {
	f := newFixture()
	f.seedPlayer("p1", 500)
	tid := f.seedTournament(100, 25, models.StatusOpen)

	_, _, err := f.admission.Join(context.Background(), joinInput("p1", tid))
	require.NoError(t, err)

	assert.ErrorIs(t, f.tournament.Delete(context.Background(), tid), ErrForbiddenOperation)

	empty := f.seedTournament(100, 25, models.StatusOpen)
	assert.NoError(t, f.tournament.Delete(context.Background(), empty))
	assert.ErrorIs(t, f.tournament.Delete(context.Background(), empty), ErrTournamentNotFound)
}
