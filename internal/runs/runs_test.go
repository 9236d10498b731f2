package runs

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/rail-scheduler/internal/db"
	"github.com/example/rail-scheduler/internal/migrate"
	"github.com/example/rail-scheduler/internal/rail"
	"github.com/example/rail-scheduler/internal/scheduler"
)

func TestIndices(t *testing.T) {
	assert.Equal(t, "2,0,1", joinIndices([]int{2, 0, 1}))
	assert.Equal(t, []int{2, 0, 1}, parseIndices("2, 0,1"))
	assert.Nil(t, parseIndices(""))
}

func TestRepo(t *testing.T) {
	url := os.Getenv("RAILSCHED_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("RAILSCHED_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	d, err := db.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	_, err = migrate.Up(ctx, d)
	require.NoError(t, err)

	repo := NewRepo(d)
	params := rail.SearchParams{
		Departure: "수서", Arrival: "부산", Date: "20261020", Time: "080000",
		Passengers: rail.Passengers{{Type: rail.Adult, Count: 2}},
	}
	sel := scheduler.Selection{Indices: []int{1, 0}, Policy: rail.SpecialFirst}
	id, err := repo.Start(ctx, rail.ProviderSRT, params, sel)
	require.NoError(t, err)

	obs := &Observer{Repo: repo, RunID: id, ErrorFunc: func(err error) { t.Error(err) }}
	obs.Failure(scheduler.Classify(rail.BackendError(rail.ProviderSRT, "E", "잔여석없음")), rail.BackendError(rail.ProviderSRT, "E", "잔여석없음"))
	obs.Failure(scheduler.Classify(errors.New("boom")), errors.New("boom"))
	obs.Finished(scheduler.Result{State: scheduler.Succeeded, Attempts: 3, Reservation: rail.Reservation{Number: "PNR1"}})

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	var got *Run
	for i := range recent {
		if recent[i].ID == id {
			got = &recent[i]
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, "succeeded", got.State)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, []int{1, 0}, got.Selection)
	assert.Equal(t, rail.SpecialFirst, got.SeatPolicy)
	require.NotNil(t, got.Reservation)
	assert.Equal(t, "PNR1", *got.Reservation)
	assert.NotNil(t, got.FinishedAt)
}
