package srt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/rail-scheduler/internal/plan"
	"github.com/example/rail-scheduler/internal/rail"
	"github.com/example/rail-scheduler/internal/scheduler"
)

// pollBody renders a search reply with SRT trains 301, 303 and 305; open
// lists the trains that have a general seat.
func pollBody(open ...string) string {
	var rows []string
	for i, no := range []string{"301", "303", "305"} {
		general := "매진"
		for _, o := range open {
			if o == no {
				general = "예약가능"
			}
		}
		rows = append(rows, fmt.Sprintf(`{"stlbTrnClsfCd": "17", "trnNo": "%s", "dptDt": "20261020", "dptTm": "12%d000", "dptRsStnCd": "0551",
     "arvDt": "20261020", "arvTm": "14%d000", "arvRsStnCd": "0015", "gnrmRsvPsbStr": "%s", "sprmRsvPsbStr": "매진", "rsvWaitPsbCd": "-1"}`, no, i, i, general))
	}
	return `{"resultMap": [{"strResult": "SUCC"}], "outDataSets": {"dsOutput1": [` + strings.Join(rows, ",") + `]}}`
}

func TestLoopKeepsSelectedTrainWhenAvailabilityChanges(t *testing.T) {
	f := &fakeSRT{t: t, bodies: []string{pollBody(), pollBody("301"), pollBody("301", "303")}}
	auth := newTestAuth(t, f)
	creds := rail.Credentials{ID: "1234567890", Password: "secret"}

	pl := &plan.Plan{Provider: rail.ProviderSRT, Departure: "수서", Arrival: "동대구", Date: "20261020", Time: "120000", Trains: []int{1}}
	params, err := pl.SearchParams()
	require.NoError(t, err)
	sel, err := pl.Selection()
	require.NoError(t, err)
	passengers, err := pl.PassengerList()
	require.NoError(t, err)

	l := &scheduler.Loop{
		Auth:        auth,
		Credentials: creds,
		Params:      params,
		Selection:   sel,
		Passengers:  passengers,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sleep:       func(ctx context.Context, d time.Duration) error { return ctx.Err() },
	}
	res, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scheduler.Succeeded, res.State)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, f.searches)
	require.Len(t, f.reserved, 1)
	assert.Contains(t, f.reserved[0], ":00303:")
}
