package operator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/rail-scheduler/internal/rail"
	"github.com/example/rail-scheduler/internal/scheduler"
)

func TestTerminalConfirm(t *testing.T) {
	var out bytes.Buffer
	term := &Terminal{In: strings.NewReader("\nn\nyes\n"), Out: &out}
	ctx := context.Background()

	for _, want := range []bool{true, false, true} {
		ok, err := term.Confirm(ctx, "continue?")
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}
	assert.Contains(t, out.String(), "continue? [Y/n] ")

	_, err := term.Confirm(ctx, "again?")
	assert.ErrorIs(t, err, io.EOF)
}

func TestTerminalConfirmCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	term := &Terminal{In: r, Out: io.Discard}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ok, err := term.Confirm(ctx, "continue?")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestParseAnswer(t *testing.T) {
	for in, want := range map[string]bool{"": true, " Y ": true, "yes": true, "n": false, "no": false, "q": false} {
		assert.Equal(t, want, parseAnswer(in), in)
	}
}

func TestAuto(t *testing.T) {
	ok, err := Auto(false).Confirm(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClock(t *testing.T) {
	assert.Equal(t, "00:00:00", Clock(0))
	assert.Equal(t, "00:01:05", Clock(65*time.Second))
	assert.Equal(t, "26:03:09", Clock(26*time.Hour+3*time.Minute+9*time.Second+200*time.Millisecond))
}

func TestStatusLines(t *testing.T) {
	var out bytes.Buffer
	s := &Status{W: &out, NoColor: true, Inline: true}

	s.Attempt(1, time.Second)
	s.Attempt(2, 3*time.Second)
	s.Failure(scheduler.Recovery{Category: scheduler.SoldOutTransient, Backoff: true}, errors.New("잔여석없음"))
	s.Failure(scheduler.Recovery{Category: scheduler.ConnectivityError, Notify: true}, errors.New("dial tcp: refused"))
	s.Finished(scheduler.Result{
		State:       scheduler.Succeeded,
		Attempts:    3,
		Reservation: rail.Reservation{Provider: rail.ProviderSRT, Number: "PNR1", TrainName: "SRT", TrainNo: "301"},
		Paid:        true,
	})

	got := out.String()
	assert.Contains(t, got, "00:00:03 elapsed, 2 attempts")
	assert.NotContains(t, got, "잔여석없음")
	assert.Contains(t, got, "\nconnectivity: dial tcp: refused\n")
	assert.Contains(t, got, "reserved\n")
	assert.Contains(t, got, "[SRT 301]")
	assert.True(t, strings.HasSuffix(got, "payment complete\n"))
}

func TestStatusAbortedPrintsNothingMore(t *testing.T) {
	var out bytes.Buffer
	s := &Status{W: &out, NoColor: true}
	s.Attempt(1, 0)
	s.Finished(scheduler.Result{State: scheduler.Aborted, Attempts: 7, Elapsed: 90 * time.Second})
	assert.Equal(t, "⣾ reservation pending: 00:00:00 elapsed, 1 attempts\n", out.String())

	out.Reset()
	s = &Status{W: &out, NoColor: true, Inline: true}
	s.Attempt(1, 0)
	s.Finished(scheduler.Result{State: scheduler.Aborted})
	assert.Equal(t, "\r\033[K⣾ reservation pending: 00:00:00 elapsed, 1 attempts\n", out.String())
}
