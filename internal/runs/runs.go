// Package runs records acquisition runs and the errors they recovered
// from.
package runs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/rail-scheduler/internal/db"
	"github.com/example/rail-scheduler/internal/rail"
	"github.com/example/rail-scheduler/internal/scheduler"
)

type Run struct {
	ID         uuid.UUID
	Provider   rail.Provider
	Departure  string
	Arrival    string
	Date       string
	Time       string
	Selection  []int
	SeatPolicy rail.SeatPolicy
	Passengers string

	State       string
	Attempts    int
	Reservation *string
	Paid        bool
	LastError   *string

	StartedAt  time.Time
	FinishedAt *time.Time
}

func joinIndices(idx []int) string {
	parts := make([]string, len(idx))
	for i, n := range idx {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func parseIndices(s string) []int {
	var out []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if n, err := strconv.Atoi(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

// Start inserts a run in the polling state and returns its id.
func (r *Repo) Start(ctx context.Context, p rail.Provider, params rail.SearchParams, sel scheduler.Selection) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Exec(ctx, `
INSERT INTO runs(id,provider,departure,arrival,travel_date,travel_time,selection,seat_policy,passengers,state)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'polling')`,
		id, string(p), params.Departure, params.Arrival, params.Date, params.Time,
		joinIndices(sel.Indices), sel.Policy.String(), params.Passengers.String(),
	)
	if err != nil {
		return uuid.Nil, db.WrapNotFound(err)
	}
	return id, nil
}

func (r *Repo) RecordError(ctx context.Context, runID uuid.UUID, rec scheduler.Recovery, cause error) error {
	var provider, code *string
	if re, ok := rail.AsError(cause); ok {
		p := string(re.Provider)
		provider, code = &p, &re.Code
	}
	_, err := r.db.Exec(ctx, `INSERT INTO run_errors(run_id, category, provider, code, message) VALUES ($1,$2,$3,$4,$5)`,
		runID, rec.Category.String(), provider, code, cause.Error())
	return err
}

func (r *Repo) Finish(ctx context.Context, runID uuid.UUID, res scheduler.Result, runErr error) error {
	var number, lastErr *string
	if res.State == scheduler.Succeeded {
		n := res.Reservation.Number
		number = &n
	}
	if runErr != nil {
		msg := runErr.Error()
		lastErr = &msg
	}
	_, err := r.db.Exec(ctx, `
UPDATE runs SET state=$2, attempts=$3, reservation=$4, paid=$5, last_error=$6, finished_at=now()
WHERE id=$1`, runID, res.State.String(), res.Attempts, number, res.Paid, lastErr)
	return err
}

// Recent lists the latest runs, newest first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := r.db.Query(ctx, `
SELECT id,provider,departure,arrival,travel_date,travel_time,selection,seat_policy,passengers,state,attempts,reservation,paid,last_error,started_at,finished_at
FROM runs
ORDER BY started_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var provider, selection, policy string
		if err := rows.Scan(
			&run.ID, &provider, &run.Departure, &run.Arrival, &run.Date, &run.Time, &selection, &policy, &run.Passengers,
			&run.State, &run.Attempts, &run.Reservation, &run.Paid, &run.LastError, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, err
		}
		run.Provider = rail.Provider(provider)
		run.Selection = parseIndices(selection)
		run.SeatPolicy, _ = rail.ParseSeatPolicy(policy)
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r Run) String() string {
	s := fmt.Sprintf("%s %s %s~%s %s %s %s attempts=%d", r.StartedAt.Format("2006-01-02 15:04"), r.Provider,
		r.Departure, r.Arrival, r.Date, r.Time, r.State, r.Attempts)
	if r.Reservation != nil {
		s += " reservation=" + *r.Reservation
	}
	if r.LastError != nil {
		s += " error=" + *r.LastError
	}
	return s
}

// Observer records one run through the scheduler's observer hooks.
// Database failures are logged by the caller through ErrorFunc and never
// interrupt the run.
type Observer struct {
	Repo      *Repo
	RunID     uuid.UUID
	ErrorFunc func(error)
}

func (o *Observer) report(err error) {
	if err != nil && o.ErrorFunc != nil {
		o.ErrorFunc(err)
	}
}

func (o *Observer) Attempt(int, time.Duration) {}

func (o *Observer) Failure(rec scheduler.Recovery, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	o.report(o.Repo.RecordError(ctx, o.RunID, rec, err))
}

func (o *Observer) Finished(res scheduler.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var runErr error
	if res.PayErr != nil {
		runErr = fmt.Errorf("payment: %w", res.PayErr)
	}
	o.report(o.Repo.Finish(ctx, o.RunID, res, runErr))
}
