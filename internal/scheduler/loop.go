// Package scheduler runs the seat acquisition loop: poll, evaluate the
// selection, reserve, and recover from backend failures.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/rail-scheduler/internal/rail"
)

var (
	ErrAborted           = errors.New("acquisition aborted by operator")
	ErrAttemptsExhausted = errors.New("attempt limit reached")
	ErrNoAuthenticator   = errors.New("loop needs an authenticator to re-login")
)

type State int

const (
	Polling State = iota
	Evaluating
	Reserving
	BackingOff
	Recovering
	AwaitingOperator
	Succeeded
	Aborted
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case Evaluating:
		return "evaluating"
	case Reserving:
		return "reserving"
	case BackingOff:
		return "backoff"
	case Recovering:
		return "recovering"
	case AwaitingOperator:
		return "awaiting_operator"
	case Succeeded:
		return "succeeded"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == Succeeded || s == Aborted }

// Selection is the operator's choice of candidates in priority order plus
// the seat policy that applies to all of them.
type Selection struct {
	Indices []int
	Policy  rail.SeatPolicy
}

func (s Selection) Validate() error {
	if len(s.Indices) == 0 {
		return errors.New("no trains selected")
	}
	seen := make(map[int]bool, len(s.Indices))
	for _, i := range s.Indices {
		if i < 0 {
			return fmt.Errorf("invalid train index %d", i)
		}
		if seen[i] {
			return fmt.Errorf("train index %d selected twice", i)
		}
		seen[i] = true
	}
	return nil
}

// IndexError reports a selected index missing from a search result.
type IndexError struct {
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("selected train %d not in search result (%d trains)", e.Index, e.Count)
}

// Sink delivers a notification.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// Prompter asks the operator a yes/no question.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// Observer is told about progress. Calls happen on the loop goroutine.
type Observer interface {
	Attempt(n int, elapsed time.Duration)
	Failure(rec Recovery, err error)
	Finished(res Result)
}

type Result struct {
	State       State
	Reservation rail.Reservation
	Attempts    int
	Elapsed     time.Duration
	Paid        bool
	PayErr      error
}

// Loop holds one acquisition run. Auth is required. Session may be nil,
// in which case the first cycle logs in; it is replaced on
// re-authentication.
type Loop struct {
	Auth        rail.Authenticator
	Credentials rail.Credentials
	Session     rail.Session

	Params     rail.SearchParams
	Selection  Selection
	Passengers rail.Passengers

	// Card enables payment right after a non-waiting reservation.
	Card *rail.Card

	// MaxAttempts bounds the number of cycles; 0 is unbounded.
	MaxAttempts int

	Backoff       Backoff
	Sink          Sink
	Operator      Prompter
	Observer      Observer
	NotifyTimeout time.Duration
	Logger        *slog.Logger

	// Sleep and Now are replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time

	state State
}

func (l *Loop) defaults() {
	if l.Backoff == nil {
		l.Backoff = DefaultBackoff()
	}
	if l.Observer == nil {
		l.Observer = nopObserver{}
	}
	if l.Logger == nil {
		l.Logger = slog.Default()
	}
	if l.Sleep == nil {
		l.Sleep = sleep
	}
	if l.Now == nil {
		l.Now = time.Now
	}
	if l.NotifyTimeout == 0 {
		l.NotifyTimeout = 10 * time.Second
	}
}

// State is the loop's current state.
func (l *Loop) State() State { return l.state }

func (l *Loop) enter(s State) {
	if l.state.Terminal() {
		return
	}
	if s != l.state {
		l.Logger.Debug("loop state", "from", l.state, "to", s)
	}
	l.state = s
}

// Run polls until a reservation succeeds, the operator declines to go on,
// the attempt budget is spent, or ctx is done. Cancellation never leads
// to a reservation call.
func (l *Loop) Run(ctx context.Context) (Result, error) {
	if err := l.Selection.Validate(); err != nil {
		return Result{State: Aborted}, err
	}
	if err := l.Passengers.Validate(); err != nil {
		return Result{State: Aborted}, err
	}
	if l.Auth == nil {
		return Result{State: Aborted}, ErrNoAuthenticator
	}
	l.defaults()
	l.state = Polling

	start := l.Now()
	res := Result{}
	finish := func(s State, err error) (Result, error) {
		l.enter(s)
		res.State = s
		res.Elapsed = l.Now().Sub(start)
		l.Observer.Finished(res)
		return res, err
	}

	reauth := l.Session == nil
	for {
		if err := ctx.Err(); err != nil {
			return finish(Aborted, err)
		}
		if l.MaxAttempts > 0 && res.Attempts >= l.MaxAttempts {
			return finish(Aborted, ErrAttemptsExhausted)
		}
		res.Attempts++
		l.Observer.Attempt(res.Attempts, l.Now().Sub(start))

		err := l.cycle(ctx, &reauth, &res)
		if err == nil {
			if l.state == Succeeded {
				return finish(Succeeded, nil)
			}
			continue
		}
		if ctx.Err() != nil {
			return finish(Aborted, ctx.Err())
		}

		l.enter(Recovering)
		rec := Classify(err)
		l.Logger.Debug("classified error", "category", rec.Category, "error", err)
		l.Observer.Failure(rec, err)
		if rec.Notify {
			l.notify(ctx, failureText(rec, err))
		}
		if rec.ResetClient && l.Session != nil {
			l.Session.Clear()
		}
		if rec.AskOperator {
			l.enter(AwaitingOperator)
			if !l.confirm(ctx, err) {
				if ctx.Err() != nil {
					return finish(Aborted, ctx.Err())
				}
				return finish(Aborted, ErrAborted)
			}
		}
		if rec.Reauth {
			reauth = true
		}
		if rec.Backoff {
			if err := l.backoff(ctx); err != nil {
				return finish(Aborted, err)
			}
		}
	}
}

// cycle runs one poll. A nil error with state Succeeded means res holds
// the reservation; a nil error otherwise means the cycle backed off.
func (l *Loop) cycle(ctx context.Context, reauth *bool, res *Result) error {
	if *reauth {
		l.enter(Recovering)
		s, err := l.Auth.Authenticate(ctx, l.Credentials)
		if err != nil {
			return err
		}
		l.Session = s
		*reauth = false
		l.Logger.Info("re-authenticated", "provider", s.Provider())
	}

	l.enter(Polling)
	cands, err := l.Session.Search(ctx, l.Params)
	if err != nil {
		return err
	}

	l.enter(Evaluating)
	cand, ok, err := l.pick(cands)
	if err != nil {
		return err
	}
	if !ok {
		return l.backoff(ctx)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	l.enter(Reserving)
	r, err := l.Session.Reserve(ctx, cand, l.Passengers, l.Selection.Policy)
	if err != nil {
		return err
	}
	res.Reservation = r
	l.succeed(ctx, res)
	l.enter(Succeeded)
	return nil
}

// pick scans the selection in priority order and returns the first
// reservable candidate.
func (l *Loop) pick(cands []rail.Candidate) (rail.Candidate, bool, error) {
	for _, i := range l.Selection.Indices {
		if i >= len(cands) {
			return rail.Candidate{}, false, &IndexError{Index: i, Count: len(cands)}
		}
		if rail.IsReservable(cands[i], l.Selection.Policy) {
			return cands[i], true, nil
		}
	}
	return rail.Candidate{}, false, nil
}

func (l *Loop) succeed(ctx context.Context, res *Result) {
	r := res.Reservation
	l.Logger.Info("reservation succeeded", "provider", r.Provider, "number", r.Number, "train", r.TrainNo, "waiting", r.Waiting)
	msg := SuccessText(r)
	if l.Card != nil && !r.Waiting && !r.Paid {
		if err := l.Session.Pay(ctx, r, *l.Card); err != nil {
			res.PayErr = err
			l.Logger.Warn("payment failed", "number", r.Number, "error", err)
			msg += "\npayment failed: " + err.Error()
		} else {
			res.Paid = true
			res.Reservation.Paid = true
			msg += "\npayment complete"
		}
	}
	l.notify(ctx, msg)
}

// SuccessText renders a reservation with its tickets.
func SuccessText(r rail.Reservation) string {
	var b strings.Builder
	b.WriteString(r.String())
	for _, t := range r.Tickets {
		b.WriteString("\n")
		b.WriteString(t.String())
	}
	return b.String()
}

func failureText(rec Recovery, err error) string {
	if rec.Category == ConnectivityError {
		return "connection lost: " + err.Error()
	}
	return fmt.Sprintf("%s: %v", rec.Category, err)
}

func (l *Loop) notify(ctx context.Context, text string) {
	if l.Sink == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.NotifyTimeout)
	defer cancel()
	if err := l.Sink.Send(nctx, text); err != nil {
		l.Logger.Warn("notification failed", "error", err)
	}
}

func (l *Loop) confirm(ctx context.Context, cause error) bool {
	if l.Operator == nil {
		return false
	}
	ok, err := l.Operator.Confirm(ctx, fmt.Sprintf("%v\ncontinue?", cause))
	if err != nil {
		l.Logger.Warn("operator prompt failed", "error", err)
		return false
	}
	return ok
}

func (l *Loop) backoff(ctx context.Context) error {
	l.enter(BackingOff)
	return l.Sleep(ctx, l.Backoff.Next())
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopObserver struct{}

func (nopObserver) Attempt(int, time.Duration) {}
func (nopObserver) Failure(Recovery, error)    {}
func (nopObserver) Finished(Result)            {}

// Observers fans out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	var out multiObserver
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) Attempt(n int, elapsed time.Duration) {
	for _, o := range m {
		o.Attempt(n, elapsed)
	}
}

func (m multiObserver) Failure(rec Recovery, err error) {
	for _, o := range m {
		o.Failure(rec, err)
	}
}

func (m multiObserver) Finished(res Result) {
	for _, o := range m {
		o.Finished(res)
	}
}
