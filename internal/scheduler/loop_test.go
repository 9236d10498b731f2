package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/rail-scheduler/internal/rail"
)

type searchStep struct {
	cands []rail.Candidate
	err   error
}

type fakeSession struct {
	steps    []searchStep
	searches int
	reserved []rail.Candidate
	paid     []string
	cleared  int
	reserve  error
	pay      error
	onSearch func(n int)
}

func (s *fakeSession) Provider() rail.Provider { return rail.ProviderSRT }
func (s *fakeSession) LoggedIn() bool          { return true }
func (s *fakeSession) Clear()                  { s.cleared++ }

func (s *fakeSession) Search(ctx context.Context, p rail.SearchParams) ([]rail.Candidate, error) {
	s.searches++
	if s.onSearch != nil {
		s.onSearch(s.searches)
	}
	step := s.steps[len(s.steps)-1]
	if s.searches <= len(s.steps) {
		step = s.steps[s.searches-1]
	}
	return step.cands, step.err
}

func (s *fakeSession) Reserve(ctx context.Context, c rail.Candidate, ps rail.Passengers, p rail.SeatPolicy) (rail.Reservation, error) {
	s.reserved = append(s.reserved, c)
	if s.reserve != nil {
		return rail.Reservation{}, s.reserve
	}
	return rail.Reservation{Provider: rail.ProviderSRT, Number: "R" + c.TrainNo, TrainNo: c.TrainNo, Waiting: !c.HasSeat()}, nil
}

func (s *fakeSession) Reservations(context.Context) ([]rail.Reservation, error) { return nil, nil }
func (s *fakeSession) Tickets(context.Context) ([]rail.Reservation, error)      { return nil, nil }
func (s *fakeSession) Cancel(context.Context, rail.Reservation) error           { return nil }
func (s *fakeSession) Refund(context.Context, rail.Reservation) error           { return nil }

func (s *fakeSession) Pay(ctx context.Context, r rail.Reservation, c rail.Card) error {
	s.paid = append(s.paid, r.Number)
	return s.pay
}

type fakeAuth struct {
	next  *fakeSession
	calls int
	errs  []error
}

func (a *fakeAuth) Provider() rail.Provider { return rail.ProviderSRT }

func (a *fakeAuth) Authenticate(ctx context.Context, creds rail.Credentials) (rail.Session, error) {
	a.calls++
	if len(a.errs) > 0 {
		err := a.errs[0]
		a.errs = a.errs[1:]
		return nil, err
	}
	return a.next, nil
}

type fakeSink struct{ sent []string }

func (f *fakeSink) Send(ctx context.Context, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

type fakeOperator struct {
	answers []bool
	asked   int
}

func (f *fakeOperator) Confirm(ctx context.Context, q string) (bool, error) {
	f.asked++
	if len(f.answers) == 0 {
		return false, nil
	}
	a := f.answers[0]
	f.answers = f.answers[1:]
	return a, nil
}

type fixedBackoff struct{}

func (fixedBackoff) Next() time.Duration { return time.Second }

func cand(i int, general, special, waiting bool) rail.Candidate {
	return rail.Candidate{Index: i, TrainNo: string(rune('A' + i)), GeneralSeat: general, SpecialSeat: special, WaitingList: waiting}
}

func newLoop(sess *fakeSession, indices ...int) (*Loop, *fakeSink, *fakeOperator, *[]time.Duration) {
	sink := &fakeSink{}
	op := &fakeOperator{}
	var slept []time.Duration
	l := &Loop{
		Auth:       &fakeAuth{next: sess},
		Session:    sess,
		Selection:  Selection{Indices: indices, Policy: rail.GeneralFirst},
		Passengers: rail.Passengers{{Type: rail.Adult, Count: 1}},
		Backoff:    fixedBackoff{},
		Sink:       sink,
		Operator:   op,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return ctx.Err()
		},
	}
	return l, sink, op, &slept
}

func soldOut(n int) []rail.Candidate {
	out := make([]rail.Candidate, n)
	for i := range out {
		out[i] = cand(i, false, false, false)
	}
	return out
}

func TestLoopReservesFirstPriority(t *testing.T) {
	cands := []rail.Candidate{cand(0, true, false, false), cand(1, false, false, false), cand(2, false, true, false)}
	sess := &fakeSession{steps: []searchStep{{cands: cands}}}
	l, sink, _, _ := newLoop(sess, 2, 0, 1)

	res, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Succeeded, res.State)
	require.Len(t, sess.reserved, 1)
	assert.Equal(t, 2, sess.reserved[0].Index)
	assert.Equal(t, "RC", res.Reservation.Number)
	assert.Equal(t, 1, res.Attempts)
	require.Len(t, sink.sent, 1)
	assert.Contains(t, sink.sent[0], res.Reservation.String())
}

func TestLoopBacksOffUntilSeatAppears(t *testing.T) {
	sess := &fakeSession{steps: []searchStep{
		{cands: soldOut(2)},
		{cands: soldOut(2)},
		{cands: []rail.Candidate{cand(0, false, false, false), cand(1, true, false, false)}},
	}}
	l, _, op, slept := newLoop(sess, 0, 1)

	res, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Succeeded, res.State)
	assert.Equal(t, 3, res.Attempts)
	assert.Len(t, *slept, 2)
	assert.Zero(t, op.asked)
	assert.Equal(t, 1, sess.reserved[0].Index)
}

func TestLoopSessionExpiredReauthenticates(t *testing.T) {
	expired := rail.BackendError(rail.ProviderSRT, "", "로그인 후 사용하십시오.")
	old := &fakeSession{steps: []searchStep{{err: expired}}}
	fresh := &fakeSession{steps: []searchStep{{cands: []rail.Candidate{cand(0, true, false, false)}}}}
	auth := &fakeAuth{next: fresh}
	l, sink, op, _ := newLoop(old, 0)
	l.Auth = auth

	res, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Succeeded, res.State)
	assert.Equal(t, 1, auth.calls)
	assert.Zero(t, op.asked)
	assert.Empty(t, old.reserved)
	assert.Len(t, fresh.reserved, 1)
	assert.Equal(t, 2, res.Attempts)
	require.Len(t, sink.sent, 2)
	assert.Contains(t, sink.sent[0], "session_expired")
}

func TestLoopUnclassifiedDeclineAborts(t *testing.T) {
	sess := &fakeSession{steps: []searchStep{{err: rail.BackendError(rail.ProviderSRT, "E1", "전산장애")}}}
	l, sink, op, _ := newLoop(sess, 0)
	op.answers = []bool{false}

	res, err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, Aborted, res.State)
	assert.Equal(t, Aborted, l.State())
	assert.Equal(t, 1, sess.searches)
	assert.Empty(t, sess.reserved)
	assert.Equal(t, 1, op.asked)
	require.Len(t, sink.sent, 1)
	assert.Contains(t, sink.sent[0], "전산장애")
}

func TestLoopUnclassifiedContinue(t *testing.T) {
	sess := &fakeSession{steps: []searchStep{
		{err: rail.BackendError(rail.ProviderKorail, "", "unexpected")},
		{cands: []rail.Candidate{cand(0, true, false, false)}},
	}}
	l, _, op, slept := newLoop(sess, 0)
	op.answers = []bool{true}

	res, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Succeeded, res.State)
	assert.Equal(t, 1, op.asked)
	assert.Len(t, *slept, 1)
}

func TestLoopSoldOutIsSilent(t *testing.T) {
	sess := &fakeSession{steps: []searchStep{
		{err: rail.BackendError(rail.ProviderSRT, "", "잔여석없음")},
		{err: rail.BackendError(rail.ProviderSRT, "", "사용자가 많아 접속이 원활하지 않습니다")},
		{cands: []rail.Candidate{cand(0, true, false, false)}},
	}}
	l, sink, op, _ := newLoop(sess, 0)

	res, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Succeeded, res.State)
	assert.Zero(t, op.asked)
	assert.Len(t, sink.sent, 1)
}

func TestLoopBotDetectedClearsClient(t *testing.T) {
	sess := &fakeSession{steps: []searchStep{
		{err: rail.BackendError(rail.ProviderSRT, "", "정상적인 경로로 접근 부탁드립니다")},
		{cands: []rail.Candidate{cand(0, true, false, false)}},
	}}
	auth := &fakeAuth{}
	l, sink, _, _ := newLoop(sess, 0)
	l.Auth = auth

	_, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sess.cleared)
	assert.Zero(t, auth.calls)
	assert.Len(t, sink.sent, 1)
}

func TestLoopReserveFailureRecovers(t *testing.T) {
	sess := &fakeSession{
		steps:   []searchStep{{cands: []rail.Candidate{cand(0, true, false, false)}}},
		reserve: rail.BackendError(rail.ProviderSRT, "", "잔여석없음"),
	}
	l, _, _, _ := newLoop(sess, 0)
	l.MaxAttempts = 3

	res, err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, Aborted, res.State)
	assert.Equal(t, 3, res.Attempts)
	assert.Len(t, sess.reserved, 3)
}

func TestLoopConnectivityReauthOnContinue(t *testing.T) {
	sess := &fakeSession{steps: []searchStep{{err: rail.TransportError(rail.ProviderSRT, errors.New("connection reset"))}}}
	fresh := &fakeSession{steps: []searchStep{{cands: []rail.Candidate{cand(0, true, false, false)}}}}
	auth := &fakeAuth{next: fresh}
	l, sink, op, _ := newLoop(sess, 0)
	l.Auth = auth
	op.answers = []bool{true}

	res, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Succeeded, res.State)
	assert.Equal(t, 1, auth.calls)
	assert.Contains(t, sink.sent[0], "connection lost")
}

func TestLoopReauthFailureAsksOperator(t *testing.T) {
	sess := &fakeSession{steps: []searchStep{{err: rail.BackendError(rail.ProviderKorail, "P058", "Need to Login: x")}}}
	auth := &fakeAuth{errs: []error{rail.AuthError(rail.ProviderKorail, "", "login rejected")}}
	l, _, op, _ := newLoop(sess, 0)
	l.Auth = auth

	res, err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, Aborted, res.State)
	assert.Equal(t, 1, auth.calls)
	assert.Equal(t, 1, op.asked)
	assert.Equal(t, 1, sess.searches)
}

func TestLoopIndexOutOfRangeIsUnclassified(t *testing.T) {
	sess := &fakeSession{steps: []searchStep{{cands: soldOut(1)}}}
	l, sink, op, _ := newLoop(sess, 3)

	res, err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, Aborted, res.State)
	assert.Equal(t, 1, op.asked)
	assert.Contains(t, sink.sent[0], "not in search result")
}

func TestLoopCancelNeverReserves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &fakeSession{steps: []searchStep{{cands: []rail.Candidate{cand(0, true, false, false)}}}}
	sess.onSearch = func(int) { cancel() }
	l, _, _, _ := newLoop(sess, 0)

	res, err := l.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Aborted, res.State)
	assert.Empty(t, sess.reserved)
}

func TestLoopCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &fakeSession{steps: []searchStep{{cands: soldOut(1)}}}
	l, _, _, _ := newLoop(sess, 0)
	l.Sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	res, err := l.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Aborted, res.State)
	assert.Equal(t, 1, sess.searches)
}

func TestLoopAutoPay(t *testing.T) {
	sess := &fakeSession{steps: []searchStep{{cands: []rail.Candidate{cand(0, true, false, false)}}}}
	l, sink, _, _ := newLoop(sess, 0)
	l.Card = &rail.Card{Number: "1111"}

	res, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Paid)
	assert.True(t, res.Reservation.Paid)
	assert.Equal(t, []string{"RA"}, sess.paid)
	assert.Contains(t, sink.sent[0], "payment complete")
}

func TestLoopPayFailureStillSucceeds(t *testing.T) {
	sess := &fakeSession{
		steps: []searchStep{{cands: []rail.Candidate{cand(0, true, false, false)}}},
		pay:   errors.New("card declined"),
	}
	l, sink, _, _ := newLoop(sess, 0)
	l.Card = &rail.Card{Number: "1111"}

	res, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Succeeded, res.State)
	assert.False(t, res.Paid)
	assert.EqualError(t, res.PayErr, "card declined")
	assert.Contains(t, sink.sent[0], "card declined")
}

func TestLoopWaitingListSkipsPayment(t *testing.T) {
	sess := &fakeSession{steps: []searchStep{{cands: []rail.Candidate{cand(0, false, false, true)}}}}
	l, _, _, _ := newLoop(sess, 0)
	l.Card = &rail.Card{Number: "1111"}

	res, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Reservation.Waiting)
	assert.Empty(t, sess.paid)
}

func TestLoopRequiresAuthenticator(t *testing.T) {
	sess := &fakeSession{}
	l, _, _, _ := newLoop(sess, 0)
	l.Auth = nil

	res, err := l.Run(context.Background())
	require.ErrorIs(t, err, ErrNoAuthenticator)
	assert.Equal(t, Aborted, res.State)
	assert.Zero(t, sess.searches)
}

func TestSelectionValidate(t *testing.T) {
	assert.Error(t, Selection{}.Validate())
	assert.Error(t, Selection{Indices: []int{-1}}.Validate())
	assert.Error(t, Selection{Indices: []int{1, 1}}.Validate())
	assert.NoError(t, Selection{Indices: []int{2, 0, 1}}.Validate())
}

type countingObserver struct {
	attempts int
	failures []Category
	final    Result
}

func (c *countingObserver) Attempt(n int, _ time.Duration) { c.attempts = n }
func (c *countingObserver) Failure(r Recovery, _ error)    { c.failures = append(c.failures, r.Category) }
func (c *countingObserver) Finished(res Result)            { c.final = res }

func TestLoopObserver(t *testing.T) {
	sess := &fakeSession{steps: []searchStep{
		{err: rail.BackendError(rail.ProviderSRT, "", "잔여석없음")},
		{cands: []rail.Candidate{cand(0, true, false, false)}},
	}}
	obs := &countingObserver{}
	l, _, _, _ := newLoop(sess, 0)
	l.Observer = Observers(obs, nil)

	_, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, obs.attempts)
	assert.Equal(t, []Category{SoldOutTransient}, obs.failures)
	assert.Equal(t, Succeeded, obs.final.State)
}
