package rail

import "context"

// Authenticator creates sessions for one provider.
type Authenticator interface {
	Provider() Provider
	Authenticate(ctx context.Context, creds Credentials) (Session, error)
}

// Session is an authenticated handle to a provider. A session that stops
// being valid is replaced through the Authenticator, never repaired.
type Session interface {
	Provider() Provider
	LoggedIn() bool

	Search(ctx context.Context, params SearchParams) ([]Candidate, error)
	Reserve(ctx context.Context, c Candidate, passengers Passengers, policy SeatPolicy) (Reservation, error)

	Reservations(ctx context.Context) ([]Reservation, error)
	Tickets(ctx context.Context) ([]Reservation, error)
	Cancel(ctx context.Context, r Reservation) error
	Refund(ctx context.Context, r Reservation) error
	Pay(ctx context.Context, r Reservation, card Card) error

	// Clear drops client-side anti-automation state (queue keys) while
	// keeping the login.
	Clear()
}
