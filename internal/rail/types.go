package rail

import (
	"fmt"
	"strings"
	"time"
)

// Provider selects one of the two reservation backends.
type Provider string

const (
	ProviderSRT    Provider = "SRT"
	ProviderKorail Provider = "KTX"
)

// ParseProvider accepts the names used on the command line ("srt", "ktx",
// "korail") in any case.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "srt":
		return ProviderSRT, nil
	case "ktx", "korail":
		return ProviderKorail, nil
	}
	return "", fmt.Errorf("unknown provider %q (want srt or ktx)", s)
}

type Credentials struct {
	ID       string
	Password string
}

// TrainType narrows a Korail search to one train family.
type TrainType string

const (
	TrainTypeAll TrainType = ""
	TrainTypeKTX TrainType = "KTX"
)

// Filters carries provider-specific search toggles.
type Filters struct {
	TrainType      TrainType
	IncludeSoldOut bool
}

// SearchParams identifies one search. Candidate indices are only stable
// across searches issued with equal SearchParams.
type SearchParams struct {
	Departure  string
	Arrival    string
	Date       string // YYYYMMDD
	Time       string // HHMMSS
	Passengers Passengers
	Filters    Filters
}

// Candidate is one scheduled service as seen by a single search.
type Candidate struct {
	Index int

	Provider  Provider
	TrainName string
	TrainNo   string
	Departure string
	Arrival   string
	DepDate   string
	DepTime   string
	ArrTime   string

	GeneralSeat bool
	SpecialSeat bool
	WaitingList bool

	// Meta holds the provider fields needed to reserve this service.
	Meta map[string]string
}

// HasSeat reports whether a seat of any class is available.
func (c Candidate) HasSeat() bool { return c.GeneralSeat || c.SpecialSeat }

func (c Candidate) String() string {
	return fmt.Sprintf("[%s %s] %s~%s (%s~%s) general:%s special:%s waiting:%s",
		c.TrainName, c.TrainNo, c.Departure, c.Arrival,
		clock(c.DepTime), clock(c.ArrTime),
		mark(c.GeneralSeat), mark(c.SpecialSeat), mark(c.WaitingList))
}

func mark(ok bool) string {
	if ok {
		return "available"
	}
	return "sold out"
}

func clock(hhmmss string) string {
	if len(hhmmss) < 4 {
		return hhmmss
	}
	return hhmmss[:2] + ":" + hhmmss[2:4]
}

type PassengerType string

const (
	Adult          PassengerType = "adult"
	Child          PassengerType = "child"
	Senior         PassengerType = "senior"
	Disability1To3 PassengerType = "disability1to3"
	Disability4To6 PassengerType = "disability4to6"
)

// PassengerTypes lists every passenger type in display order.
var PassengerTypes = []PassengerType{Adult, Child, Senior, Disability1To3, Disability4To6}

type Passenger struct {
	Type  PassengerType
	Count int
}

// MaxPassengers is the backend ceiling; a composition must stay below it.
const MaxPassengers = 10

type Passengers []Passenger

func (ps Passengers) Total() int {
	n := 0
	for _, p := range ps {
		n += p.Count
	}
	return n
}

// Count returns the number of passengers of type t.
func (ps Passengers) Count(t PassengerType) int {
	n := 0
	for _, p := range ps {
		if p.Type == t {
			n += p.Count
		}
	}
	return n
}

func (ps Passengers) Validate() error {
	for _, p := range ps {
		if p.Count < 0 {
			return fmt.Errorf("negative passenger count for %s", p.Type)
		}
	}
	total := ps.Total()
	if total < 1 {
		return fmt.Errorf("at least one passenger is required")
	}
	if total >= MaxPassengers {
		return fmt.Errorf("passenger count must be below %d (got %d)", MaxPassengers, total)
	}
	return nil
}

// AsAdults collapses the composition into a single adult entry. Searches
// use this form; reservations use the real composition.
func (ps Passengers) AsAdults() Passengers {
	return Passengers{{Type: Adult, Count: ps.Total()}}
}

func (ps Passengers) String() string {
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		if p.Count > 0 {
			parts = append(parts, fmt.Sprintf("%s x%d", p.Type, p.Count))
		}
	}
	return strings.Join(parts, ", ")
}

type Ticket struct {
	Car       string
	Seat      string
	SeatClass string
	Passenger string
	Price     int
}

func (t Ticket) String() string {
	return fmt.Sprintf("car %s seat %s (%s) %s %d won", t.Car, t.Seat, t.SeatClass, t.Passenger, t.Price)
}

// Reservation is a committed reservation or an issued ticket.
type Reservation struct {
	Provider  Provider
	Number    string
	TrainName string
	TrainNo   string
	Departure string
	Arrival   string
	DepDate   string
	DepTime   string
	ArrTime   string
	Price     int
	Paid      bool
	Waiting   bool

	// PayBy is the payment deadline of an unpaid reservation.
	PayBy time.Time

	Tickets []Ticket
	Meta    map[string]string
}

func (r Reservation) String() string {
	state := "awaiting payment"
	switch {
	case r.Waiting:
		state = "waiting list"
	case r.Paid:
		state = "paid"
	}
	s := fmt.Sprintf("[%s %s] %s %s~%s (%s~%s) %d won, %s",
		r.TrainName, r.TrainNo, r.DepDate, r.Departure, r.Arrival,
		clock(r.DepTime), clock(r.ArrTime), r.Price, state)
	if !r.Paid && !r.Waiting && !r.PayBy.IsZero() {
		s += ", pay by " + r.PayBy.Format("2006-01-02 15:04")
	}
	return s
}

// Card is a payment card. Birthday holds YYMMDD for personal cards or a
// business registration number for corporate cards.
type Card struct {
	Number   string
	Password string // first two digits
	Birthday string
	Expire   string // YYMM
}

// Corporate reports whether the card is registered to a business.
func (c Card) Corporate() bool { return len(c.Birthday) != 6 }
