// Package plan reads and checks the description of one acquisition run.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/rail-scheduler/internal/rail"
	"github.com/example/rail-scheduler/internal/scheduler"
)

// Plan is what `reserve --plan` reads:
//
//	provider: SRT
//	departure: 수서
//	arrival: 부산
//	date: "20261101"
//	time: "080000"
//	passengers: {adult: 2, child: 1}
//	trains: [0, 2, 1]
//	seat_policy: general-first
//	pay: true
type Plan struct {
	Provider    rail.Provider  `yaml:"provider"`
	Departure   string         `yaml:"departure"`
	Arrival     string         `yaml:"arrival"`
	Date        string         `yaml:"date"`
	Time        string         `yaml:"time"`
	Passengers  map[string]int `yaml:"passengers"`
	Trains      []int          `yaml:"trains"`
	SeatPolicy  string         `yaml:"seat_policy"`
	Pay         bool           `yaml:"pay"`
	KTXOnly     bool           `yaml:"ktx_only,omitempty"`
	MaxAttempts int            `yaml:"max_attempts,omitempty"`
}

const (
	dateLayout = "20060102"
	timeLayout = "150405"
)

func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return Parse(data)
}

// Parse decodes a plan and rejects unknown fields.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	prov, err := rail.ParseProvider(string(p.Provider))
	if err != nil {
		return nil, err
	}
	p.Provider = prov
	return &p, nil
}

func (p *Plan) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// PassengerList returns the composition in display order.
func (p *Plan) PassengerList() (rail.Passengers, error) {
	known := make(map[string]bool, len(rail.PassengerTypes))
	var out rail.Passengers
	for _, t := range rail.PassengerTypes {
		known[string(t)] = true
		if n := p.Passengers[string(t)]; n != 0 {
			out = append(out, rail.Passenger{Type: t, Count: n})
		}
	}
	for k := range p.Passengers {
		if !known[k] {
			return nil, fmt.Errorf("unknown passenger type %q", k)
		}
	}
	if len(out) == 0 {
		out = rail.Passengers{{Type: rail.Adult, Count: 1}}
	}
	return out, out.Validate()
}

// Normalize checks the plan against the provider's booking rules at now.
// A same-day time already in the past is moved up to now.
func (p *Plan) Normalize(now time.Time) error {
	var errs []error
	if !rail.IsStation(p.Provider, p.Departure) {
		errs = append(errs, fmt.Errorf("unknown %s station %q", p.Provider, p.Departure))
	}
	if !rail.IsStation(p.Provider, p.Arrival) {
		errs = append(errs, fmt.Errorf("unknown %s station %q", p.Provider, p.Arrival))
	}
	if p.Departure == p.Arrival && p.Departure != "" {
		errs = append(errs, errors.New("departure and arrival are the same station"))
	}
	if len(p.Trains) == 0 {
		errs = append(errs, errors.New("no trains selected"))
	}
	if _, err := rail.ParseSeatPolicy(p.SeatPolicy); err != nil {
		errs = append(errs, err)
	}
	if p.KTXOnly && p.Provider != rail.ProviderKorail {
		errs = append(errs, errors.New("ktx_only applies to KTX plans only"))
	}
	if p.MaxAttempts < 0 {
		errs = append(errs, errors.New("max_attempts must not be negative"))
	}

	if p.Time == "" {
		p.Time = "000000"
	}
	day, err := time.ParseInLocation(dateLayout, p.Date, now.Location())
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid date %q (want YYYYMMDD)", p.Date))
	} else {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		last := today.AddDate(0, 0, rail.MaxBookingDays(p.Provider, now))
		switch {
		case day.Before(today):
			errs = append(errs, fmt.Errorf("date %s is in the past", p.Date))
		case day.After(last):
			errs = append(errs, fmt.Errorf("date %s is past the booking window (last %s)", p.Date, last.Format(dateLayout)))
		}
		if _, err := time.Parse(timeLayout, p.Time); err != nil {
			errs = append(errs, fmt.Errorf("invalid time %q (want HHMMSS)", p.Time))
		} else if day.Equal(today) && p.Time < now.Format(timeLayout) {
			p.Time = now.Format(timeLayout)
		}
	}
	return errors.Join(errs...)
}

// SearchParams is the query the loop repeats. Searches count every
// passenger as an adult and always include sold-out trains, so a train
// keeps its index when its availability changes between polls.
func (p *Plan) SearchParams() (rail.SearchParams, error) {
	ps, err := p.PassengerList()
	if err != nil {
		return rail.SearchParams{}, err
	}
	sp := rail.SearchParams{
		Departure:  p.Departure,
		Arrival:    p.Arrival,
		Date:       p.Date,
		Time:       p.Time,
		Passengers: ps.AsAdults(),
		Filters:    rail.Filters{IncludeSoldOut: true},
	}
	if p.KTXOnly {
		sp.Filters.TrainType = rail.TrainTypeKTX
	}
	return sp, nil
}

func (p *Plan) Selection() (scheduler.Selection, error) {
	pol, err := rail.ParseSeatPolicy(p.SeatPolicy)
	if err != nil {
		return scheduler.Selection{}, err
	}
	sel := scheduler.Selection{Indices: append([]int(nil), p.Trains...), Policy: pol}
	return sel, sel.Validate()
}
