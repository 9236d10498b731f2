package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/rail-scheduler/internal/plan"
	"github.com/example/rail-scheduler/internal/rail"
)

// tripFlags are the search flags shared by search and reserve.
type tripFlags struct {
	from       string
	to         string
	date       string
	at         string
	passengers string
	ktxOnly    bool
}

func (f *tripFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.from, "from", "", "departure station (default per provider)")
	c.Flags().StringVar(&f.to, "to", "", "arrival station")
	c.Flags().StringVar(&f.date, "date", "", "travel date YYYYMMDD (default today)")
	c.Flags().StringVar(&f.at, "time", "", "earliest departure HHMMSS")
	c.Flags().StringVar(&f.passengers, "passengers", "adult=1", "passengers, e.g. adult=2,child=1,senior=1")
	c.Flags().BoolVar(&f.ktxOnly, "ktx-only", false, "KTX trains only (ktx provider)")
}

func (f *tripFlags) plan(p rail.Provider, now time.Time) (*plan.Plan, error) {
	ps, err := parsePassengers(f.passengers)
	if err != nil {
		return nil, err
	}
	pl := &plan.Plan{
		Provider:   p,
		Departure:  f.from,
		Arrival:    f.to,
		Date:       f.date,
		Time:       f.at,
		Passengers: ps,
		KTXOnly:    f.ktxOnly,
	}
	if pl.Departure == "" {
		pl.Departure = rail.DefaultDeparture[p]
	}
	if pl.Date == "" {
		pl.Date = now.Format("20060102")
	}
	return pl, nil
}

// parsePassengers reads "adult=2,child=1".
func parsePassengers(s string) (map[string]int, error) {
	out := map[string]int{}
	for _, part := range splitCSV(s) {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid passengers %q (want type=count)", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid passenger count %q", part)
		}
		out[strings.ToLower(strings.TrimSpace(k))] += n
	}
	return out, nil
}

func parseIndices(s string) ([]int, error) {
	var out []int
	for _, part := range splitCSV(s) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid train index %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
