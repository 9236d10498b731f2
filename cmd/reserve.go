package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/rail-scheduler/internal/metrics"
	"github.com/example/rail-scheduler/internal/operator"
	"github.com/example/rail-scheduler/internal/plan"
	"github.com/example/rail-scheduler/internal/rail"
	"github.com/example/rail-scheduler/internal/runs"
	"github.com/example/rail-scheduler/internal/scheduler"
	"github.com/example/rail-scheduler/internal/secrets"
	"github.com/example/rail-scheduler/internal/web"
)

type reserveFlags struct {
	trip          tripFlags
	planFile      string
	trains        string
	policy        string
	pay           bool
	maxAttempts   int
	continueOnErr bool
}

func newReserveCmd(a *app) *cobra.Command {
	var f reserveFlags
	c := &cobra.Command{
		Use:   "reserve [srt|ktx]",
		Short: "Poll until one of the selected trains has a seat, then reserve it",
		Long: "Trains are the indices printed by `search`, in priority order. The provider\n" +
			"argument may be left out when --plan names one.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pl, err := f.resolve(cmd, args, time.Now())
			if err != nil {
				return err
			}
			return a.reserve(cmd, pl, f.continueOnErr)
		},
	}
	f.register(c)
	return c
}

func (f *reserveFlags) register(c *cobra.Command) {
	f.trip.register(c)
	c.Flags().StringVar(&f.planFile, "plan", "", "YAML run plan")
	c.Flags().StringVar(&f.trains, "trains", "", "comma-separated train indices in priority order")
	c.Flags().StringVar(&f.policy, "policy", "general-first", "seat policy: general-first, general-only, special-first, special-only")
	c.Flags().BoolVar(&f.pay, "pay", false, "pay with the stored card right after reserving")
	c.Flags().IntVar(&f.maxAttempts, "max-attempts", 0, "stop after N polls (0 = no limit)")
	c.Flags().BoolVar(&f.continueOnErr, "continue-on-error", true, "answer to the continue prompt when stdin is not a terminal")
}

// resolve builds the plan from --plan and the command line. Flags given
// explicitly override the file.
func (f *reserveFlags) resolve(cmd *cobra.Command, args []string, now time.Time) (*plan.Plan, error) {
	var pl *plan.Plan
	if f.planFile != "" {
		var err error
		if pl, err = plan.Load(f.planFile); err != nil {
			return nil, err
		}
		if len(args) == 1 {
			p, err := providerArg(args)
			if err != nil {
				return nil, err
			}
			if p != pl.Provider {
				return nil, fmt.Errorf("plan is for %s, not %s", pl.Provider, p)
			}
		}
	} else {
		p, err := providerArg(args)
		if err != nil {
			return nil, err
		}
		if pl, err = f.trip.plan(p, now); err != nil {
			return nil, err
		}
		pl.SeatPolicy = f.policy
	}

	changed := cmd.Flags().Changed
	if f.planFile != "" {
		if changed("policy") {
			pl.SeatPolicy = f.policy
		}
		if changed("date") {
			pl.Date = f.trip.date
		}
		if changed("time") {
			pl.Time = f.trip.at
		}
	}
	if changed("trains") || f.planFile == "" {
		idx, err := parseIndices(f.trains)
		if err != nil {
			return nil, err
		}
		pl.Trains = idx
	}
	if changed("pay") || f.planFile == "" {
		pl.Pay = f.pay
	}
	if changed("max-attempts") || f.planFile == "" {
		pl.MaxAttempts = f.maxAttempts
	}
	return pl, pl.Normalize(now)
}

func (a *app) reserve(cmd *cobra.Command, pl *plan.Plan, continueOnErr bool) error {
	params, err := pl.SearchParams()
	if err != nil {
		return err
	}
	passengers, err := pl.PassengerList()
	if err != nil {
		return err
	}
	sel, err := pl.Selection()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var card *rail.Card
	if pl.Pay {
		store, err := a.secrets(ctx)
		if err != nil {
			return err
		}
		c, err := secrets.Card(ctx, store)
		if err != nil {
			return fmt.Errorf("auto-pay needs a stored card (railsched card): %w", err)
		}
		card = &c
	}

	auth, creds, sess, err := a.login(ctx, pl.Provider)
	if err != nil {
		return err
	}

	var prompter scheduler.Prompter = operator.Auto(continueOnErr)
	if operator.IsTerminal(os.Stdin) {
		prompter = operator.NewTerminal()
	}
	tty := operator.IsTerminal(os.Stderr)
	status := &operator.Status{W: os.Stderr, Inline: tty, NoColor: !tty}
	webStatus := &web.Status{}
	observers := []scheduler.Observer{status, webStatus, metrics.Observer{Provider: pl.Provider}}

	repo, err := a.runs(ctx)
	if err != nil {
		a.logger.Warn("run history disabled", "error", err)
	}
	if repo != nil {
		id, err := repo.Start(ctx, pl.Provider, params, sel)
		if err != nil {
			a.logger.Warn("run history disabled", "error", err)
		} else {
			a.logger.Info("run started", "run_id", id)
			observers = append(observers, &runs.Observer{
				Repo:      repo,
				RunID:     id,
				ErrorFunc: func(err error) { a.logger.Warn("run history write failed", "error", err) },
			})
		}
	}

	if a.cfg.MetricsAddr != "" {
		srv := &web.Server{Status: webStatus, Runs: repo}
		go func() {
			if err := web.Start(ctx, a.cfg.MetricsAddr, srv.Routes()); err != nil {
				a.logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	loop := &scheduler.Loop{
		Auth:          auth,
		Credentials:   creds,
		Session:       sess,
		Params:        params,
		Selection:     sel,
		Passengers:    passengers,
		Card:          card,
		MaxAttempts:   pl.MaxAttempts,
		Sink:          a.sink(ctx),
		Operator:      prompter,
		Observer:      scheduler.Observers(observers...),
		NotifyTimeout: a.cfg.NotifyTimeout,
		Logger:        a.logger,
	}
	a.logger.Info("polling",
		"provider", pl.Provider, "from", params.Departure, "to", params.Arrival,
		"date", params.Date, "time", params.Time, "trains", sel.Indices, "policy", sel.Policy,
		"passengers", passengers.String())

	res, err := loop.Run(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		a.logger.Info("interrupted", "attempts", res.Attempts)
		return nil
	case errors.Is(err, scheduler.ErrAborted):
		a.logger.Debug("aborted by operator", "attempts", res.Attempts, "elapsed", res.Elapsed)
		return nil
	}
	return err
}
