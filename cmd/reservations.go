package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/rail-scheduler/internal/rail"
	"github.com/example/rail-scheduler/internal/secrets"
)

func newReservationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reservations",
		Aliases: []string{"rsv"},
		Short:   "List, cancel, refund and pay reservations",
	}
	cmd.AddCommand(newReservationsListCmd(a))
	cmd.AddCommand(newReservationsSendCmd(a))
	cmd.AddCommand(newReservationActionCmd(a, "cancel", "Cancel an unpaid reservation", cancelOrRefund))
	cmd.AddCommand(newReservationActionCmd(a, "pay", "Pay a reservation with the stored card", payReservation))
	return cmd
}

// allReservations returns pending reservations followed by issued tickets.
func allReservations(ctx context.Context, sess rail.Session) ([]rail.Reservation, error) {
	rs, err := sess.Reservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("reservations: %w", err)
	}
	ts, err := sess.Tickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("tickets: %w", err)
	}
	return append(rs, ts...), nil
}

func formatReservations(rs []rail.Reservation) string {
	if len(rs) == 0 {
		return "no reservations"
	}
	var b strings.Builder
	for i, r := range rs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s  %s", r.Number, r)
		for _, t := range r.Tickets {
			b.WriteString("\n  ")
			b.WriteString(t.String())
		}
	}
	return b.String()
}

func newReservationsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <srt|ktx>",
		Short: "Show reservations and issued tickets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := providerArg(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			_, _, sess, err := a.login(ctx, p)
			if err != nil {
				return err
			}
			rs, err := allReservations(ctx, sess)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatReservations(rs))
			return nil
		},
	}
}

func newReservationsSendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <srt|ktx>",
		Short: "Send the reservation list to the notification chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := providerArg(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			_, _, sess, err := a.login(ctx, p)
			if err != nil {
				return err
			}
			rs, err := allReservations(ctx, sess)
			if err != nil {
				return err
			}
			return a.sink(ctx).Send(ctx, fmt.Sprintf("[%s reservations]\n%s", p, formatReservations(rs)))
		},
	}
}

type reservationAction func(ctx context.Context, a *app, sess rail.Session, r rail.Reservation) (string, error)

func newReservationActionCmd(a *app, use, short string, act reservationAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <srt|ktx> <reservation-number>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := providerArg(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			_, _, sess, err := a.login(ctx, p)
			if err != nil {
				return err
			}
			rs, err := allReservations(ctx, sess)
			if err != nil {
				return err
			}
			r, ok := findReservation(rs, args[1])
			if !ok {
				return fmt.Errorf("no reservation %s", args[1])
			}
			msg, err := act(ctx, a, sess, r)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func findReservation(rs []rail.Reservation, number string) (rail.Reservation, bool) {
	for _, r := range rs {
		if r.Number == number {
			return r, true
		}
	}
	return rail.Reservation{}, false
}

// cancelOrRefund cancels unpaid reservations and refunds issued tickets.
func cancelOrRefund(ctx context.Context, _ *app, sess rail.Session, r rail.Reservation) (string, error) {
	if r.Paid {
		if err := sess.Refund(ctx, r); err != nil {
			return "", err
		}
		return "refunded " + r.Number, nil
	}
	if err := sess.Cancel(ctx, r); err != nil {
		return "", err
	}
	return "cancelled " + r.Number, nil
}

func payReservation(ctx context.Context, a *app, sess rail.Session, r rail.Reservation) (string, error) {
	switch {
	case r.Paid:
		return r.Number + " is already paid", nil
	case r.Waiting:
		return "", fmt.Errorf("%s is on the waiting list and cannot be paid yet", r.Number)
	}
	store, err := a.secrets(ctx)
	if err != nil {
		return "", err
	}
	card, err := secrets.Card(ctx, store)
	if err != nil {
		return "", fmt.Errorf("no stored card (railsched card): %w", err)
	}
	if err := sess.Pay(ctx, r, card); err != nil {
		return "", err
	}
	return "paid " + r.Number, nil
}
