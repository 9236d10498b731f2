package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		trip          tripFlags
		availableOnly bool
	)
	c := &cobra.Command{
		Use:   "search <srt|ktx>",
		Short: "List trains once, with the indices reserve --trains expects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := providerArg(args)
			if err != nil {
				return err
			}
			pl, err := trip.plan(p, time.Now())
			if err != nil {
				return err
			}
			pl.Trains = []int{0}
			if err := pl.Normalize(time.Now()); err != nil {
				return err
			}
			params, err := pl.SearchParams()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			_, _, sess, err := a.login(ctx, p)
			if err != nil {
				return err
			}
			cands, err := sess.Search(ctx, params)
			if err != nil {
				return err
			}
			if len(cands) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no trains found")
				return nil
			}
			for _, c := range cands {
				if availableOnly && !c.HasSeat() && !c.WaitingList {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s\n", c.Index, c)
			}
			return nil
		},
	}
	trip.register(c)
	c.Flags().BoolVar(&availableOnly, "available-only", false, "hide trains with no seat and no waiting list (indices are unchanged)")
	_ = c.MarkFlagRequired("to")
	return c
}
