package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "runs",
		Short: "Show recent acquisition runs (needs DATABASE_URL)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, err := a.runs(ctx)
			if err != nil {
				return err
			}
			if repo == nil {
				return errors.New("run history needs DATABASE_URL")
			}
			rs, err := repo.Recent(ctx, limit)
			if err != nil {
				return err
			}
			for _, r := range rs {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
	c.Flags().IntVar(&limit, "limit", 20, "number of runs")
	return c
}
