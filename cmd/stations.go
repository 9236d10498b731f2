package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/rail-scheduler/internal/rail"
)

func newStationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "stations <srt|ktx>",
		Short:             "List the stations a provider serves",
		Args:              cobra.ExactArgs(1),
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := providerArg(args)
			if err != nil {
				return err
			}
			defaults := map[string]bool{}
			for _, s := range rail.DefaultStations[p] {
				defaults[s] = true
			}
			out := cmd.OutOrStdout()
			for _, s := range rail.Stations[p] {
				mark := " "
				if defaults[s] {
					mark = "*"
				}
				if code, ok := rail.SRTStationCodes[s]; ok && p == rail.ProviderSRT {
					fmt.Fprintf(out, "%s %s (%s)\n", mark, s, code)
					continue
				}
				fmt.Fprintf(out, "%s %s\n", mark, s)
			}
			return nil
		},
	}
}
