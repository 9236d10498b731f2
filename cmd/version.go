package cmd

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/rail-scheduler/internal/rail"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info and the supported providers",
		// No config needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			// The window is a day shorter before the 07:00 opening.
			noon := time.Date(2000, 1, 1, 12, 0, 0, 0, time.Local)
			fmt.Fprintf(out, "railsched %s (commit=%s, built=%s, %s)\n", Version, CommitSHA, BuildDate, runtime.Version())
			for _, p := range []rail.Provider{rail.ProviderSRT, rail.ProviderKorail} {
				fmt.Fprintf(out, "  %-3s %d stations, books up to D-%d\n", p, len(rail.Stations[p]), rail.MaxBookingDays(p, noon))
			}
		},
	}
}
