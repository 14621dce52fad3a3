package cli

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/relab/qbft/leaderrotation"
	"github.com/relab/qbft/processor"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a consensus instance in a simulated group of operators.",
	Long: `The run command starts one consensus instance per operator in this process,
connects them through a simulated network and waits until every live operator
has decided or the duration has passed. Each operator proposes a value naming
itself and the round when it leads a round.

Operators listed with --silent never start, as if they had crashed.
Use --link-rate to rate limit every link between two operators.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSim(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd.Flags())
	cobra.CheckErr(viper.BindPFlags(runCmd.Flags()))
}

func addRunFlags(flags *pflag.FlagSet) {
	flags.Int("operators", 4, "number of operators in the group")
	flags.IntSlice("silent", nil, "operators that never start")
	flags.Int("quorum", 0, "quorum size (derived from the number of operators by default)")
	flags.Uint64("height", 0, "height of the consensus instance")
	flags.Duration("round-timeout", 500*time.Millisecond, "duration of the first round")
	flags.Duration("max-round-timeout", 0, "upper limit on round durations; enables exponential backoff")
	flags.Duration("duration", 10*time.Second, "upper limit on the duration of the run")

	flags.String("leader-rotation", leaderrotation.NameRoundRobin, "name of the leader rotation algorithm")
	flags.Uint64("leader", 1, "leader of the fixed leader rotation")
	flags.Int64("shared-seed", 0, "shared random number generator seed of the weighted leader rotation")
	flags.StringSlice("weights", nil, "operator:weight pairs of the weighted leader rotation")

	flags.Float64("link-rate", 0, "rate limit of each link in messages/second (unlimited by default)")
	flags.Int("link-burst", 1, "burst size of each rate limited link")
	flags.Int("max-workers", 0, "maximum number of concurrent validations (number of CPUs by default)")
	flags.Int("queue-size", processor.DefaultQueueSize, "maximum number of queued validations")

	flags.String("metrics-addr", "", "address to serve Prometheus metrics on (disabled by default)")
	flags.String("output", "", "the directory to save profiles to (disabled by default)")
	flags.Bool("cpu-profile", false, "enable cpu profiling")
	flags.Bool("mem-profile", false, "enable memory profiling")
	flags.Bool("trace", false, "enable trace")
	flags.Bool("fgprof-profile", false, "enable fgprof")
}
