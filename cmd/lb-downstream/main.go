// Command lb-downstream runs a standalone fleet of stub HTTP servers that
// stand in for the real downstream pool during local testing: one
// listener per configured port, each applying a per-tier failure/
// rate-limit/latency profile so the bandit strategies in internal/strategy
// have something genuinely flaky to learn against.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	tierFlag    string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:     "lb-downstream",
	Short:   "Run a stub downstream server fleet with configurable failure injection",
	Version: "0.1.0",
}

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "debug-level logging")
	rootCmd.AddCommand(runCmd)
}

func main() {
	cobra.OnInitialize(func() {
		if verboseFlag {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	})
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("lb-downstream failed")
		os.Exit(1)
	}
}
