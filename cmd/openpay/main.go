// Package main provides the OpenPay command line: the HTTP API server and
// one-shot salary queries against the same pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
	logFormat  string
	output     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "openpay",
		Short:         "OpenPay salary statistics",
		Long:          "OpenPay aggregates public and community tech salaries, computes statistics per job title and serves them over a REST API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a JSON config file (environment variables override it)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "Result format for stats, match and describe: json or text")

	root.AddCommand(
		newServeCmd(opts),
		newStatsCmd(opts),
		newTitlesCmd(opts),
		newSuggestCmd(opts),
		newMatchCmd(opts),
		newDescribeCmd(opts),
		newAddSalaryCmd(opts),
		newRefreshCmd(opts),
		newHashPasswordCmd(),
	)
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
