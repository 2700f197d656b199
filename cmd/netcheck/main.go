package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netcheck-network/netcheck/pkg/util"
	"github.com/netcheck-network/netcheck/pkg/version"
)

var verboseFlag bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "netcheck",
		Short: "CLI test automation for network devices",
		Long: `Netcheck runs verification suites against network devices over their CLI.

Suites are YAML files that define steps (execute, assert, for-each,
cross-reference, config transactions) against devices in an inventory.

  netcheck run suite.yaml --inventory lab.yaml   # run a suite
  netcheck parse --schema s.yaml output.txt      # parse captured output offline
  netcheck devices --inventory lab.yaml          # list inventory devices`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verboseFlag {
				util.SetLogLevel("debug")
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(
		newRunCmd(),
		newParseCmd(),
		newDevicesCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				if version.Version == "dev" {
					fmt.Println("netcheck dev build (use 'make build' for version info)")
				} else {
					fmt.Printf("netcheck %s (%s)\n", version.Version, version.GitCommit)
				}
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
