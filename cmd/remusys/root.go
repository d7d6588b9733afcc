package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootFlags holds the flags shared by every subcommand, filled in by
// cobra's PersistentFlags before any RunE runs.
type rootFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "remusys",
		Short:         "Remusys SSA IR / AArch64 backend driver",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a remusys.toml target-options file")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug-level pass logging")

	root.AddCommand(newBuildCmd(flags))
	root.AddCommand(newCheckCmd(flags))
	root.AddCommand(newVersionCmd())
	return root
}
