package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at release time; development builds report "dev",
// mirroring internal/version's GetWazeroVersion default fallback.
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the remusys driver version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
