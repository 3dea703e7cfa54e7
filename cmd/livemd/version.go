package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/livemd"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of livemd",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "livemd version %s\n", strings.TrimSpace(livemd.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
