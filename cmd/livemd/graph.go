package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/livemd/internal/cli"
	"github.com/aretw0/livemd/internal/compiler"
	"github.com/aretw0/livemd/internal/presentation/graph"
	"github.com/aretw0/livemd/internal/validator"
	"github.com/aretw0/livemd/pkg/adapters/loam"
)

var graphCmd = &cobra.Command{
	Use:   "graph [path]",
	Short: "Export the nav links between documents",
	Long:  `Follows nav links from the entry point and outputs a Mermaid diagram (graph TD) of the documents they connect.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}

		dir, docID, err := cli.ResolveTarget(path)
		if err != nil {
			return err
		}
		loader, err := loam.Open(dir)
		if err != nil {
			return err
		}

		pages, err := validator.Crawl(cmd.Context(), loader, compiler.NewParser(), docID)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(pages, docID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
