package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/livemd/internal/cli"
	"github.com/aretw0/livemd/internal/compiler"
	"github.com/aretw0/livemd/internal/validator"
	"github.com/aretw0/livemd/pkg/adapters/loam"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a document repository for consistency",
	Long:  `Follows nav links from the entry point and reports missing documents and blocks that fail to parse.`,
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

		if err := validator.Validate(cmd.Context(), loader, compiler.NewParser(), docID); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Documents are valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
