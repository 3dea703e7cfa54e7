package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/livemd/internal/compiler"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file|->",
	Short: "Summarize the blocks of a document without executing it",
	Long:  `Parses a document and prints its block counts, variables and parse errors. Use '-' to read stdin.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		strict, _ := cmd.Flags().GetBool("strict")

		var data []byte
		var err error
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}

		sum := compiler.Summarize(compiler.NewParser().Parse(string(data)))

		out := cmd.OutOrStdout()
		switch format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			err = enc.Encode(sum)
		case "yaml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			err = enc.Encode(sum)
			if err == nil {
				err = enc.Close()
			}
		default:
			return fmt.Errorf("unknown output format %q (want json or yaml)", format)
		}
		if err != nil {
			return err
		}

		if strict && len(sum.Errors) > 0 {
			return fmt.Errorf("%d parse errors", len(sum.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringP("output", "o", "json", "Output format: json or yaml")
	parseCmd.Flags().Bool("strict", false, "Exit with an error when a block fails to parse")
}
