package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/livemd/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Execute a document interactively",
	Long: `Executes a Markdown document, prompting for every form it reaches.
A directory runs its entry point (index, main, start, README).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}

		cfg, err := runtimeConfig()
		if err != nil {
			return err
		}
		bridge, err := bridgeOptions()
		if err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		opts := cli.RunOptions{
			Path:   path,
			Config: cfg,
			Bridge: bridge,
			Logger: logger,
			In:     os.Stdin,
			Out:    os.Stdout,
		}
		opts.DocumentID, _ = flags.GetString("doc")
		opts.SessionID, _ = flags.GetString("session")
		opts.Fresh, _ = flags.GetBool("fresh")
		opts.Watch, _ = flags.GetBool("watch")
		opts.JSON, _ = flags.GetBool("json")
		opts.Plain, _ = flags.GetBool("plain")
		opts.Prior, _ = flags.GetString("prior")

		return cli.Execute(opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("doc", "", "Document ID to run instead of the directory entry point")
	runCmd.Flags().String("session", "", "Session ID; resumes its variables from the bridge")
	runCmd.Flags().Bool("fresh", false, "Discard the session's persisted variables first")
	runCmd.Flags().BoolP("watch", "w", false, "Re-execute the document on every save")
	runCmd.Flags().Bool("json", false, "NDJSON results on stdout, form answers as JSON lines on stdin")
	runCmd.Flags().Bool("plain", false, "Print raw Markdown even on a terminal")
	runCmd.Flags().String("prior", "", "JSON object seeding the first pass")

	// 'livemd <path>' is 'livemd run <path>'.
	rootCmd.Args = runCmd.Args
	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
