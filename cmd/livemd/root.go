package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aretw0/livemd/internal/cli"
	"github.com/aretw0/livemd/internal/config"
)

var (
	cfgFile  string
	settings = viper.New()
)

var rootCmd = &cobra.Command{
	Use:           "livemd",
	Short:         "livemd executes interactive Markdown documents",
	Long:          `livemd runs Markdown documents whose fenced blocks declare state, mutate it, collect input through forms and render conditional text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(readConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ./livemd.yaml)")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.Bool("log-json", false, "Emit logs as JSON")
	pf.String("bridge", cli.BridgeNone, "Persistence bridge: none, memory, file, redis, sqlite")
	pf.String("bridge-dir", ".livemd/sessions", "Directory of the file bridge")
	pf.String("redis-url", "", "Redis URL of the redis bridge")
	pf.String("sqlite-path", "livemd.db", "Database file of the sqlite bridge")
	pf.Duration("session-ttl", 0, "Expiry of redis session rows (0 keeps them)")
	pf.String("encryption-key", "", "Base64 AES-256 key encrypting bridge values")
	pf.StringSlice("pii", nil, "Regexes of variable names redacted before mirroring")
	pf.Int("max-state-size-bytes", config.DefaultMaxStateSizeBytes, "Upper bound of a session's serialized state")
	pf.Int("execution-timeout-ms", config.DefaultExecutionTimeoutMS, "Per-pass execution budget")

	// Config keys use underscores; flags use dashes.
	for _, name := range []string{
		"log-level", "log-json", "bridge", "bridge-dir", "redis-url", "sqlite-path",
		"session-ttl", "encryption-key", "pii", "max-state-size-bytes", "execution-timeout-ms",
	} {
		_ = settings.BindPFlag(strings.ReplaceAll(name, "-", "_"), pf.Lookup(name))
	}

	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.SetEnvPrefix("LIVEMD")
	settings.AutomaticEnv()
}

func readConfig() {
	if cfgFile != "" {
		settings.SetConfigFile(cfgFile)
	} else {
		settings.SetConfigName("livemd")
		settings.AddConfigPath(".")
	}
	if err := settings.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return
		}
		fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		os.Exit(1)
	}
}

// runtimeConfig resolves the engine limits from flags, env and config file.
func runtimeConfig() (config.Config, error) {
	return config.FromMap(settings.AllSettings(), config.Default())
}

func bridgeOptions() (cli.BridgeOptions, error) {
	var opts cli.BridgeOptions
	if err := settings.Unmarshal(&opts); err != nil {
		return opts, fmt.Errorf("invalid bridge settings: %w", err)
	}
	return opts, nil
}

func newLogger() (*slog.Logger, error) {
	return cli.NewLogger(settings.GetString("log_level"), settings.GetBool("log_json"))
}
