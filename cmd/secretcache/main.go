package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/systmms/secretcache/cmd/secretcache/commands"
	"github.com/systmms/secretcache/internal/config"
	dserrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Wipe key material on Ctrl-C
	memguard.CatchInterrupt()

	err := run()
	memguard.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", dserrors.SimplifyError(err))
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile  string
		noColor     bool
		debug       bool
		metricsFile string
	)

	cfg := &config.Config{}
	rt := commands.NewRuntime(cfg)

	rootCmd := &cobra.Command{
		Use:   "secretcache",
		Short: "Rotation-aware encrypted cache for remote secrets",
		Long: `secretcache reads secrets from AWS Secrets Manager, SSM Parameter Store or
Google Secret Manager and keeps an encrypted copy in a local or shared cache.

Cached entries expire before the secret's next scheduled rotation, and secrets
close to rotation are rechecked at most once an hour.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
			rt.MetricsFile = metricsFile
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return rt.WriteMetrics()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the command")

	rootCmd.AddCommand(
		commands.NewGetCommand(rt),
		commands.NewClearCommand(rt),
		commands.NewRotationCommand(rt),
		commands.NewTTLCommand(rt),
		commands.NewKeygenCommand(rt),
		commands.NewDoctorCommand(rt),
		commands.NewCompletionCommand(),
	)

	return rootCmd.Execute()
}
