// Package cli implements the showcase command line: the API server, schema
// maintenance and a terminal client for managing projects.
package cli

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd(openApp).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// opener builds the application wiring for a command.
type opener func(ctx context.Context, opts appOptions) (*app, error)

// NewRootCmd assembles the command tree. open is swapped out in tests.
func NewRootCmd(open opener) *cobra.Command {
	var envFile string
	var logLevel string

	root := &cobra.Command{
		Use:   "showcase",
		Short: "Portfolio project showcase backend",
		Long: `showcase serves the project catalog API and manages projects from the terminal.

Examples:
  # Run the API server
  showcase serve

  # Sign in and publish a project
  showcase login alice
  showcase projects publish 5f0c...`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil || logLevel == "" {
				level = zerolog.InfoLevel
			}
			zerolog.SetGlobalLevel(level)
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&logLevel, "log-level", os.Getenv("LOG_LEVEL"), "log level (debug, info, warn, error)")

	openFor := func(cmd *cobra.Command, opts appOptions) (*app, error) {
		opts.envFile = envFile
		return open(cmd.Context(), opts)
	}

	root.AddCommand(
		newServeCmd(openFor),
		newMigrateCmd(openFor),
		newGenerateCmd(openFor),
		newRegisterCmd(openFor),
		newLoginCmd(openFor),
		newLogoutCmd(openFor),
		newWhoamiCmd(openFor),
		newProjectsCmd(openFor),
	)
	return root
}

type commandOpener func(cmd *cobra.Command, opts appOptions) (*app, error)
