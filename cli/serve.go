package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rpupo63/showcase-backend/api"
	"github.com/rpupo63/showcase-backend/models"
	"github.com/rpupo63/showcase-backend/notify"
	"github.com/rpupo63/showcase-backend/services"
)

func newServeCmd(open commandOpener) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, appOptions{storage: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if migrate {
				if err := a.db.Migrate(cmd.Context()); err != nil {
					return err
				}
			}

			server, err := api.NewServer(a.config, api.Dependencies{
				Database: a.db,
				Provider: a.provider,
				Projects: services.NewProjectService(a.db),
				Accounts: services.NewAccountService(a.provider, a.uploader, a.accountConfig()),
				Notices:  notify.NewHub(0),
			})
			if err != nil {
				return fmt.Errorf("initializing server: %w", err)
			}

			errChannel := make(chan error, 2)
			go server.Start(errChannel)
			go listenToInterrupt(errChannel)

			fatalErr := <-errChannel
			log.Info().Msgf("Closing server: %v", fatalErr)

			server.ShutdownGracefully(30 * time.Second)
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run schema migrations before serving")
	return cmd
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}

func newMigrateCmd(open commandOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.db.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}

func newGenerateCmd(open commandOpener) *cobra.Command {
	var reportOnly bool
	var outPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate gorm query helpers or report column mismatches",
		Long: `Generate migrates the schema and writes gorm/gen query helpers.

With --report-only it only compares the live tables against the models and
exits non-zero when columns are missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if reportOnly {
				mismatches, err := models.GenerateColumnMismatchReportStandalone(a.db.GetDB())
				if err != nil {
					return err
				}
				if mismatches > 0 {
					return fmt.Errorf("%d mismatched columns", mismatches)
				}
				return nil
			}
			return models.GenerateModels(a.db.GetDB(), outPath)
		},
	}
	cmd.Flags().BoolVar(&reportOnly, "report-only", false, "only report column mismatches")
	cmd.Flags().StringVar(&outPath, "out", "./query", "output directory for generated helpers")
	return cmd
}
