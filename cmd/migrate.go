package cmd

import (
	"context"

	"github.com/crash-ph/admin-console/internal/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "init-db-migrate",
	Short: "Create the session tables and run database migrations",
	Long:  `This job prepares the Postgres session store by running goose migrations.`,
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config and set up logging
		commonSetUp()

		if err := resolveSecrets(context.Background(), appCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve secrets")
		}

		logger := log.Logger
		store, err := session.NewPostgresStore(appCfg.Database.Source, &logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to the session database")
		}
		defer store.Close()

		// Run the migrations
		log.Info().Msgf("Running migrations...")
		if err := store.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}

		log.Info().Msg("Migrations complete")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
