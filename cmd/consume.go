package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/crash-ph/admin-console/internal/events"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var subscription string

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Print the console audit events published to the Pulsar topic",
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config and set up logging
		commonSetUp()

		if appCfg.Pulsar.URL == "" {
			log.Fatal().Msg("pulsar.url is not configured")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Initialize event consumer
		consumer, err := events.NewEventConsumer(appCfg.Pulsar.URL, appCfg.Pulsar.TopicProducer, subscription)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event consumer")
		}
		defer consumer.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		for {
			event, err := consumer.Receive(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return
				}
				log.Error().Err(err).Msg("Error receiving audit event")
				continue
			}

			if err := enc.Encode(event); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)
	consumeCmd.Flags().StringVar(&subscription, "subscription", "admin-console-audit", "Pulsar subscription name")
}
