/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agriland/marketplace/config"
	"github.com/agriland/marketplace/internal/logging"
	"github.com/agriland/marketplace/internal/mq"
	"github.com/agriland/marketplace/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// eventsCmd tails the listings topic and logs every listing event.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume listing events from the message queue and log them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		logger, err := logging.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer func() { _ = queue.Close() }()

		logger.Info("consuming listing events", zap.String("topic", cfg.MQ.ListingsTopic))
		err = queue.Subscribe(ctx, cfg.MQ.ListingsTopic, logListingEvent(logger))
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// logListingEvent acknowledges undecodable payloads after logging them so a
// malformed message is not redelivered forever.
func logListingEvent(logger *zap.Logger) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		var event services.ListingEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Warn("discarding malformed listing event", zap.String("message_id", msg.ID), zap.Error(err))
			return nil
		}
		logger.Info("listing event",
			zap.String("message_id", msg.ID),
			zap.String("type", event.Type),
			zap.String("listing_id", event.ListingID),
			zap.String("seller_id", event.SellerID),
			zap.String("title", event.Title),
			zap.Time("occurred_at", event.OccurredAt),
		)
		return nil
	}
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
