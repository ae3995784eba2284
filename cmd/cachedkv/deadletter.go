package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dailyyoga/cachedkv/deadletter"
	"github.com/dailyyoga/cachedkv/kafka"
	"github.com/dailyyoga/cachedkv/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	deadLetterCmd = &cobra.Command{
		Use:   "deadletter",
		Short: "Work with mutations that could not be written to the durable store",
	}

	replayCmd = &cobra.Command{
		Use:   "replay",
		Short: "Consume dead letters from Kafka and apply them to the durable store",
		Long: `Consume dead letters from Kafka and apply them to the durable store.

Runs until interrupted, or until --for elapses. Offsets are committed
only after a letter has been applied, so a failed replay is retried on
the next run.`,
		Args: cobra.NoArgs,
		RunE: runReplay,
	}
)

func init() {
	f := replayCmd.Flags()
	f.StringSlice("brokers", nil, "Kafka brokers (default: dead_letter.kafka.brokers from config)")
	f.String("topic", "", "Dead-letter topic (default: dead_letter.topic or "+deadletter.DefaultTopic+")")
	f.String("group", "cachedkv-replay", "Consumer group id")
	f.String("for", "", "Stop after this long, e.g. 5m (empty: until interrupted)")

	deadLetterCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, _ []string) error {
	fc, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	brokers, _ := cmd.Flags().GetStringSlice("brokers")
	if len(brokers) == 0 && fc.DeadLetter.Kafka != nil {
		brokers = fc.DeadLetter.Kafka.Brokers
	}
	topic, _ := cmd.Flags().GetString("topic")
	if topic == "" {
		topic = fc.DeadLetter.Topic
	}
	if topic == "" {
		topic = deadletter.DefaultTopic
	}
	group, _ := cmd.Flags().GetString("group")
	forFlag, _ := cmd.Flags().GetString("for")
	limit, err := parseDuration(forFlag)
	if err != nil {
		return err
	}

	log, err := logger.New(&fc.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	durable, err := fc.DB.Open(log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := durable.Close(); cerr != nil {
			log.Warn("close durable store failed", zap.Error(cerr))
		}
	}()

	consumer, err := kafka.NewConsumer(log, &kafka.ConsumerConfig{
		Brokers: brokers,
		GroupID: group,
		Topics:  []string{topic},
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	log.Info("replaying dead letters",
		zap.Strings("brokers", brokers),
		zap.String("topic", topic),
		zap.String("group", group),
		zap.Duration("for", limit),
	)
	start := time.Now()
	err = deadletter.Replay(ctx, log, consumer, durable)
	log.Info("replay finished", zap.Duration("elapsed", time.Since(start)))
	return err
}
