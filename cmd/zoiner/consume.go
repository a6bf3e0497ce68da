package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"zoiner/internal/queue"
	"zoiner/internal/worker"
)

func newConsumeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Run pipelines for webhook events read from Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			consumer, err := queue.NewKafkaConsumer(cfg.Queue.Brokers, cfg.Queue.GroupID, cfg.Queue.Topic, log)
			if err != nil {
				return err
			}
			defer consumer.Close()

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info("consumer started", zap.String("topic", cfg.Queue.Topic), zap.String("group", cfg.Queue.GroupID))

			return worker.NewConsumer(consumer, a.pipeline, a.dedupe(), log).Start(ctx)
		},
	}
}
