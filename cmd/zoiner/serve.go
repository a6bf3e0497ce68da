package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"zoiner/internal/api"
	"zoiner/internal/config"
	"zoiner/internal/queue"
	"zoiner/internal/worker"
)

func newServeCommand(configPath *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dry-run") {
				cfg.DryRun = dryRun
			}
			return serve(cmd.Context(), cfg, log)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "skip transactions and return a zero deployment")

	return cmd
}

func serve(parent context.Context, cfg *config.Config, log *zap.Logger) error {
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(contextOrBackground(parent), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		dispatcher worker.Dispatcher
		inline     *worker.Inline
		queued     *worker.Queued
	)
	switch cfg.Dispatch.Mode {
	case config.DispatchKafka:
		producer, err := queue.NewKafka(cfg.Queue.Brokers, cfg.Queue.Topic)
		if err != nil {
			return err
		}
		defer producer.Close()
		queued = worker.NewQueued(producer, worker.DefaultQueueSize, log)
		dispatcher = queued
	default:
		inline = worker.NewInline(a.pipeline, a.dedupe(), log)
		dispatcher = inline
	}

	opts := []api.Option{api.WithMetrics(a.metrics, a.metrics.Handler())}
	if a.repo != nil {
		opts = append(opts, api.WithLaunches(a.repo))
	}
	server := api.NewServer(dispatcher, log, opts...)
	a.pipeline.WithBroadcaster(server)

	g, ctx := errgroup.WithContext(ctx)

	// Publishing stops only after the server has shut down.
	pubCtx, stopPublishing := context.WithCancel(context.Background())
	defer stopPublishing()
	if queued != nil {
		g.Go(func() error { return queued.Run(pubCtx) })
	}

	g.Go(func() error {
		log.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("dispatch", cfg.Dispatch.Mode),
			zap.Bool("dry_run", cfg.DryRun),
		)
		if err := server.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		defer stopPublishing()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if inline != nil {
		inline.Wait()
	}
	return err
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
