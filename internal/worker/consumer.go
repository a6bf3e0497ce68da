package worker

import (
	"context"

	"go.uber.org/zap"

	"zoiner/internal/domain"
	"zoiner/internal/queue"
)

// Consumer reads webhook events from the queue and runs them through the
// pipeline in order.
type Consumer struct {
	consumer queue.Consumer
	proc     Processor
	guard    Guard
	log      *zap.Logger
}

func NewConsumer(c queue.Consumer, p Processor, g Guard, log *zap.Logger) *Consumer {
	return &Consumer{
		consumer: c,
		proc:     p,
		guard:    g,
		log:      log,
	}
}

func (w *Consumer) Start(ctx context.Context) error {
	return w.consumer.Consume(ctx, w.handleEvent)
}

func (w *Consumer) handleEvent(ctx context.Context, event domain.WebhookEvent) error {
	if event.Type != domain.EventCastCreated {
		return nil
	}

	w.log.Info("event received", zap.String("hash", event.Data.Hash), zap.Time("created_at", event.Received()))

	if !claim(ctx, w.guard, event.Data.Hash, w.log) {
		return nil
	}

	o := w.proc.Process(ctx, event.Data.Hash)
	w.log.Debug("event processed", zap.String("hash", event.Data.Hash), zap.String("outcome", string(o.Kind)))

	// Interrupted by shutdown: leave the offset unmarked so the event is
	// redelivered.
	if err := ctx.Err(); err != nil {
		release(w.guard, event.Data.Hash, w.log)
		return err
	}

	if o.Kind == domain.OutcomeDeployFailed {
		release(w.guard, event.Data.Hash, w.log)
	}

	return nil
}
