// Package worker hands accepted webhook events to the pipeline, either on a
// goroutine of this process or through the Kafka topic.
package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"zoiner/internal/domain"
	"zoiner/internal/queue"
)

type Processor interface {
	Process(ctx context.Context, hash string) domain.Outcome
}

// Guard claims a cast hash before it is processed.
type Guard interface {
	Claim(ctx context.Context, hash string) (bool, error)
	Release(ctx context.Context, hash string) error
}

type Dispatcher interface {
	Dispatch(event domain.WebhookEvent)
}

// Inline runs each pipeline on its own goroutine, detached from the request
// that delivered the event.
type Inline struct {
	proc  Processor
	guard Guard
	log   *zap.Logger
	wg    sync.WaitGroup
}

func NewInline(p Processor, g Guard, log *zap.Logger) *Inline {
	return &Inline{proc: p, guard: g, log: log}
}

func (d *Inline) Dispatch(event domain.WebhookEvent) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx := context.Background()
		if !claim(ctx, d.guard, event.Data.Hash, d.log) {
			return
		}
		o := d.proc.Process(ctx, event.Data.Hash)
		if o.Kind == domain.OutcomeDeployFailed {
			release(d.guard, event.Data.Hash, d.log)
		}
	}()
}

// Wait blocks until every dispatched pipeline has finished.
func (d *Inline) Wait() {
	d.wg.Wait()
}

// DefaultQueueSize bounds the events waiting to be published.
const DefaultQueueSize = 256

// Queued forwards events to the topic read by Consumer. Dispatch only
// enqueues; Run publishes on its own goroutine so a slow broker never delays
// the webhook response.
type Queued struct {
	pub     queue.Publisher
	pending chan domain.WebhookEvent
	log     *zap.Logger
}

func NewQueued(p queue.Publisher, size int, log *zap.Logger) *Queued {
	if size < 1 {
		size = DefaultQueueSize
	}
	return &Queued{
		pub:     p,
		pending: make(chan domain.WebhookEvent, size),
		log:     log,
	}
}

// Dispatch never blocks. Events are dropped when the buffer is full.
func (d *Queued) Dispatch(event domain.WebhookEvent) {
	select {
	case d.pending <- event:
	default:
		d.log.Error("publish queue full, dropping event", zap.String("hash", event.Data.Hash))
	}
}

// Run publishes queued events until ctx is done, then flushes what is
// already buffered.
func (d *Queued) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.flush()
			return nil
		case event := <-d.pending:
			d.publish(context.Background(), event)
		}
	}
}

func (d *Queued) flush() {
	for {
		select {
		case event := <-d.pending:
			d.publish(context.Background(), event)
		default:
			return
		}
	}
}

func (d *Queued) publish(ctx context.Context, event domain.WebhookEvent) {
	if err := d.pub.Publish(ctx, event); err != nil {
		d.log.Error("publish event", zap.String("hash", event.Data.Hash), zap.Error(err))
	}
}

// claim returns true when the cast should be processed. Guard errors let the
// cast through.
func claim(ctx context.Context, g Guard, hash string, log *zap.Logger) bool {
	if g == nil {
		return true
	}
	ok, err := g.Claim(ctx, hash)
	if err != nil {
		log.Warn("dedupe claim failed", zap.String("hash", hash), zap.Error(err))
		return true
	}
	if !ok {
		log.Info("duplicate cast skipped", zap.String("hash", hash))
	}
	return ok
}

// release drops the claim on hash so a redelivery of the same cast is
// processed again.
func release(g Guard, hash string, log *zap.Logger) {
	if g == nil {
		return
	}
	if err := g.Release(context.Background(), hash); err != nil {
		log.Warn("dedupe release failed", zap.String("hash", hash), zap.Error(err))
	}
}
