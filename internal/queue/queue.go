package queue

import (
	"context"

	"zoiner/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, event domain.WebhookEvent) error
	Close() error
}

type Handler func(ctx context.Context, event domain.WebhookEvent) error

type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}
