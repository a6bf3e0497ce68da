package notifier

import (
	"context"

	"zoiner/internal/domain"
)

// Notifier tells operators about finished launches.
type Notifier interface {
	Notify(ctx context.Context, o domain.Outcome) error
}
