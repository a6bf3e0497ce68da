package observability

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Stage string

const (
	StageFetch    Stage = "fetch"
	StageMention  Stage = "mention"
	StageCommand  Stage = "command"
	StageAddress  Stage = "address"
	StageImage    Stage = "image"
	StageMetadata Stage = "metadata"
	StageDeploy   Stage = "deploy"
	StageReply    Stage = "reply"
	StageOutcome  Stage = "outcome"
)

type Status string

const (
	StatusOK       Status = "ok"
	StatusSkipped  Status = "skipped"
	StatusRejected Status = "rejected"
	StatusRetry    Status = "retry"
	StatusFallback Status = "fallback"
	StatusFailed   Status = "failed"
)

// Record describes one step of a pipeline run.
type Record struct {
	Hash      string
	Stage     Stage
	Status    Status
	Candidate string
	Attempt   int
	Detail    string
	Duration  time.Duration
	Err       error
}

type Hook interface {
	Record(ctx context.Context, r Record)
}

type nopHook struct{}

func (nopHook) Record(context.Context, Record) {}

func Nop() Hook { return nopHook{} }

type multiHook []Hook

func (m multiHook) Record(ctx context.Context, r Record) {
	for _, h := range m {
		h.Record(ctx, r)
	}
}

func Multi(hooks ...Hook) Hook {
	var out multiHook
	for _, h := range hooks {
		if h != nil {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return Nop()
	}
	return out
}

// LogHook writes every record as a structured log entry.
type LogHook struct {
	log *zap.Logger
}

func NewLogHook(log *zap.Logger) *LogHook {
	return &LogHook{log: log}
}

func (h *LogHook) Record(_ context.Context, r Record) {
	fields := []zap.Field{
		zap.String("hash", r.Hash),
		zap.String("stage", string(r.Stage)),
		zap.String("status", string(r.Status)),
	}
	if r.Candidate != "" {
		fields = append(fields, zap.String("candidate", r.Candidate))
	}
	if r.Attempt > 0 {
		fields = append(fields, zap.Int("attempt", r.Attempt))
	}
	if r.Detail != "" {
		fields = append(fields, zap.String("detail", r.Detail))
	}
	if r.Duration > 0 {
		fields = append(fields, zap.Duration("took", r.Duration))
	}

	switch r.Status {
	case StatusFailed:
		h.log.Error("pipeline stage", append(fields, zap.Error(r.Err))...)
	case StatusRetry, StatusFallback:
		h.log.Warn("pipeline stage", append(fields, zap.Error(r.Err))...)
	default:
		if r.Err != nil {
			fields = append(fields, zap.Error(r.Err))
		}
		h.log.Info("pipeline stage", fields...)
	}
}
