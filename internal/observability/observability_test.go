package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics("test")
	ctx := context.Background()

	m.Record(ctx, Record{Stage: StageImage, Status: StatusOK, Duration: 20 * time.Millisecond})
	m.Record(ctx, Record{Stage: StageDeploy, Status: StatusRetry, Attempt: 1})
	m.Record(ctx, Record{Stage: StageDeploy, Status: StatusOK, Attempt: 2})
	m.Record(ctx, Record{Stage: StageDeploy, Status: StatusSkipped})
	m.Record(ctx, Record{Stage: StageOutcome, Status: StatusOK, Detail: "deployed"})
	m.WebhookReceived("cast.created")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageTotal.WithLabelValues("image", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageTotal.WithLabelValues("deploy", "retry")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DeployAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutcomesTotal.WithLabelValues("deployed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhooksTotal.WithLabelValues("cast.created")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StageTotal.WithLabelValues("outcome", "ok")))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics("")
	m.WebhookReceived("cast.created")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `zoiner_webhooks_total{type="cast.created"} 1`))
}

func TestLogHookLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewLogHook(zap.New(core))
	ctx := context.Background()

	h.Record(ctx, Record{Hash: "0xa", Stage: StageImage, Status: StatusOK, Candidate: "https://img.test/a.png"})
	h.Record(ctx, Record{Hash: "0xa", Stage: StageMetadata, Status: StatusFallback, Err: errors.New("401")})
	h.Record(ctx, Record{Hash: "0xa", Stage: StageDeploy, Status: StatusFailed, Attempt: 3, Err: errors.New("reverted")})

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "https://img.test/a.png", entries[0].ContextMap()["candidate"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, int64(3), entries[2].ContextMap()["attempt"])
}

type countingHook struct{ n int }

func (c *countingHook) Record(context.Context, Record) { c.n++ }

func TestMulti(t *testing.T) {
	a, b := &countingHook{}, &countingHook{}
	h := Multi(a, nil, b)
	h.Record(context.Background(), Record{Stage: StageFetch})

	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
	assert.Equal(t, Nop(), Multi())
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("debug", true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = NewLogger("not-a-level", false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}
