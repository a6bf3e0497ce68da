// Package coin deploys coins through the chain adapter, retrying while the
// factory cannot read freshly published metadata.
package coin

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"zoiner/internal/chain"
	"zoiner/internal/domain"
	"zoiner/internal/observability"
)

var (
	ZeroHash    = common.Hash{}.Hex()
	ZeroAddress = common.Address{}.Hex()
)

type Chain interface {
	CreateCoin(ctx context.Context, p chain.CoinParams) (domain.DeploymentResult, error)
}

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
}

// DefaultPolicy waits 5s then 10s between three attempts.
var DefaultPolicy = Policy{
	MaxAttempts:     3,
	InitialInterval: 5 * time.Second,
	Multiplier:      2,
}

// DeploymentError is the terminal failure of a deployment.
type DeploymentError struct {
	Attempts int
	Err      error
}

func (e *DeploymentError) Error() string { return e.Err.Error() }

func (e *DeploymentError) Unwrap() error { return e.Err }

type Deployer struct {
	chain    Chain
	dryRun   bool
	policy   Policy
	newTimer func() backoff.Timer
	hook     observability.Hook
	log      *zap.Logger
}

func NewDeployer(c Chain, dryRun bool, policy Policy, hook observability.Hook, log *zap.Logger) *Deployer {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Deployer{
		chain:    c,
		dryRun:   dryRun,
		policy:   policy,
		newTimer: func() backoff.Timer { return nil },
		hook:     hook,
		log:      log,
	}
}

// WithTimer replaces the timer used between attempts.
func (d *Deployer) WithTimer(newTimer func() backoff.Timer) *Deployer {
	d.newTimer = newTimer
	return d
}

func (d *Deployer) Deploy(ctx context.Context, hash, name, symbol, uri, payoutRecipient string) (domain.DeploymentResult, error) {
	if d.dryRun {
		d.log.Info("dry run, skipping coin deployment",
			zap.String("hash", hash),
			zap.String("name", name),
			zap.String("symbol", symbol),
			zap.String("uri", uri),
		)
		d.hook.Record(ctx, observability.Record{
			Hash:   hash,
			Stage:  observability.StageDeploy,
			Status: observability.StatusSkipped,
			Detail: "dry_run",
		})
		return domain.DeploymentResult{
			TransactionHash: ZeroHash,
			ContractAddress: ZeroAddress,
			Info:            domain.DeploymentInfo{Simulated: true},
		}, nil
	}

	if !common.IsHexAddress(payoutRecipient) {
		return domain.DeploymentResult{}, &DeploymentError{
			Err: fmt.Errorf("%w: invalid payout address %q", domain.ErrValidation, payoutRecipient),
		}
	}

	params := chain.CoinParams{
		Name:            name,
		Symbol:          symbol,
		URI:             uri,
		PayoutRecipient: common.HexToAddress(payoutRecipient),
	}

	var (
		result  domain.DeploymentResult
		attempt int
	)

	op := func() error {
		attempt++
		start := time.Now()

		res, err := d.chain.CreateCoin(ctx, params)
		if err == nil {
			result = res
			d.hook.Record(ctx, observability.Record{
				Hash:      hash,
				Stage:     observability.StageDeploy,
				Status:    observability.StatusOK,
				Candidate: res.ContractAddress,
				Attempt:   attempt,
				Duration:  time.Since(start),
			})
			return nil
		}

		if !chain.IsRetryable(err) || attempt >= d.policy.MaxAttempts {
			d.hook.Record(ctx, observability.Record{
				Hash:     hash,
				Stage:    observability.StageDeploy,
				Status:   observability.StatusFailed,
				Attempt:  attempt,
				Detail:   chain.KindOf(err).String(),
				Duration: time.Since(start),
				Err:      err,
			})
			return backoff.Permanent(err)
		}

		d.hook.Record(ctx, observability.Record{
			Hash:     hash,
			Stage:    observability.StageDeploy,
			Status:   observability.StatusRetry,
			Attempt:  attempt,
			Detail:   chain.KindOf(err).String(),
			Duration: time.Since(start),
			Err:      err,
		})
		return err
	}

	notify := func(err error, wait time.Duration) {
		d.log.Warn("metadata not readable by factory yet, retrying",
			zap.String("hash", hash),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotifyWithTimer(op, d.backOff(ctx), notify, d.newTimer()); err != nil {
		return domain.DeploymentResult{}, &DeploymentError{Attempts: attempt, Err: err}
	}

	return result, nil
}

func (d *Deployer) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.policy.InitialInterval
	b.Multiplier = d.policy.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(d.policy.MaxAttempts-1)), ctx)
}
