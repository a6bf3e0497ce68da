package main

import (
	"fmt"
	"math/big"

	"github.com/lmittmann/w3"
	"go.uber.org/zap"

	"zoiner/internal/chain"
	"zoiner/internal/coin"
	"zoiner/internal/command"
	"zoiner/internal/config"
	"zoiner/internal/image"
	"zoiner/internal/metadata"
	"zoiner/internal/neynar"
	"zoiner/internal/notifier"
	"zoiner/internal/observability"
	"zoiner/internal/pinata"
	"zoiner/internal/pipeline"
	"zoiner/internal/redis"
	"zoiner/internal/storage"
	"zoiner/internal/worker"
)

// app holds everything a command needs to run pipelines.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	metrics  *observability.Metrics
	pipeline *pipeline.Pipeline
	repo     *storage.Postgres
	guard    *redis.Guard
	closers  []func() error
}

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}

	return cfg, log, nil
}

func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, metrics: observability.NewMetrics("zoiner")}
	hook := observability.Multi(observability.NewLogHook(log), a.metrics)

	social := neynar.NewClient(cfg.Neynar.APIKey, cfg.Neynar.SignerUUID)

	var pinner metadata.Pinner
	if cfg.Pinata.JWT != "" {
		pinner = pinata.NewClient(cfg.Pinata.JWT, cfg.Pinata.Gateway)
	} else {
		log.Warn("PINATA_JWT not set, metadata will use the fallback endpoint")
	}

	gateways := cfg.Metadata.Gateways
	if len(gateways) == 0 && cfg.Pinata.Gateway != "" {
		gateways = append([]string{cfg.Pinata.Gateway}, metadata.DefaultGateways...)
	}
	validator := metadata.NewValidator(gateways, cfg.Metadata.Timeout, log)
	publisher := metadata.NewPublisher(pinner, cfg.Server.APIEndpoint, validator, cfg.DryRun, hook, log)

	var c coin.Chain
	if !cfg.DryRun {
		zora, err := newZora(cfg, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, zora.Close)
		log.Info("wallet loaded", zap.String("address", zora.Address().Hex()))
		c = zora
	} else {
		log.Warn("dry run: no transactions will be sent")
	}

	a.pipeline = pipeline.New(
		pipeline.Bot{FID: cfg.Bot.FID, Name: cfg.Bot.Name},
		cfg.Chain.Explorer,
		pipeline.Deps{
			Social:    social,
			Parser:    command.NewParser(),
			Images:    image.NewResolver(image.NewHeadVerifier(cfg.Metadata.Timeout), hook, log),
			Publisher: publisher,
			Deployer:  coin.NewDeployer(c, cfg.DryRun, coin.DefaultPolicy, hook, log),
			Replier:   notifier.NewReply(social, hook, log),
			Hook:      hook,
			Log:       log,
		},
	)

	if cfg.Storage.DSN != "" {
		repo, err := storage.NewPostgres(cfg.Storage.DSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to storage: %w", err)
		}
		a.closers = append(a.closers, repo.Close)
		a.repo = repo
		a.pipeline.WithRecorder(repo)
	}

	if alerts := newAlerts(cfg); alerts != nil {
		a.pipeline.WithNotifier(alerts)
	}

	if cfg.DedupeEnabled() {
		guard, err := redis.New(cfg.Redis.Addr, cfg.Dedupe.Window)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, guard.Close)
		a.guard = guard
	}

	return a, nil
}

// newAlerts returns the operator notifier, or nil when none is configured.
func newAlerts(cfg *config.Config) notifier.Notifier {
	if cfg.Notifier.TelegramToken == "" || len(cfg.Notifier.TelegramChatIDs) == 0 {
		return nil
	}
	return notifier.NewTelegram(cfg.Notifier.TelegramToken, cfg.Notifier.TelegramChatIDs, cfg.Chain.Explorer)
}

func newZora(cfg *config.Config, log *zap.Logger) (*chain.Zora, error) {
	feeCap, err := parseWei(cfg.Chain.GasFeeCap)
	if err != nil {
		return nil, fmt.Errorf("gas_fee_cap: %w", err)
	}
	tipCap, err := parseWei(cfg.Chain.GasTipCap)
	if err != nil {
		return nil, fmt.Errorf("gas_tip_cap: %w", err)
	}

	return chain.NewZora(chain.Config{
		RPCURL:           cfg.Chain.RPCURL,
		ChainID:          cfg.Chain.ChainID,
		PrivateKey:       cfg.Chain.PrivateKey,
		Factory:          cfg.Chain.Factory,
		Currency:         cfg.Chain.Currency,
		PlatformReferrer: cfg.Chain.PlatformReferrer,
		TickLower:        cfg.Chain.TickLower,
		GasLimit:         cfg.Chain.GasLimit,
		GasFeeCap:        feeCap,
		GasTipCap:        tipCap,
		IPFSGateway:      cfg.Pinata.Gateway,
		ReceiptTimeout:   cfg.Chain.ReceiptTimeout,
	}, log)
}

// dedupe returns the claim guard, or a nil interface when it is disabled.
func (a *app) dedupe() worker.Guard {
	if a.guard == nil {
		return nil
	}
	return a.guard
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.log.Sync()
}

func parseWei(s string) (v *big.Int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid amount %q", s)
		}
	}()
	return w3.I(s), nil
}
