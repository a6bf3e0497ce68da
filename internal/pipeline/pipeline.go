// Package pipeline runs one cast through the cast-to-coin sequence: mention
// and command checks, address lookup, image resolution, metadata publishing,
// deployment and the final reply.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"zoiner/internal/command"
	"zoiner/internal/domain"
	"zoiner/internal/observability"
)

type Social interface {
	Cast(ctx context.Context, hash string) (domain.Cast, error)
	User(ctx context.Context, fid int64) (domain.User, error)
}

type ImageResolver interface {
	Resolve(ctx context.Context, cast domain.Cast) domain.ResolvedImage
}

type CommandParser interface {
	Parse(text, username string) domain.ParsedCommand
}

type MetadataPublisher interface {
	Publish(ctx context.Context, hash, name, symbol, imageURL string) (domain.PublishedMetadata, error)
}

type CoinDeployer interface {
	Deploy(ctx context.Context, hash, name, symbol, uri, payoutRecipient string) (domain.DeploymentResult, error)
}

type Replier interface {
	Reply(ctx context.Context, parentFID int64, parentHash, text string) (string, bool)
}

// Recorder keeps a log of launch attempts.
type Recorder interface {
	Save(ctx context.Context, o domain.Outcome) error
}

type Notifier interface {
	Notify(ctx context.Context, o domain.Outcome) error
}

type Broadcaster interface {
	Broadcast(msg string)
}

type Bot struct {
	FID  int64
	Name string
}

type Pipeline struct {
	bot       Bot
	explorer  string
	social    Social
	parser    CommandParser
	images    ImageResolver
	publisher MetadataPublisher
	deployer  CoinDeployer
	replier   Replier
	hook      observability.Hook
	log       *zap.Logger

	recorder    Recorder
	notifier    Notifier
	broadcaster Broadcaster
}

type Deps struct {
	Social    Social
	Parser    CommandParser
	Images    ImageResolver
	Publisher MetadataPublisher
	Deployer  CoinDeployer
	Replier   Replier
	Hook      observability.Hook
	Log       *zap.Logger
}

func New(bot Bot, explorer string, d Deps) *Pipeline {
	hook := d.Hook
	if hook == nil {
		hook = observability.Nop()
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		bot:       bot,
		explorer:  strings.TrimSuffix(explorer, "/"),
		social:    d.Social,
		parser:    d.Parser,
		images:    d.Images,
		publisher: d.Publisher,
		deployer:  d.Deployer,
		replier:   d.Replier,
		hook:      hook,
		log:       log,
	}
}

func (p *Pipeline) WithRecorder(r Recorder) *Pipeline {
	p.recorder = r
	return p
}

func (p *Pipeline) WithNotifier(n Notifier) *Pipeline {
	p.notifier = n
	return p
}

func (p *Pipeline) WithBroadcaster(b Broadcaster) *Pipeline {
	p.broadcaster = b
	return p
}

// Process runs the cast with the given hash to a terminal outcome. It never
// returns an error: failures end up in the outcome and in the reply.
func (p *Pipeline) Process(ctx context.Context, hash string) domain.Outcome {
	start := time.Now()

	o := p.run(ctx, hash)
	o.Hash = hash

	p.hook.Record(ctx, observability.Record{
		Hash:     hash,
		Stage:    observability.StageOutcome,
		Status:   observability.StatusOK,
		Detail:   string(o.Kind),
		Duration: time.Since(start),
	})
	p.deliver(ctx, o)

	return o
}

func (p *Pipeline) run(ctx context.Context, hash string) domain.Outcome {
	cast, err := p.social.Cast(ctx, hash)
	if err != nil {
		status := observability.StatusFailed
		if errors.Is(err, domain.ErrNotFound) {
			status = observability.StatusSkipped
		}
		p.stage(ctx, hash, observability.StageFetch, status, "", err)
		return domain.Outcome{Kind: domain.OutcomeIgnored}
	}

	o := domain.Outcome{Author: cast.Author}

	if !p.mentionsBot(cast) {
		p.stage(ctx, hash, observability.StageMention, observability.StatusSkipped, "", nil)
		o.Kind = domain.OutcomeIgnored
		return o
	}
	p.stage(ctx, hash, observability.StageMention, observability.StatusOK, "", nil)

	if !command.IsRequest(cast.Text) {
		p.stage(ctx, hash, observability.StageCommand, observability.StatusRejected, "", nil)
		p.replier.Reply(ctx, cast.Author.FID, cast.Hash, usageReply(p.bot.Name))
		o.Kind = domain.OutcomeUsageReply
		return o
	}
	p.stage(ctx, hash, observability.StageCommand, observability.StatusOK, "", nil)

	address, err := p.payoutAddress(ctx, cast)
	if err != nil {
		p.stage(ctx, hash, observability.StageAddress, observability.StatusSkipped, "", err)
		o.Kind = domain.OutcomeIgnored
		return o
	}
	if address == "" {
		p.stage(ctx, hash, observability.StageAddress, observability.StatusRejected, "", nil)
		p.replier.Reply(ctx, cast.Author.FID, cast.Hash, replyAddressMissing)
		o.Kind = domain.OutcomeAddressMissing
		return o
	}
	o.Author.VerifiedAddress = address
	p.stage(ctx, hash, observability.StageAddress, observability.StatusOK, address, nil)

	o.Image = p.images.Resolve(ctx, cast)

	o.Command = p.parser.Parse(cast.Text, cast.Author.Username)
	if !o.Command.Valid || o.Image.URL == "" {
		p.replier.Reply(ctx, cast.Author.FID, cast.Hash, replyParseFailed)
		o.Kind = domain.OutcomeParseFailed
		return o
	}

	p.replier.Reply(ctx, cast.Author.FID, cast.Hash, workingReply(o.Command.Name, o.Command.Symbol))

	o.Meta, err = p.publisher.Publish(ctx, hash, o.Command.Name, o.Command.Symbol, o.Image.URL)
	if err != nil {
		return p.fail(ctx, cast, o, fmt.Errorf("failed to create metadata URI: %w", err))
	}

	result, err := p.deployer.Deploy(ctx, hash, o.Command.Name, o.Command.Symbol, o.Meta.URI, address)
	if err != nil {
		return p.fail(ctx, cast, o, err)
	}

	o.Kind = domain.OutcomeDeployed
	o.Result = &result

	p.log.Info("coin created",
		zap.String("hash", hash),
		zap.String("name", o.Command.Name),
		zap.String("symbol", o.Command.Symbol),
		zap.String("contract", result.ContractAddress),
		zap.String("tx", result.TransactionHash),
	)

	p.replier.Reply(ctx, cast.Author.FID, cast.Hash,
		successReply(o.Command.Name, o.Command.Symbol, result.ContractAddress, p.explorer, result.TransactionHash))

	return o
}

func (p *Pipeline) fail(ctx context.Context, cast domain.Cast, o domain.Outcome, err error) domain.Outcome {
	p.log.Error("coin creation failed", zap.String("hash", cast.Hash), zap.Error(err))

	o.Kind = domain.OutcomeDeployFailed
	o.Reason = err.Error()
	p.replier.Reply(ctx, cast.Author.FID, cast.Hash, errorReply(err))

	return o
}

// payoutAddress prefers the profile lookup and falls back to the address
// carried on the cast. Only a missing user is an error.
func (p *Pipeline) payoutAddress(ctx context.Context, cast domain.Cast) (string, error) {
	user, err := p.social.User(ctx, cast.Author.FID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "", err
	case err != nil:
		p.log.Warn("user lookup failed", zap.Int64("fid", cast.Author.FID), zap.Error(err))
		return cast.Author.VerifiedAddress, nil
	case user.VerifiedAddress != "":
		return user.VerifiedAddress, nil
	default:
		return cast.Author.VerifiedAddress, nil
	}
}

func (p *Pipeline) mentionsBot(cast domain.Cast) bool {
	for _, fid := range cast.Mentions {
		if fid == p.bot.FID {
			return true
		}
	}

	text := strings.ToLower(cast.Text)
	if p.bot.Name != "" && strings.Contains(text, "@"+strings.ToLower(p.bot.Name)) {
		return true
	}
	return strings.Contains(text, fmt.Sprintf("@!%d", p.bot.FID))
}

func (p *Pipeline) stage(ctx context.Context, hash string, stage observability.Stage, status observability.Status, candidate string, err error) {
	p.hook.Record(ctx, observability.Record{
		Hash:      hash,
		Stage:     stage,
		Status:    status,
		Candidate: candidate,
		Err:       err,
	})
}

// deliver hands the outcome to the optional sinks. Sink failures are logged.
func (p *Pipeline) deliver(ctx context.Context, o domain.Outcome) {
	if o.Kind == domain.OutcomeIgnored {
		return
	}

	if p.recorder != nil && o.Kind != domain.OutcomeUsageReply {
		if err := p.recorder.Save(ctx, o); err != nil {
			p.log.Error("save launch", zap.String("hash", o.Hash), zap.Error(err))
		}
	}

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, o); err != nil {
			p.log.Error("notify", zap.String("hash", o.Hash), zap.Error(err))
		}
	}

	if p.broadcaster != nil {
		if msg, err := json.Marshal(newEventView(o)); err == nil {
			p.broadcaster.Broadcast(string(msg))
		}
	}
}
