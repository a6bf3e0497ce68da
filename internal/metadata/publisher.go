// Package metadata publishes coin metadata documents, to IPFS when the
// pinning service cooperates and to this service's own endpoint otherwise.
package metadata

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"zoiner/internal/domain"
	"zoiner/internal/observability"
)

const (
	DefaultName   = "Zoiner Token"
	DefaultSymbol = "ZOINER"
	DefaultImage  = "https://i.postimg.cc/VkgLgc4Z/happybirthday.png"
)

// Pinner is the pinning service contract.
type Pinner interface {
	Authenticate(ctx context.Context) error
	PinJSON(ctx context.Context, doc any, name string) (string, error)
}

type Publisher struct {
	pinner    Pinner
	endpoint  string
	validator *Validator
	dryRun    bool
	hook      observability.Hook
	log       *zap.Logger
}

// NewPublisher wires the pinning client and the public base URL of the
// fallback /metadata endpoint.
func NewPublisher(p Pinner, endpoint string, v *Validator, dryRun bool, hook observability.Hook, log *zap.Logger) *Publisher {
	return &Publisher{
		pinner:    p,
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		validator: v,
		dryRun:    dryRun,
		hook:      hook,
		log:       log,
	}
}

// Publish only fails when a validated http(s) document is incomplete.
// Pinning failures are absorbed by the fallback endpoint.
func (p *Publisher) Publish(ctx context.Context, hash, name, symbol, imageURL string) (domain.PublishedMetadata, error) {
	start := time.Now()
	doc := domain.NewMetadataDocument(name, symbol, imageURL)

	published, err := p.pin(ctx, doc)
	if err != nil {
		p.log.Warn("pinning failed, using metadata endpoint",
			zap.String("hash", hash),
			zap.Error(err),
		)
		p.hook.Record(ctx, observability.Record{
			Hash:   hash,
			Stage:  observability.StageMetadata,
			Status: observability.StatusFallback,
			Err:    err,
		})
		published = domain.PublishedMetadata{
			URI:    FallbackURI(p.endpoint, doc),
			Origin: domain.OriginFallback,
		}
	}

	if !p.dryRun && p.validator != nil {
		if err := p.validator.Validate(ctx, published.URI); err != nil {
			p.hook.Record(ctx, observability.Record{
				Hash:      hash,
				Stage:     observability.StageMetadata,
				Status:    observability.StatusFailed,
				Candidate: published.URI,
				Duration:  time.Since(start),
				Err:       err,
			})
			return domain.PublishedMetadata{}, err
		}
	}

	p.hook.Record(ctx, observability.Record{
		Hash:      hash,
		Stage:     observability.StageMetadata,
		Status:    observability.StatusOK,
		Candidate: published.URI,
		Detail:    string(published.Origin),
		Duration:  time.Since(start),
	})

	return published, nil
}

func (p *Publisher) pin(ctx context.Context, doc domain.MetadataDocument) (domain.PublishedMetadata, error) {
	if p.pinner == nil {
		return domain.PublishedMetadata{}, domain.ErrUpstreamUnavailable
	}
	if err := p.pinner.Authenticate(ctx); err != nil {
		return domain.PublishedMetadata{}, err
	}

	uri, err := p.pinner.PinJSON(ctx, doc, doc.Name+"-metadata.json")
	if err != nil {
		return domain.PublishedMetadata{}, err
	}

	return domain.PublishedMetadata{URI: uri, Origin: domain.OriginPrimary}, nil
}

// FallbackURI encodes the document fields as query parameters of the
// /metadata endpoint.
func FallbackURI(endpoint string, doc domain.MetadataDocument) string {
	symbol := doc.Symbol
	if symbol == "" {
		symbol = doc.Name
	}

	q := url.Values{}
	q.Set("name", doc.Name)
	q.Set("symbol", symbol)
	q.Set("image", doc.Image)

	return strings.TrimSuffix(endpoint, "/") + "/metadata?" + q.Encode()
}

// FromQuery rebuilds the document served by the /metadata endpoint.
func FromQuery(q url.Values) domain.MetadataDocument {
	name := q.Get("name")
	if name == "" {
		name = DefaultName
	}
	symbol := q.Get("symbol")
	if symbol == "" {
		symbol = DefaultSymbol
	}
	image := q.Get("image")
	if image == "" {
		image = DefaultImage
	}

	return domain.NewMetadataDocument(name, symbol, image)
}
