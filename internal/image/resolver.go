// Package image finds a usable image URL inside a cast.
package image

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"zoiner/internal/domain"
	"zoiner/internal/observability"
)

const DefaultURL = "https://i.postimg.cc/VkgLgc4Z/happybirthday.png"

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// Verifier checks that a URL serves an image without downloading it.
type Verifier interface {
	Verify(ctx context.Context, url string) (contentType string, err error)
}

type Resolver struct {
	verifier   Verifier
	defaultURL string
	hook       observability.Hook
	log        *zap.Logger
}

func NewResolver(v Verifier, hook observability.Hook, log *zap.Logger) *Resolver {
	return &Resolver{
		verifier:   v,
		defaultURL: DefaultURL,
		hook:       hook,
		log:        log,
	}
}

type candidate struct {
	url    string
	source domain.ImageSource
}

// Resolve returns the first verified candidate, in priority order, or the
// default image.
func (r *Resolver) Resolve(ctx context.Context, cast domain.Cast) domain.ResolvedImage {
	for _, c := range candidates(cast) {
		contentType, err := r.verifier.Verify(ctx, c.url)
		if err != nil {
			r.hook.Record(ctx, observability.Record{
				Hash:      cast.Hash,
				Stage:     observability.StageImage,
				Status:    observability.StatusRejected,
				Candidate: c.url,
				Detail:    string(c.source),
				Err:       err,
			})
			continue
		}

		r.hook.Record(ctx, observability.Record{
			Hash:      cast.Hash,
			Stage:     observability.StageImage,
			Status:    observability.StatusOK,
			Candidate: c.url,
			Detail:    string(c.source),
		})
		return domain.ResolvedImage{URL: c.url, ContentType: contentType, Source: c.source}
	}

	r.log.Info("no image in cast, using default", zap.String("hash", cast.Hash))
	r.hook.Record(ctx, observability.Record{
		Hash:      cast.Hash,
		Stage:     observability.StageImage,
		Status:    observability.StatusFallback,
		Candidate: r.defaultURL,
		Detail:    string(domain.SourceDefault),
	})

	return domain.ResolvedImage{URL: r.defaultURL, Source: domain.SourceDefault}
}

func candidates(cast domain.Cast) []candidate {
	var out []candidate

	for _, u := range cast.ImageURLs {
		if u != "" {
			out = append(out, candidate{u, domain.SourceImageURL})
		}
	}

	for _, m := range cast.EmbeddedMedia {
		if looksLikeImage(m.URL, m.Type) {
			out = append(out, candidate{m.URL, domain.SourceEmbeddedMedia})
		}
	}

	for _, e := range cast.Embeds {
		if e.Kind == domain.EmbedRich && e.Image != "" {
			out = append(out, candidate{e.Image, domain.SourceEmbedImage})
		}
	}

	for _, e := range cast.Embeds {
		if e.Kind != domain.EmbedUnknown && looksLikeImage(e.URL, e.MimeType) {
			out = append(out, candidate{e.URL, domain.SourceEmbedURL})
		}
	}

	for _, a := range cast.Attachments {
		if a.Kind != domain.AttachmentUnknown && a.URL != "" {
			out = append(out, candidate{a.URL, domain.SourceAttachment})
		}
	}

	return out
}

func looksLikeImage(url, mimeType string) bool {
	if url == "" {
		return false
	}
	if strings.HasPrefix(mimeType, "image/") {
		return true
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(url, ext) {
			return true
		}
	}
	return false
}

// HeadVerifier issues a HEAD request and checks the declared content type.
type HeadVerifier struct {
	client *http.Client
}

func NewHeadVerifier(timeout time.Duration) *HeadVerifier {
	return &HeadVerifier{client: &http.Client{Timeout: timeout}}
}

func (v *HeadVerifier) Verify(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("not an image: %q", contentType)
	}

	return contentType, nil
}
