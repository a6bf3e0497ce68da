// Package notifier posts pipeline results back to the originating thread and
// alerts operators about finished launches.
package notifier

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"zoiner/internal/observability"
)

var linkPattern = regexp.MustCompile(`https?://[^\s]+`)

// trailingPunctuation ends a sentence, not a URL.
const trailingPunctuation = ".,;:!?)"

// Poster publishes a reply cast.
type Poster interface {
	Publish(ctx context.Context, text, parentHash string, parentFID int64, embeds []string) (string, error)
}

type Reply struct {
	poster Poster
	hook   observability.Hook
	log    *zap.Logger
}

func NewReply(p Poster, hook observability.Hook, log *zap.Logger) *Reply {
	return &Reply{poster: p, hook: hook, log: log}
}

// Reply posts text under the parent cast with every link in it attached as
// an embed. Failures are logged, never returned.
func (r *Reply) Reply(ctx context.Context, parentFID int64, parentHash, text string) (string, bool) {
	hash, err := r.poster.Publish(ctx, text, parentHash, parentFID, Links(text))
	if err != nil {
		r.log.Error("reply failed", zap.String("parent", parentHash), zap.Error(err))
		r.hook.Record(ctx, observability.Record{
			Hash:   parentHash,
			Stage:  observability.StageReply,
			Status: observability.StatusFailed,
			Err:    err,
		})
		return "", false
	}

	r.hook.Record(ctx, observability.Record{
		Hash:      parentHash,
		Stage:     observability.StageReply,
		Status:    observability.StatusOK,
		Candidate: hash,
	})
	return hash, true
}

// Links returns the distinct http(s) URLs in text, in order of appearance.
func Links(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, link := range linkPattern.FindAllString(text, -1) {
		link = strings.TrimRight(link, trailingPunctuation)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		out = append(out, link)
	}
	return out
}
