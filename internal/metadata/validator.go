package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"zoiner/internal/domain"
)

var DefaultGateways = []string{
	"https://ipfs.io/ipfs/",
	"https://dweb.link/ipfs/",
	"https://cloudflare-ipfs.com/ipfs/",
}

var acceptedSchemes = []string{"ipfs://", "http://", "https://"}

// Validator checks that a published URI serves a complete document.
type Validator struct {
	gateways []string
	client   *http.Client
	log      *zap.Logger
}

func NewValidator(gateways []string, timeout time.Duration, log *zap.Logger) *Validator {
	if len(gateways) == 0 {
		gateways = DefaultGateways
	}

	normalized := make([]string, 0, len(gateways))
	for _, gw := range gateways {
		if !strings.HasSuffix(gw, "/") {
			gw += "/"
		}
		normalized = append(normalized, gw)
	}

	return &Validator{
		gateways: normalized,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

// Validate is strict for http(s) URIs. For ipfs:// URIs a miss on every
// gateway only means the pin has not propagated yet and is logged.
func (v *Validator) Validate(ctx context.Context, uri string) error {
	if !hasAcceptedScheme(uri) {
		return fmt.Errorf("%w: unsupported metadata URI scheme: %s", domain.ErrValidation, uri)
	}

	if cid, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		for _, gw := range v.gateways {
			if _, err := v.Fetch(ctx, gw+cid); err != nil {
				v.log.Debug("gateway miss", zap.String("gateway", gw), zap.String("cid", cid), zap.Error(err))
				continue
			}
			v.log.Info("metadata reachable", zap.String("gateway", gw), zap.String("cid", cid))
			return nil
		}
		v.log.Warn("metadata not yet propagated to any gateway", zap.String("uri", uri))
		return nil
	}

	if _, err := v.Fetch(ctx, uri); err != nil {
		return fmt.Errorf("%w: metadata at %s: %v", domain.ErrValidation, uri, err)
	}

	return nil
}

// Fetch downloads a metadata document and checks its required fields.
func (v *Validator) Fetch(ctx context.Context, url string) (domain.MetadataDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.MetadataDocument{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return domain.MetadataDocument{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.MetadataDocument{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var doc domain.MetadataDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return domain.MetadataDocument{}, fmt.Errorf("decode metadata: %w", err)
	}

	if err := doc.Validate(); err != nil {
		return domain.MetadataDocument{}, err
	}

	return doc, nil
}

func hasAcceptedScheme(uri string) bool {
	for _, s := range acceptedSchemes {
		if strings.HasPrefix(uri, s) {
			return true
		}
	}
	return false
}
