// Package neynar is the Farcaster client backed by the Neynar v2 REST API.
package neynar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"zoiner/internal/domain"
)

const DefaultBaseURL = "https://api.neynar.com/v2/farcaster"

type Client struct {
	apiKey     string
	signerUUID string
	baseURL    string
	client     *http.Client
}

func NewClient(apiKey, signerUUID string) *Client {
	return &Client{
		apiKey:     apiKey,
		signerUUID: signerUUID,
		baseURL:    DefaultBaseURL,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL points the client at another API host.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

func (c *Client) Cast(ctx context.Context, hash string) (domain.Cast, error) {
	q := url.Values{}
	q.Set("identifier", hash)
	q.Set("type", "hash")

	var out struct {
		Cast *apiCast `json:"cast"`
	}
	if err := c.get(ctx, "/cast?"+q.Encode(), &out); err != nil {
		return domain.Cast{}, fmt.Errorf("fetch cast %s: %w", hash, err)
	}
	if out.Cast == nil {
		return domain.Cast{}, fmt.Errorf("fetch cast %s: %w", hash, domain.ErrNotFound)
	}

	return out.Cast.toDomain(), nil
}

func (c *Client) User(ctx context.Context, fid int64) (domain.User, error) {
	q := url.Values{}
	q.Set("fids", strconv.FormatInt(fid, 10))

	var out struct {
		Users []apiUser `json:"users"`
	}
	if err := c.get(ctx, "/user/bulk?"+q.Encode(), &out); err != nil {
		return domain.User{}, fmt.Errorf("fetch user %d: %w", fid, err)
	}
	if len(out.Users) == 0 {
		return domain.User{}, fmt.Errorf("fetch user %d: %w", fid, domain.ErrNotFound)
	}

	return out.Users[0].toDomain(), nil
}

// Publish posts a reply and returns the new cast's hash.
func (c *Client) Publish(ctx context.Context, text, parentHash string, parentFID int64, embeds []string) (string, error) {
	type embed struct {
		URL string `json:"url"`
	}

	payload := map[string]any{
		"signer_uuid":       c.signerUUID,
		"text":              text,
		"parent":            parentHash,
		"parent_author_fid": parentFID,
	}
	if len(embeds) > 0 {
		list := make([]embed, len(embeds))
		for i, u := range embeds {
			list[i] = embed{URL: u}
		}
		payload["embeds"] = list
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cast", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Success bool `json:"success"`
		Cast    struct {
			Hash string `json:"hash"`
		} `json:"cast"`
	}
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("publish cast: %w", err)
	}

	return out.Cast.Hash, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("neynar API error %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("neynar API error: %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
