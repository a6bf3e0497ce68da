// Package pinata talks to the Pinata pinning API.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultAPIURL = "https://api.pinata.cloud"

var ErrMissingJWT = errors.New("pinata JWT is not set")

type Client struct {
	jwt     string
	apiURL  string
	gateway string
	client  *http.Client
}

func NewClient(jwt, gateway string) *Client {
	return &Client{
		jwt:     strings.TrimSpace(jwt),
		apiURL:  DefaultAPIURL,
		gateway: strings.TrimSuffix(gateway, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithAPIURL points the client at another API host.
func (c *Client) WithAPIURL(u string) *Client {
	c.apiURL = strings.TrimSuffix(u, "/")
	return c
}

func (c *Client) Authenticate(ctx context.Context) error {
	if c.jwt == "" {
		return ErrMissingJWT
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/data/testAuthentication", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinata authentication: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pinata authentication: %s", apiError(resp))
	}

	return nil
}

// PinJSON pins a JSON document and returns its ipfs:// URI.
func (c *Client) PinJSON(ctx context.Context, doc any, name string) (string, error) {
	if c.jwt == "" {
		return "", ErrMissingJWT
	}

	body, err := json.Marshal(map[string]any{
		"pinataContent":  doc,
		"pinataMetadata": map[string]string{"name": name},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/pinning/pinJSONToIPFS", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pin json: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pin json: %s", apiError(resp))
	}

	var out struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("pin json: decode response: %w", err)
	}
	if out.IpfsHash == "" {
		return "", errors.New("pin json: empty IpfsHash in response")
	}

	return "ipfs://" + out.IpfsHash, nil
}

// GatewayURL maps an ipfs:// URI or bare CID onto the gateway base URL
// (https://host/ipfs).
func (c *Client) GatewayURL(uri string) string {
	return c.gateway + "/" + strings.TrimPrefix(uri, "ipfs://")
}

func apiError(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && len(body.Error) > 0 {
		var reason struct {
			Reason  string `json:"reason"`
			Details string `json:"details"`
		}
		if json.Unmarshal(body.Error, &reason) == nil && reason.Reason != "" {
			return fmt.Sprintf("HTTP %d: %s", resp.StatusCode, reason.Reason)
		}
		var s string
		if json.Unmarshal(body.Error, &s) == nil && s != "" {
			return fmt.Sprintf("HTTP %d: %s", resp.StatusCode, s)
		}
	}

	return fmt.Sprintf("HTTP %d", resp.StatusCode)
}
