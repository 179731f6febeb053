// Package transport provides the shared HTTP plumbing for source clients:
// a client with API-key authentication and JSON response decoding with
// status classification into the advisor error taxonomy.
package transport

import (
	"context"
	"net/http"
	"os"

	"github.com/finopshub/advisor/pkg/constants"
	"github.com/finopshub/advisor/pkg/errors"
)

// Client performs authenticated HTTP requests against one source API.
type Client struct {
	http      *http.Client
	source    string
	apiKeyEnv string
}

// New creates a transport client for a source. apiKeyEnv names the
// environment variable holding the API key; an empty value means the
// source needs no credentials.
func New(source, apiKeyEnv string) *Client {
	return &Client{
		http:      &http.Client{Timeout: constants.DefaultHTTPTimeout},
		source:    source,
		apiKeyEnv: apiKeyEnv,
	}
}

// Get performs a GET request and decodes the JSON response into target.
func (c *Client) Get(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.WrapAPI(c.source, 0, err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKeyEnv != "" {
		if key := os.Getenv(c.apiKeyEnv); key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapAPI(c.source, 0, err)
	}

	return DecodeResponse(c.source, resp, target)
}
