// Package hub provides the client for the Hub-Recommendations API.
// Hub paginates with an opaque page token and wraps results in a
// "recommendations" envelope.
package hub

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/finopshub/advisor/internal/breaker"
	"github.com/finopshub/advisor/internal/config"
	"github.com/finopshub/advisor/internal/sources"
	"github.com/finopshub/advisor/internal/transport"
	"github.com/finopshub/advisor/pkg/recommend"
)

type pageResponse struct {
	Recommendations []map[string]any `json:"recommendations"`
	NextPageToken   string           `json:"nextPageToken"`
}

// Client implements sources.Source for Hub-Recommendations.
type Client struct {
	endpoint  string
	pageSize  int
	transport *transport.Client
	fetcher   *sources.Fetcher
}

// New creates a Hub-Recommendations client.
func New(cfg config.SourceConfig, opts sources.Options, b *breaker.Breaker) *Client {
	c := &Client{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		pageSize:  opts.PageSize,
		transport: transport.New(recommend.SourceHub.String(), cfg.APIKeyEnv),
	}
	c.fetcher = sources.NewFetcher(recommend.SourceHub, opts, b, c.fetchPage)
	return c
}

// Tag implements sources.Source.
func (c *Client) Tag() recommend.SourceTag {
	return recommend.SourceHub
}

// Fetch implements sources.Source.
func (c *Client) Fetch(ctx context.Context, regions []string) sources.FetchResult {
	return c.fetcher.Fetch(ctx, regions)
}

func (c *Client) fetchPage(ctx context.Context, region, cursor string) ([]map[string]any, string, error) {
	u := fmt.Sprintf("%s/recommendations?region=%s&maxResults=%d",
		c.endpoint, url.QueryEscape(region), c.pageSize)
	if cursor != "" {
		u += "&pageToken=" + url.QueryEscape(cursor)
	}

	var resp pageResponse
	if err := c.transport.Get(ctx, u, &resp); err != nil {
		return nil, "", err
	}
	return resp.Recommendations, resp.NextPageToken, nil
}
