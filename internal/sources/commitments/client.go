// Package commitments provides the client for the Commitment-Plans API.
// Commitment-Plans paginates with an offset/limit pair and a hasMore flag.
package commitments

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/finopshub/advisor/internal/breaker"
	"github.com/finopshub/advisor/internal/config"
	"github.com/finopshub/advisor/internal/sources"
	"github.com/finopshub/advisor/internal/transport"
	"github.com/finopshub/advisor/pkg/recommend"
)

type pageResponse struct {
	Data    []map[string]any `json:"data"`
	HasMore bool             `json:"hasMore"`
}

// Client implements sources.Source for Commitment-Plans.
type Client struct {
	endpoint  string
	pageSize  int
	transport *transport.Client
	fetcher   *sources.Fetcher
}

// New creates a Commitment-Plans client.
func New(cfg config.SourceConfig, opts sources.Options, b *breaker.Breaker) *Client {
	c := &Client{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		pageSize:  opts.PageSize,
		transport: transport.New(recommend.SourceCommitmentPlans.String(), cfg.APIKeyEnv),
	}
	c.fetcher = sources.NewFetcher(recommend.SourceCommitmentPlans, opts, b, c.fetchPage)
	return c
}

// Tag implements sources.Source.
func (c *Client) Tag() recommend.SourceTag {
	return recommend.SourceCommitmentPlans
}

// Fetch implements sources.Source.
func (c *Client) Fetch(ctx context.Context, regions []string) sources.FetchResult {
	return c.fetcher.Fetch(ctx, regions)
}

func (c *Client) fetchPage(ctx context.Context, region, cursor string) ([]map[string]any, string, error) {
	offset := 0
	if cursor != "" {
		o, err := strconv.Atoi(cursor)
		if err == nil {
			offset = o
		}
	}

	u := fmt.Sprintf("%s/plans/suggestions?region=%s&offset=%d&limit=%d",
		c.endpoint, url.QueryEscape(region), offset, c.pageSize)

	var resp pageResponse
	if err := c.transport.Get(ctx, u, &resp); err != nil {
		return nil, "", err
	}

	next := ""
	if resp.HasMore {
		next = strconv.Itoa(offset + len(resp.Data))
	}
	return resp.Data, next, nil
}
