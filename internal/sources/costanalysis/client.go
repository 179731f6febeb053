// Package costanalysis provides the client for the Cost-Analysis API.
// Cost-Analysis paginates with 1-based page numbers and reports the total
// page count in each response.
package costanalysis

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
	Items      []map[string]any `json:"items"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
}

// Client implements sources.Source for Cost-Analysis.
type Client struct {
	endpoint  string
	pageSize  int
	transport *transport.Client
	fetcher   *sources.Fetcher
}

// New creates a Cost-Analysis client.
func New(cfg config.SourceConfig, opts sources.Options, b *breaker.Breaker) *Client {
	c := &Client{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		pageSize:  opts.PageSize,
		transport: transport.New(recommend.SourceCostAnalysis.String(), cfg.APIKeyEnv),
	}
	c.fetcher = sources.NewFetcher(recommend.SourceCostAnalysis, opts, b, c.fetchPage)
	return c
}

// Tag implements sources.Source.
func (c *Client) Tag() recommend.SourceTag {
	return recommend.SourceCostAnalysis
}

// Fetch implements sources.Source.
func (c *Client) Fetch(ctx context.Context, regions []string) sources.FetchResult {
	return c.fetcher.Fetch(ctx, regions)
}

func (c *Client) fetchPage(ctx context.Context, region, cursor string) ([]map[string]any, string, error) {
	page := 1
	if cursor != "" {
		p, err := strconv.Atoi(cursor)
		if err == nil {
			page = p
		}
	}

	u := fmt.Sprintf("%s/insights?region=%s&page=%d&pageSize=%d",
		c.endpoint, url.QueryEscape(region), page, c.pageSize)

	var resp pageResponse
	if err := c.transport.Get(ctx, u, &resp); err != nil {
		return nil, "", err
	}

	next := ""
	if resp.Page < resp.TotalPages {
		next = strconv.Itoa(resp.Page + 1)
	}
	return resp.Items, next, nil
}
