// Package citysearch queries a Teleport-style city-search API for place-name
// completions.
package citysearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// searchResponse mirrors the HAL envelope returned by the API. Only the
// fields the widget shows are decoded.
type searchResponse struct {
	Embedded *struct {
		Results []struct {
			MatchingFullName string `json:"matching_full_name"`
		} `json:"city:search-results"`
	} `json:"_embedded"`
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Search returns the qualified names of cities matching query, in provider
// order. A response without the embedded results collection yields an empty
// slice and no error.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/cities/?search=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building city search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("city search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("city search returned status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding city search response: %w", err)
	}

	if body.Embedded == nil || body.Embedded.Results == nil {
		c.logger.Debug("city search response has no results collection", "query", query)
		return []string{}, nil
	}

	names := make([]string, 0, len(body.Embedded.Results))
	for _, r := range body.Embedded.Results {
		names = append(names, r.MatchingFullName)
	}

	c.logger.Debug("city search done",
		"query", query,
		"results", len(names),
		"duration_ms", time.Since(start).Milliseconds())
	return names, nil
}
