// Package newsapi fetches candidate news items from a GNews-style
// search API.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultMax = 5
	maxResults = 10
)

// Item is a single raw news result. Title is always non-empty;
// Description and Image may be empty.
type Item struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	URL         string `json:"url"`
}

// SourceFetchError reports a non-2xx response from the news API.
type SourceFetchError struct {
	Status int
	Body   string
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("news API HTTP %d: %s", e.Status, e.Body)
}

// Config holds news API client configuration.
type Config struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key" env:"NEWS_API_KEY"`
	Lang    string `yaml:"lang"`
}

// Client calls the news search API. It shares a rate limiter with the
// content enhancer so the pipeline's total outbound call rate stays
// below upstream limits.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	lang    string
	limiter *rate.Limiter
}

// NewClient creates a news search client.
func NewClient(cfg Config, limiter *rate.Limiter) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://gnews.io/api/v4"
	}
	lang := cfg.Lang
	if lang == "" {
		lang = "en"
	}
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
		lang:    lang,
		limiter: limiter,
	}
}

type searchResponse struct {
	Articles []Item `json:"articles"`
}

// Search fetches up to max items for the query. The result order is the
// order returned by the upstream API; items without a title are dropped.
func (c *Client) Search(ctx context.Context, query string, max int) ([]Item, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if max <= 0 {
		max = DefaultMax
	}
	if max > maxResults {
		max = maxResults
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("lang", c.lang)
	params.Set("max", strconv.Itoa(max))
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SourceFetchError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	items := make([]Item, 0, len(parsed.Articles))
	for _, item := range parsed.Articles {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		items = append(items, item)
	}

	return items, nil
}
