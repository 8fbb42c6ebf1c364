// Package search augments tax-related turns with live results from the
// Google Custom Search API. Absence of configuration disables the feature
// without error.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"yaari/pkg/flight"
)

const endpoint = "https://www.googleapis.com/customsearch/v1"

// TaxSlabQuery is the canned query fired for detected tax intents.
const TaxSlabQuery = "India income tax slab rates FY 2025-26 latest new regime"

var taxRX = regexp.MustCompile(`(?i)tax|slab|income|fy \d{2}-\d{2}`)

// IsTaxQuery reports whether text looks like a tax/fiscal question.
func IsTaxQuery(text string) bool {
	return taxRX.MatchString(text)
}

type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

type Client struct {
	apiKey   string
	engineID string
	http     *http.Client
	cache    *flight.Cache[string, []Result]

	// ctx bounds cache-driven fetches; it outlives any single request.
	ctx context.Context
}

func NewClient(ctx context.Context, apiKey, engineID string) *Client {
	c := &Client{
		apiKey:   apiKey,
		engineID: engineID,
		http:     &http.Client{Timeout: 10 * time.Second},
		ctx:      ctx,
	}
	c.cache = flight.NewCache(c.fetch)
	c.cache.Expiry(30 * time.Minute)
	return c
}

// Configured reports whether both search secrets are present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != "" && c.engineID != ""
}

// Search returns ranked results for query, serving repeats from the cache.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("search API not configured")
	}
	results, err := c.cache.Get(query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results for %q", query)
	}
	return results, nil
}

func (c *Client) fetch(query string) ([]Result, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("cx", c.engineID)
	q.Set("q", query)

	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var body struct {
		Items []Result `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("search decode failed: %w", err)
	}

	log.Debugf("search %q returned %d items", query, len(body.Items))
	return body.Items, nil
}

// FormatResults renders results one per line as "Title: snippet (Source: link)".
func FormatResults(results []Result) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("%s: %s (Source: %s)", r.Title, r.Snippet, r.Link))
	}
	return strings.Join(lines, "\n")
}
