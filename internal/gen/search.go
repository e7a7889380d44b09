package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultSearchEndpoint is the Tavily search API.
const DefaultSearchEndpoint = "https://api.tavily.com/search"

// SearchClient implements shadow.SearchProvider over a JSON search API.
// Failures are expected to be tolerated by the caller; a theme load never
// blocks on search.
type SearchClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	maxResults int
}

// SearchOption configures a SearchClient.
type SearchOption func(*SearchClient)

// WithSearchEndpoint overrides the search API endpoint.
func WithSearchEndpoint(url string) SearchOption {
	return func(c *SearchClient) { c.endpoint = url }
}

// WithSearchHTTPClient overrides the HTTP client.
func WithSearchHTTPClient(hc *http.Client) SearchOption {
	return func(c *SearchClient) { c.httpClient = hc }
}

// NewSearchClient constructs a search client.
func NewSearchClient(apiKey string, opts ...SearchOption) (*SearchClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gen: search apiKey must not be empty")
	}
	c := &SearchClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   DefaultSearchEndpoint,
		apiKey:     apiKey,
		maxResults: 5,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search implements shadow.SearchProvider. The result is a flat context
// string ready for the generator's prompt.
func (c *SearchClient) Search(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(searchRequest{Query: query, MaxResults: c.maxResults})
	if err != nil {
		return "", fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned HTTP %d", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	var b strings.Builder
	for _, r := range payload.Results {
		if r.Content == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", r.Title, r.Content)
	}

	log.Debug("search completed", "query", query, "results", len(payload.Results))
	return b.String(), nil
}
