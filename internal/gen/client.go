package gen

import (
	"net/http"
	"time"

	"github.com/openai/openai-go/option"
)

// clientConfig holds optional OpenAI client configuration shared by the
// generator and synthesizer.
type clientConfig struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for the OpenAI-backed clients.
type Option func(*clientConfig)

// WithBaseURL overrides the default OpenAI API base URL. Used by tests to
// point at a local server.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// requestOptions converts the accumulated config into SDK request options.
func (c *clientConfig) requestOptions(apiKey string) []option.RequestOption {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if c.baseURL != "" {
		opts = append(opts, option.WithBaseURL(c.baseURL))
	}
	if c.timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: c.timeout}))
	}
	return opts
}
