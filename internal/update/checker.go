package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxVersionResponse caps how much of the version document is read.
const maxVersionResponse = 1 << 20

// HTTPVersionClient fetches the latest client version from a metadata endpoint
type HTTPVersionClient struct {
	url       string
	userAgent string // Optional
	client    *http.Client
}

// versionResponse is the body served by the version endpoint
type versionResponse struct {
	Version string `json:"version"`
}

// NewHTTPVersionClient creates a new version client for the given endpoint
func NewHTTPVersionClient(url string) *HTTPVersionClient {
	return &HTTPVersionClient{
		url: url,
		// Deadlines come from the caller's context
		client: &http.Client{},
	}
}

// WithUserAgent sets the User-Agent header sent with the query
func (c *HTTPVersionClient) WithUserAgent(userAgent string) *HTTPVersionClient {
	c.userAgent = userAgent
	return c
}

// WithHTTPClient replaces the underlying HTTP client
func (c *HTTPVersionClient) WithHTTPClient(client *http.Client) *HTTPVersionClient {
	c.client = client
	return c
}

// FetchLatestVersion issues one GET to the endpoint and returns the trimmed version tag.
// Every failure, including an empty version, is a *NetworkError.
func (c *HTTPVersionClient) FetchLatestVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", &NetworkError{Op: "query", URL: c.url, Err: err}
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &NetworkError{Op: "query", URL: c.url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &NetworkError{
			Op:         "query",
			URL:        c.url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var body versionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxVersionResponse)).Decode(&body); err != nil {
		return "", &NetworkError{Op: "query", URL: c.url, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	version := strings.TrimSpace(body.Version)
	if version == "" {
		return "", &NetworkError{Op: "query", URL: c.url, Err: ErrEmptyVersion}
	}

	return version, nil
}
