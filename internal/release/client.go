package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// defaultBaseURL is the public GitHub API endpoint.
	defaultBaseURL = "https://api.github.com"

	// defaultTimeout bounds a single API request.
	defaultTimeout = 30 * time.Second

	// listPageSize is the number of recent releases fetched per candidate.
	listPageSize = 50

	// maxErrorBodySize limits how much of an error response is echoed back.
	maxErrorBodySize = 64 << 10
)

// ErrReleaseNotFound is returned when a tagged release does not exist.
var ErrReleaseNotFound = errors.New("release not found")

// Client is a minimal typed client for the GitHub releases API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API endpoint.
// Used by tests and by GitHub Enterprise deployments.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient returns a release API client with the provided options applied.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListReleases fetches up to listPageSize most recent releases of the repository,
// in the API's returned order.
func (c *Client) ListReleases(ctx context.Context, owner, repo string) ([]Release, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d", c.baseURL, owner, repo, listPageSize)

	var releases []Release
	if err := c.getJSON(ctx, apiURL, &releases); err != nil {
		return nil, err
	}

	return releases, nil
}

// ReleaseByTag fetches the release published from the exact tag.
// Returns ErrReleaseNotFound when no such release exists.
func (c *Client) ReleaseByTag(ctx context.Context, owner, repo, tag string) (*Release, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", c.baseURL, owner, repo, tag)

	var rel Release
	if err := c.getJSON(ctx, apiURL, &rel); err != nil {
		return nil, err
	}

	return &rel, nil
}

// getJSON performs an authenticated GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, apiURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch release metadata: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return ErrReleaseNotFound
	}

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("fetch release metadata: status=%s body=%s", resp.Status, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode release JSON: %w", err)
	}

	return nil
}
