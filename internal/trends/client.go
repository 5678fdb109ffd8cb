package trends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/streamwatch/report-service/internal/config"
)

// ErrUnavailable is returned whenever a trending batch cannot be produced:
// missing credential, network failure, timeout or a non-2xx response. Callers
// fall back to whatever pool they already have.
var ErrUnavailable = errors.New("trend source unavailable")

const defaultBaseURL = "https://api.themoviedb.org/3"

// Client fetches currently-trending TV and movie titles.
type Client struct {
	baseURL   string
	token     string
	limitEach int
	client    *http.Client
}

// NewClient builds the trend source client. An empty bearer token is allowed;
// FetchTrending then fails fast without touching the network.
func NewClient(cfg config.TrendsConfig) *Client {
	limit := cfg.LimitEach
	if limit <= 0 {
		limit = 30
	}
	return &Client{
		baseURL:   defaultBaseURL,
		token:     cfg.BearerToken,
		limitEach: limit,
		client:    &http.Client{Timeout: cfg.FetchTimeout()},
	}
}

// NewClientWithBaseURL is used by tests to point at a local server.
func NewClientWithBaseURL(cfg config.TrendsConfig, baseURL string) *Client {
	c := NewClient(cfg)
	c.baseURL = baseURL
	return c
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool {
	return c.token != ""
}

type trendingResponse struct {
	Results []struct {
		Name  string `json:"name"`
		Title string `json:"title"`
	} `json:"results"`
}

// FetchTrending returns trending TV and movie titles, de-duplicated in order.
// Returns ErrUnavailable without a network call when no credential is set.
func (c *Client) FetchTrending(ctx context.Context) ([]string, error) {
	if !c.Configured() {
		return nil, ErrUnavailable
	}

	tv, err := c.get(ctx, c.baseURL+"/trending/tv/day")
	if err != nil {
		return nil, err
	}
	movies, err := c.get(ctx, c.baseURL+"/trending/movie/day")
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, 2*c.limitEach)
	for i, item := range tv.Results {
		if i >= c.limitEach {
			break
		}
		if item.Name != "" {
			titles = append(titles, item.Name)
		}
	}
	for i, item := range movies.Results {
		if i >= c.limitEach {
			break
		}
		if item.Title != "" {
			titles = append(titles, item.Title)
		}
	}

	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, url string) (*trendingResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed trendingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &parsed, nil
}

// Fetcher is the narrow dependency the presence scheduler consumes.
type Fetcher interface {
	FetchTrending(ctx context.Context) ([]string, error)
}

var _ Fetcher = (*Client)(nil)

// FetchedBatch pairs a trending batch with its fetch time, for caching.
type FetchedBatch struct {
	Titles    []string  `json:"titles"`
	FetchedAt time.Time `json:"fetched_at"`
}
