package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/tidwall/gjson"
)

const (
	defaultTimeout = 15 * time.Second
	userAgent      = "anistream/1.0"
	// Provider responses are small JSON documents, anything larger is not a valid response
	maxBodySize = 8 << 20
)

// Client talks to one consumet-style provider API.  It implements domain.ProviderClient.
type Client struct {
	tag        domain.ProviderTag
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// NewClient creates a client for the provider at baseURL
func NewClient(tag domain.ProviderTag, baseURL string, opts ...Option) *Client {
	c := &Client{
		tag:        tag,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Tag() domain.ProviderTag {
	return c.tag
}

// Search implements domain.ProviderClient
func (c *Client) Search(ctx context.Context, title string) ([]domain.CandidateMatch, error) {
	query := domain.SanitizeQuery(title)
	body, err := c.get(ctx, "search", "/search?query="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}

	matches := parseSearch(body)
	log.Debug("Provider search complete", "provider", c.tag, "query", query, "matches", len(matches))
	return matches, nil
}

// FetchEpisodes implements domain.ProviderClient
func (c *Client) FetchEpisodes(ctx context.Context, candidateID string) ([]domain.Episode, error) {
	body, err := c.get(ctx, "info", "/info/"+url.PathEscape(candidateID))
	if err != nil {
		return nil, err
	}

	episodes := parseEpisodes(body, c.tag)
	log.Debug("Provider episodes fetched", "provider", c.tag, "id", candidateID, "episodes", len(episodes))
	return episodes, nil
}

// FetchSource implements domain.ProviderClient.  A response without usable sources is returned as an empty
// StreamData, it is up to the caller to decide that is a failure.
func (c *Client) FetchSource(ctx context.Context, episodeID string) (*domain.StreamData, error) {
	body, err := c.get(ctx, "watch", "/watch/"+url.PathEscape(episodeID))
	if err != nil {
		return nil, err
	}

	data := parseStreamData(body)
	log.Debug("Provider sources fetched", "provider", c.tag, "episode_id", episodeID, "sources", len(data.Sources))
	return data, nil
}

// get performs one GET request and returns the body if it is valid JSON.  Every failure is a *domain.ProviderError.
func (c *Client) get(ctx context.Context, op, path string) (string, error) {
	fail := func(err error) error {
		return &domain.ProviderError{Provider: c.tag, Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fail(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	log.Trace("Provider request", "provider", c.tag, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isNetworkError(err) {
			return "", fail(NetworkError{Err: err})
		}
		return "", fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fail(fmt.Errorf("unexpected status code %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fail(fmt.Errorf("reading body: %w", err))
	}

	body := string(data)
	if !gjson.Valid(body) {
		return "", fail(errors.New("response is not valid JSON"))
	}
	return body, nil
}

// NetworkError marks a failure to reach the provider at all, as opposed to a bad response
type NetworkError struct {
	Err error
}

func (e NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e NetworkError) Unwrap() error {
	return e.Err
}

func isNetworkError(err error) bool {
	var netErr *url.Error
	if !errors.As(err, &netErr) {
		return false
	}
	return netErr.Timeout() ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "no such host") ||
		strings.Contains(err.Error(), "i/o timeout")
}
