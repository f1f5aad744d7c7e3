package anilist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/machinebox/graphql"
)

// DefaultEndpoint is the public AniList GraphQL API
const DefaultEndpoint = "https://graphql.anilist.co"

// Client is the generic AniList client for making anonymous queries to the AniList graphql API
type Client struct {
	client *graphql.Client
}

// NewClient creates a client for endpoint.  An empty endpoint uses DefaultEndpoint.  httpClient may be nil.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		client: graphql.NewClient(endpoint, graphql.WithHTTPClient(httpClient)),
	}
}

func (c *Client) Query(ctx context.Context, query string, variables map[string]interface{}, result interface{}) error {
	req := graphql.NewRequest(query)
	for key, value := range variables {
		req.Var(key, value)
	}

	if err := c.client.Run(ctx, req, result); err != nil {
		if isNetworkError(err) {
			return NetworkError{Err: err}
		}
		return err
	}
	return nil
}

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
	log.Debug("AniList request failed to reach the server", "error", err)
	return netErr.Timeout() ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "no such host") ||
		strings.Contains(err.Error(), "i/o timeout")
}
